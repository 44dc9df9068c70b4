package m3u

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Writer generates M3U playlists in canonical form: known attributes in a
// fixed order, extra attributes sorted by key. Writing the same entries twice
// produces byte-identical output.
type Writer struct {
	w             io.Writer
	headerWritten bool
}

// NewWriter creates a playlist writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the #EXTM3U header. Called automatically by the first
// WriteEntry if not called explicitly.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	if _, err := fmt.Fprintln(w.w, "#EXTM3U"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	w.headerWritten = true
	return nil
}

// WriteEntry writes a single channel entry.
func (w *Writer) WriteEntry(entry *Entry) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}

	var attrs []string
	if entry.TvgID != "" {
		attrs = append(attrs, fmt.Sprintf(`tvg-id=%q`, entry.TvgID))
	}
	if entry.TvgName != "" {
		attrs = append(attrs, fmt.Sprintf(`tvg-name=%q`, entry.TvgName))
	}
	if entry.TvgLogo != "" {
		attrs = append(attrs, fmt.Sprintf(`tvg-logo=%q`, entry.TvgLogo))
	}
	if entry.GroupTitle != "" {
		attrs = append(attrs, fmt.Sprintf(`group-title=%q`, entry.GroupTitle))
	}
	if entry.ChannelNumber > 0 {
		attrs = append(attrs, fmt.Sprintf(`tvg-chno="%d"`, entry.ChannelNumber))
	}

	extraKeys := make([]string, 0, len(entry.Extra))
	for key := range entry.Extra {
		extraKeys = append(extraKeys, key)
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		attrs = append(attrs, fmt.Sprintf(`%s=%q`, key, entry.Extra[key]))
	}

	duration := entry.Duration
	if duration == 0 {
		duration = -1
	}

	var extinf string
	if len(attrs) > 0 {
		extinf = fmt.Sprintf("#EXTINF:%d %s,%s", duration, strings.Join(attrs, " "), entry.Title)
	} else {
		extinf = fmt.Sprintf("#EXTINF:%d,%s", duration, entry.Title)
	}

	if _, err := fmt.Fprintln(w.w, extinf); err != nil {
		return fmt.Errorf("writing EXTINF: %w", err)
	}
	if _, err := fmt.Fprintln(w.w, entry.URL); err != nil {
		return fmt.Errorf("writing URL: %w", err)
	}
	return nil
}

// WriteAll writes every entry in order.
func (w *Writer) WriteAll(entries []Entry) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	for i := range entries {
		if err := w.WriteEntry(&entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// Generate renders entries as a complete playlist document.
func Generate(entries []Entry) (string, error) {
	var sb strings.Builder
	w := NewWriter(&sb)
	if err := w.WriteAll(entries); err != nil {
		return "", err
	}
	return sb.String(), nil
}
