package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Writer provides streaming XMLTV output. Channels must be written before
// programmes. Timestamps are written exactly as stored on the programme.
type Writer struct {
	w             io.Writer
	headerWritten bool
	channelsDone  bool
}

// NewWriter creates a guide writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the XML declaration and opens the tv element.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	if _, err := fmt.Fprintln(w.w, `<?xml version="1.0" encoding="UTF-8"?>`); err != nil {
		return fmt.Errorf("writing XML declaration: %w", err)
	}
	if _, err := fmt.Fprintln(w.w, `<tv generator-info-name="zaptv">`); err != nil {
		return fmt.Errorf("writing tv element: %w", err)
	}
	w.headerWritten = true
	return nil
}

// WriteChannel writes a channel definition.
func (w *Writer) WriteChannel(ch *Channel) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if w.channelsDone {
		return fmt.Errorf("channels must be written before programmes")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "  <channel id=\"%s\">\n", xmlEscape(ch.ID))
	fmt.Fprintf(&sb, "    <display-name>%s</display-name>\n", xmlEscape(ch.DisplayName))
	if ch.Icon != "" {
		fmt.Fprintf(&sb, "    <icon src=\"%s\"/>\n", xmlEscape(ch.Icon))
	}
	if ch.URL != "" {
		fmt.Fprintf(&sb, "    <url>%s</url>\n", xmlEscape(ch.URL))
	}
	sb.WriteString("  </channel>\n")

	_, err := io.WriteString(w.w, sb.String())
	return err
}

// WriteProgramme writes a programme entry.
func (w *Writer) WriteProgramme(prog *Programme) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	w.channelsDone = true

	lang := prog.Language
	if lang == "" {
		lang = "en"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "  <programme start=\"%s\" stop=\"%s\" channel=\"%s\">\n",
		xmlEscape(prog.Start), xmlEscape(prog.Stop), xmlEscape(prog.Channel))
	fmt.Fprintf(&sb, "    <title lang=\"%s\">%s</title>\n", lang, xmlEscape(prog.Title))
	if prog.SubTitle != "" {
		fmt.Fprintf(&sb, "    <sub-title lang=\"%s\">%s</sub-title>\n", lang, xmlEscape(prog.SubTitle))
	}
	if prog.Description != "" {
		fmt.Fprintf(&sb, "    <desc lang=\"%s\">%s</desc>\n", lang, xmlEscape(prog.Description))
	}
	if prog.Category != "" {
		fmt.Fprintf(&sb, "    <category lang=\"%s\">%s</category>\n", lang, xmlEscape(prog.Category))
	}
	if prog.Icon != "" {
		fmt.Fprintf(&sb, "    <icon src=\"%s\"/>\n", xmlEscape(prog.Icon))
	}
	if prog.EpisodeNum != "" {
		fmt.Fprintf(&sb, "    <episode-num system=\"onscreen\">%s</episode-num>\n", xmlEscape(prog.EpisodeNum))
	}
	sb.WriteString("  </programme>\n")

	_, err := io.WriteString(w.w, sb.String())
	return err
}

// WriteFooter closes the tv element.
func (w *Writer) WriteFooter() error {
	_, err := fmt.Fprintln(w.w, `</tv>`)
	return err
}

// xmlEscape escapes special XML characters.
func xmlEscape(s string) string {
	var buf []byte
	xml.EscapeText((*xmlEscapeWriter)(&buf), []byte(s))
	return string(buf)
}

type xmlEscapeWriter []byte

func (w *xmlEscapeWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
