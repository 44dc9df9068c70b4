// Package m3u provides streaming M3U playlist parsing and generation.
// It supports extended M3U (#EXTM3U) with EXTINF metadata attributes and
// transparently handles gzip, bzip2, and xz compressed documents.
package m3u

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"
)

// Entry represents a single channel entry in an M3U playlist.
type Entry struct {
	// Duration is the track duration in seconds (-1 for live streams).
	Duration int

	// TvgID is the EPG channel identifier.
	TvgID string

	// TvgName is the display name from tvg-name attribute.
	TvgName string

	// TvgLogo is the URL to the channel logo.
	TvgLogo string

	// GroupTitle is the category/group from group-title attribute.
	GroupTitle string

	// ChannelNumber is the channel number from tvg-chno attribute.
	ChannelNumber int

	// Title is the display title from the EXTINF line.
	Title string

	// URL is the stream URL.
	URL string

	// Extra contains any additional attributes not explicitly parsed.
	Extra map[string]string
}

// Parser provides streaming M3U parsing with callback-based processing.
type Parser struct {
	// OnEntry is called for each parsed entry.
	OnEntry func(entry *Entry) error

	// OnError is called for recoverable parsing errors.
	// If nil, errors are silently ignored.
	OnError func(lineNum int, err error)
}

var (
	// Matches duration and attribute portion: #EXTINF:-1 tvg-id="..." ...,Title
	extinfRegex = regexp.MustCompile(`^#EXTINF:\s*(-?\d+)\s*(.*)$`)

	// Matches key="value" or key=value patterns.
	attrRegex = regexp.MustCompile(`([a-zA-Z0-9_-]+)=(?:"([^"]*)"|([^\s,]+))`)
)

// LooksLikePlaylist reports whether raw starts with the extended M3U header,
// ignoring leading whitespace and a UTF-8 BOM.
func LooksLikePlaylist(raw []byte) bool {
	s := strings.TrimLeft(strings.TrimPrefix(string(raw), "\uFEFF"), " \t\r\n")
	return strings.HasPrefix(s, "#EXTM3U")
}

// Parse parses an M3U playlist from a reader, calling OnEntry for each channel.
func (p *Parser) Parse(r io.Reader) error {
	if p.OnEntry == nil {
		return fmt.Errorf("OnEntry callback is required")
	}

	scanner := bufio.NewScanner(r)
	// Some provider playlists carry multi-kilobyte URLs per line.
	const maxLineSize = 1024 * 1024
	buf := make([]byte, maxLineSize)
	scanner.Buffer(buf, maxLineSize)

	var pending *Entry
	lineNum := 0
	sawHeader := false

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXTM3U"):
			sawHeader = true

		case strings.HasPrefix(line, "#EXTINF:"):
			entry, err := p.decodeExtinf(line)
			if err != nil {
				p.handleError(lineNum, err)
				continue
			}
			pending = entry

		case strings.HasPrefix(line, "#"):
			// Other directives (#EXTGRP, #EXT-X-*) are not needed here.

		default:
			// URL line.
			if pending != nil {
				pending.URL = line
				if err := p.OnEntry(pending); err != nil {
					return fmt.Errorf("callback error at line %d: %w", lineNum, err)
				}
				pending = nil
			} else if sawHeader {
				entry := &Entry{
					Duration: -1,
					URL:      line,
					Title:    titleFromURL(line),
				}
				if err := p.OnEntry(entry); err != nil {
					return fmt.Errorf("callback error at line %d: %w", lineNum, err)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning playlist: %w", err)
	}
	return nil
}

// ParseAll parses the whole playlist into a slice of entries. Recoverable
// line errors are reported through OnError and skipped.
func ParseAll(r io.Reader) ([]Entry, error) {
	var entries []Entry
	p := &Parser{
		OnEntry: func(entry *Entry) error {
			entries = append(entries, *entry)
			return nil
		},
	}
	if err := p.ParseCompressed(r); err != nil {
		return nil, err
	}
	return entries, nil
}

// ParseCompressed parses a potentially compressed M3U playlist.
// Compression is auto-detected from magic bytes.
func (p *Parser) ParseCompressed(r io.Reader) error {
	br := bufio.NewReader(r)

	header, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return fmt.Errorf("peeking header: %w", err)
	}

	var reader io.Reader = br

	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzr.Close()
		reader = gzr

	case len(header) >= 3 && header[0] == 'B' && header[1] == 'Z' && header[2] == 'h':
		reader = bzip2.NewReader(br)

	case len(header) >= 6 && header[0] == 0xfd && header[1] == '7' && header[2] == 'z' && header[3] == 'X' && header[4] == 'Z' && header[5] == 0x00:
		xzr, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		reader = xzr
	}

	return p.Parse(reader)
}

// decodeExtinf parses an EXTINF line and extracts metadata.
func (p *Parser) decodeExtinf(line string) (*Entry, error) {
	matches := extinfRegex.FindStringSubmatch(line)
	if matches == nil {
		return nil, fmt.Errorf("invalid EXTINF format")
	}

	duration, _ := strconv.Atoi(matches[1])
	remainder := matches[2]

	entry := &Entry{
		Duration: duration,
		Extra:    make(map[string]string),
	}

	// Title is everything after the last comma outside quotes.
	if idx := findTitleStart(remainder); idx >= 0 {
		entry.Title = strings.TrimSpace(remainder[idx+1:])
		remainder = remainder[:idx]
	}

	for _, match := range attrRegex.FindAllStringSubmatch(remainder, -1) {
		key := strings.ToLower(match[1])
		value := match[2]
		if value == "" {
			value = match[3]
		}

		switch key {
		case "tvg-id":
			entry.TvgID = value
		case "tvg-name":
			entry.TvgName = value
		case "tvg-logo":
			entry.TvgLogo = value
		case "group-title":
			entry.GroupTitle = value
		case "tvg-chno":
			entry.ChannelNumber, _ = strconv.Atoi(value)
		default:
			entry.Extra[key] = value
		}
	}

	return entry, nil
}

// findTitleStart finds the index of the comma that separates attributes from
// the title, ignoring commas inside quoted values.
func findTitleStart(s string) int {
	inQuotes := false
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '"' {
			inQuotes = !inQuotes
		}
		if s[i] == ',' && !inQuotes {
			return i
		}
	}
	return -1
}

// titleFromURL derives a title from a bare URL line.
func titleFromURL(url string) string {
	parts := strings.Split(url, "/")
	if len(parts) > 0 {
		filename := parts[len(parts)-1]
		if idx := strings.Index(filename, "?"); idx > 0 {
			filename = filename[:idx]
		}
		if idx := strings.LastIndex(filename, "."); idx > 0 {
			filename = filename[:idx]
		}
		if filename != "" {
			return filename
		}
	}
	return "Unknown"
}

// handleError calls the OnError callback if set.
func (p *Parser) handleError(lineNum int, err error) {
	if p.OnError != nil {
		p.OnError(lineNum, err)
	}
}
