// Package xmltv provides streaming XMLTV guide parsing and writing.
//
// Programme start/stop values are kept as the raw XMLTV timestamp strings
// ("YYYYMMDDHHMMSS ±HHMM"). Upstream guides disagree on whether the offset is
// present; callers that need wall-clock times parse through ParseTime.
package xmltv

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Programme is a single guide entry. Start and Stop hold the raw timestamp
// strings exactly as they appeared in the document.
type Programme struct {
	Channel     string `json:"channel"`
	Start       string `json:"start"`
	Stop        string `json:"stop"`
	Title       string `json:"title"`
	SubTitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Icon        string `json:"icon,omitempty"`
	EpisodeNum  string `json:"episode_num,omitempty"`
	Language    string `json:"language,omitempty"`
}

// Channel is a channel definition from the guide header section.
type Channel struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Icon        string `json:"icon,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Document is a fully materialized guide.
type Document struct {
	Channels   []Channel
	Programmes []Programme
}

// Parser provides streaming XMLTV parsing with callback-based processing.
type Parser struct {
	// OnChannel is called for each channel definition.
	OnChannel func(channel *Channel) error

	// OnProgramme is called for each parsed programme.
	OnProgramme func(programme *Programme) error

	// OnError is called for recoverable parsing errors.
	OnError func(err error)
}

// timeLayouts covers the timestamp shapes seen in provider guides.
var timeLayouts = []string{
	"20060102150405 -0700",
	"20060102150405",
	"200601021504",
}

// ParseTime parses a raw XMLTV timestamp. Timestamps without an explicit
// offset are interpreted as UTC.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// Parse parses an XMLTV document from a reader.
func (p *Parser) Parse(r io.Reader) error {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading XML token: %w", err)
		}

		elem, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch elem.Name.Local {
		case "channel":
			if p.OnChannel == nil {
				_ = decoder.Skip()
				continue
			}
			channel, err := p.parseChannel(decoder, elem)
			if err != nil {
				p.handleError(err)
				continue
			}
			if err := p.OnChannel(channel); err != nil {
				return fmt.Errorf("channel callback: %w", err)
			}

		case "programme":
			if p.OnProgramme == nil {
				_ = decoder.Skip()
				continue
			}
			programme, err := p.parseProgramme(decoder, elem)
			if err != nil {
				p.handleError(err)
				continue
			}
			if err := p.OnProgramme(programme); err != nil {
				return fmt.Errorf("programme callback: %w", err)
			}
		}
	}

	return nil
}

// ParseCompressed parses a potentially compressed XMLTV document.
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

// ParseAll materializes a whole guide document. Large guides are better
// served by Parse with callbacks.
func ParseAll(r io.Reader) (*Document, error) {
	doc := &Document{}
	p := &Parser{
		OnChannel: func(ch *Channel) error {
			doc.Channels = append(doc.Channels, *ch)
			return nil
		},
		OnProgramme: func(prog *Programme) error {
			doc.Programmes = append(doc.Programmes, *prog)
			return nil
		},
	}
	if err := p.ParseCompressed(r); err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *Parser) parseChannel(decoder *xml.Decoder, start xml.StartElement) (*Channel, error) {
	channel := &Channel{}

	for _, attr := range start.Attr {
		if attr.Name.Local == "id" {
			channel.ID = attr.Value
		}
	}

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "display-name":
				var name string
				if err := decoder.DecodeElement(&name, &elem); err == nil && channel.DisplayName == "" {
					channel.DisplayName = strings.TrimSpace(name)
				}
			case "icon":
				for _, attr := range elem.Attr {
					if attr.Name.Local == "src" {
						channel.Icon = attr.Value
					}
				}
				_ = decoder.Skip()
			case "url":
				var url string
				if err := decoder.DecodeElement(&url, &elem); err == nil {
					channel.URL = strings.TrimSpace(url)
				}
			default:
				_ = decoder.Skip()
			}
		case xml.EndElement:
			if elem.Name.Local == "channel" {
				return channel, nil
			}
		}
	}
}

func (p *Parser) parseProgramme(decoder *xml.Decoder, start xml.StartElement) (*Programme, error) {
	prog := &Programme{}

	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "start":
			prog.Start = strings.TrimSpace(attr.Value)
		case "stop":
			prog.Stop = strings.TrimSpace(attr.Value)
		case "channel":
			prog.Channel = attr.Value
		}
	}

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "title":
				var title string
				if err := decoder.DecodeElement(&title, &elem); err == nil && prog.Title == "" {
					prog.Title = strings.TrimSpace(title)
				}
			case "sub-title":
				var subtitle string
				if err := decoder.DecodeElement(&subtitle, &elem); err == nil {
					prog.SubTitle = strings.TrimSpace(subtitle)
				}
			case "desc":
				var desc string
				if err := decoder.DecodeElement(&desc, &elem); err == nil {
					prog.Description = strings.TrimSpace(desc)
				}
			case "category":
				var cat string
				if err := decoder.DecodeElement(&cat, &elem); err == nil && prog.Category == "" {
					prog.Category = strings.TrimSpace(cat)
				}
			case "icon":
				for _, attr := range elem.Attr {
					if attr.Name.Local == "src" {
						prog.Icon = attr.Value
					}
				}
				_ = decoder.Skip()
			case "episode-num":
				var epNum string
				if err := decoder.DecodeElement(&epNum, &elem); err == nil {
					prog.EpisodeNum = strings.TrimSpace(epNum)
				}
			case "language":
				var lang string
				if err := decoder.DecodeElement(&lang, &elem); err == nil {
					prog.Language = strings.TrimSpace(lang)
				}
			default:
				_ = decoder.Skip()
			}
		case xml.EndElement:
			if elem.Name.Local == "programme" {
				return prog, nil
			}
		}
	}
}

func (p *Parser) handleError(err error) {
	if p.OnError != nil {
		p.OnError(err)
	}
}
