package httpclient

import (
	"bytes"
	"encoding/json"
	"strings"
)

// BodyKind tags how a response body was interpreted at the transport boundary.
type BodyKind int

const (
	// KindText is an uninterpreted textual payload (playlists, error pages).
	KindText BodyKind = iota
	// KindJSON is a payload decoded as a JSON document.
	KindJSON
	// KindXML is an XML payload kept as raw text for downstream parsers.
	KindXML
)

func (k BodyKind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindXML:
		return "xml"
	default:
		return "text"
	}
}

// Body is the result of a successful fetch: the raw bytes plus the single
// interpretation chosen at the boundary. Callers switch on Kind instead of
// re-sniffing content types.
type Body struct {
	Kind BodyKind
	Raw  []byte
	// JSON holds the decoded document when Kind is KindJSON.
	JSON any
}

// Text returns the payload as a string.
func (b *Body) Text() string {
	return string(b.Raw)
}

// DecodeJSON re-decodes the raw payload into out. Usable regardless of Kind
// as long as the payload is valid JSON.
func (b *Body) DecodeJSON(out any) error {
	return json.Unmarshal(b.Raw, out)
}

// classifyBody interprets raw response bytes exactly once.
//
// Guide documents are always tagged XML so a misconfigured upstream
// Content-Type cannot reroute them. JSON declared by the server must decode;
// a declared-but-broken JSON payload degrades to text rather than failing the
// fetch. Undeclared payloads get a best-effort JSON sniff when they look like
// a JSON document.
func classifyBody(kind ResourceKind, contentType string, raw []byte) *Body {
	if kind == ResourceGuide {
		return &Body{Kind: KindXML, Raw: raw}
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		var doc any
		if err := json.Unmarshal(raw, &doc); err == nil {
			return &Body{Kind: KindJSON, Raw: raw, JSON: doc}
		}
		return &Body{Kind: KindText, Raw: raw}

	case strings.Contains(ct, "xml"):
		return &Body{Kind: KindXML, Raw: raw}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var doc any
		if err := json.Unmarshal(trimmed, &doc); err == nil {
			return &Body{Kind: KindJSON, Raw: raw, JSON: doc}
		}
	}
	return &Body{Kind: KindText, Raw: raw}
}
