package epg

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	bracketRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	nonAlnum  = regexp.MustCompile(`[^a-z0-9]+`)

	// qualityTokens are stripped as whole tokens after collapsing; they name
	// the feed variant, not the channel.
	qualityTokens = map[string]bool{
		"hd": true, "sd": true, "fhd": true, "uhd": true,
		"4k": true, "8k": true, "fullhd": true, "alt": true,
	}
	resolutionRe = regexp.MustCompile(`^\d+p$`)

	diacriticStripper = transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
)

// NormalizeName reduces a channel name to a canonical comparison form:
// lowercase, bracketed segments and quality tokens removed, "+" read as
// "mais" and "&" as "e" (Brazilian guide convention), diacritics stripped,
// non-alphanumeric runs collapsed to single spaces.
func NormalizeName(name string) string {
	s := strings.ToLower(name)
	s = bracketRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "+", " mais ")
	s = strings.ReplaceAll(s, "&", " e ")

	if stripped, _, err := transform.String(diacriticStripper, s); err == nil {
		s = stripped
	}

	s = nonAlnum.ReplaceAllString(s, " ")

	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if qualityTokens[f] || resolutionRe.MatchString(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// NormalizeTimestamp converts a raw XMLTV timestamp ("YYYYMMDDHHMMSS ±HHMM",
// seconds and offset optional) into RFC 3339. The transform is pure and
// idempotent: an already-normalized timestamp is returned unchanged, and an
// unrecognized one is returned as-is. Every comparison of guide times against
// "now" or against each other must go through this same normalization.
func NormalizeTimestamp(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return s
	}

	var digits, offset string
	if i := strings.IndexAny(s, " +-"); i > 0 {
		digits = s[:i]
		offset = strings.TrimSpace(s[i:])
	} else {
		digits = s
	}

	for _, r := range digits {
		if r < '0' || r > '9' {
			return raw
		}
	}

	switch len(digits) {
	case 14:
	case 12:
		digits += "00"
	default:
		return raw
	}

	tz := "+00:00"
	if len(offset) == 5 && (offset[0] == '+' || offset[0] == '-') {
		tz = offset[:3] + ":" + offset[3:]
	}

	return fmt.Sprintf("%s-%s-%sT%s:%s:%s%s",
		digits[0:4], digits[4:6], digits[6:8],
		digits[8:10], digits[10:12], digits[12:14], tz)
}

// ParseTimestamp parses a raw or normalized guide timestamp to an instant.
func ParseTimestamp(raw string) (time.Time, error) {
	normalized := NormalizeTimestamp(raw)
	if normalized == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := time.Parse(time.RFC3339, normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q: %w", raw, err)
	}
	return t, nil
}
