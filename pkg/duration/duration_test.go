package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"standard go forms", "1h30m", 90 * time.Minute, false},
		{"milliseconds", "500ms", 500 * time.Millisecond, false},
		{"seconds", "45s", 45 * time.Second, false},
		{"fractional hours", "1.5h", 90 * time.Minute, false},

		{"days short", "30d", 30 * Day, false},
		{"days word", "30 days", 30 * Day, false},
		{"weeks short", "2w", 2 * Week, false},
		{"weeks word", "2 weeks", 2 * Week, false},
		{"wk abbreviation", "2wks", 2 * Week, false},
		{"month", "1mo", Month, false},
		{"months word", "2 months", 2 * Month, false},
		{"year", "1y", Year, false},
		{"years abbreviation", "2yrs", 2 * Year, false},

		{"mixed calendar and clock", "1w2d12h", Week + 2*Day + 12*time.Hour, false},
		{"full words with spaces", "1 week 2 days 3h", Week + 2*Day + 3*time.Hour, false},
		{"hour words", "2 hours 30 minutes", 2*time.Hour + 30*time.Minute, false},
		{"case insensitive", "30DAYS", 30 * Day, false},

		{"zero", "0s", 0, false},
		{"negative days", "-30d", -30 * Day, false},
		{"negative with space", "- 12h", -12 * time.Hour, false},

		{"empty", "", 0, true},
		{"bare dash", "-", 0, true},
		{"no unit", "42", 0, true},
		{"unknown unit", "3 fortnights", 0, true},
		{"garbage", "invalid", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d, "Parse(%q)", tt.input)
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"zero", 0, "0s"},
		{"seconds", 45 * time.Second, "45s"},
		{"minutes", 30 * time.Minute, "30m0s"},
		{"hours", 12 * time.Hour, "12h0m0s"},
		{"one day", Day, "1d"},
		{"day with remainder", 36 * time.Hour, "1d12h0m0s"},
		{"weeks and days", 9 * Day, "1w2d"},
		{"one month", Month, "1mo"},
		{"month and week", 37 * Day, "1mo1w"},
		{"year and month", Year + Month, "1y1mo"},
		{"negative days", -3 * Day, "-3d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.duration))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	durations := []time.Duration{
		0,
		time.Second,
		30 * time.Minute,
		time.Hour,
		36 * time.Hour,
		Day,
		Week,
		Month,
		Year,
		Year + Month + Week + Day + time.Hour,
	}

	for _, d := range durations {
		formatted := Format(d)
		parsed, err := Parse(formatted)
		require.NoError(t, err, "Parse(Format(%v)) with formatted=%q", d, formatted)
		assert.Equal(t, d, parsed, "round trip of %v via %q", d, formatted)
	}
}

func TestParseEquivalence(t *testing.T) {
	equivalents := [][]string{
		{"1d", "1 day", "24h"},
		{"1w", "1 week", "7d", "168h"},
		{"2w", "2 weeks", "14 days", "336h"},
		{"1mo", "1 month", "30d"},
		{"1y", "1 year", "365 days"},
		{"1d12h", "36h", "1.5d"},
	}

	for _, group := range equivalents {
		base, err := Parse(group[0])
		require.NoError(t, err)
		for _, s := range group[1:] {
			d, err := Parse(s)
			require.NoError(t, err)
			assert.Equal(t, base, d, "%q should equal %q", s, group[0])
		}
	}
}
