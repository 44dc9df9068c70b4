package m3u

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="espn.br" tvg-name="ESPN" tvg-logo="http://logos/espn.png" group-title="Sports",ESPN
http://host:8080/live/user/pass/101.ts
#EXTINF:-1 tvg-id="hbo.br" group-title="Movies | VOD",HBO
http://host:8080/movie/user/pass/202.mp4
#EXTINF:3600 tvg-name="Doc, The",The Documentary
http://host:8080/series/user/pass/303.mkv
`

func parseAll(t *testing.T, doc string) []Entry {
	t.Helper()
	entries, err := ParseAll(strings.NewReader(doc))
	require.NoError(t, err)
	return entries
}

func TestParser_Attributes(t *testing.T) {
	entries := parseAll(t, samplePlaylist)
	require.Len(t, entries, 3)

	assert.Equal(t, "espn.br", entries[0].TvgID)
	assert.Equal(t, "ESPN", entries[0].TvgName)
	assert.Equal(t, "http://logos/espn.png", entries[0].TvgLogo)
	assert.Equal(t, "Sports", entries[0].GroupTitle)
	assert.Equal(t, "ESPN", entries[0].Title)
	assert.Equal(t, -1, entries[0].Duration)
	assert.Equal(t, "http://host:8080/live/user/pass/101.ts", entries[0].URL)

	assert.Equal(t, "Movies | VOD", entries[1].GroupTitle)

	assert.Equal(t, 3600, entries[2].Duration)
	assert.Equal(t, "The Documentary", entries[2].Title,
		"comma inside a quoted attribute must not split the title")
	assert.Equal(t, "Doc, The", entries[2].TvgName)
}

func TestParser_ExtraAttributesPreserved(t *testing.T) {
	doc := "#EXTM3U\n#EXTINF:-1 tvg-id=\"a\" catchup=\"shift\" catchup-days=\"7\",A\nhttp://x/1.ts\n"
	entries := parseAll(t, doc)
	require.Len(t, entries, 1)
	assert.Equal(t, map[string]string{"catchup": "shift", "catchup-days": "7"}, entries[0].Extra)
}

func TestParser_BareURLAfterHeader(t *testing.T) {
	entries := parseAll(t, "#EXTM3U\nhttp://host/stream/abc.ts\n")
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0].Title)
	assert.Equal(t, -1, entries[0].Duration)
}

func TestParser_ChannelNumber(t *testing.T) {
	entries := parseAll(t, "#EXTM3U\n#EXTINF:-1 tvg-chno=\"42\",C\nhttp://x/1.ts\n")
	require.Len(t, entries, 1)
	assert.Equal(t, 42, entries[0].ChannelNumber)
}

func TestParser_InvalidExtinfReported(t *testing.T) {
	var badLines []int
	p := &Parser{
		OnEntry: func(*Entry) error { return nil },
		OnError: func(lineNum int, err error) { badLines = append(badLines, lineNum) },
	}
	err := p.Parse(strings.NewReader("#EXTM3U\n#EXTINF:abc,Broken\nhttp://x/1.ts\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, badLines)
}

func TestParseCompressed_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(samplePlaylist))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	entries, err := ParseAll(&buf)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestParseCompressed_Bzip2(t *testing.T) {
	var buf bytes.Buffer
	bw, err := bzip2.NewWriter(&buf, nil)
	require.NoError(t, err)
	_, err = bw.Write([]byte(samplePlaylist))
	require.NoError(t, err)
	require.NoError(t, bw.Close())

	entries, err := ParseAll(&buf)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestParseCompressed_Xz(t *testing.T) {
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = xw.Write([]byte(samplePlaylist))
	require.NoError(t, err)
	require.NoError(t, xw.Close())

	entries, err := ParseAll(&buf)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestLooksLikePlaylist(t *testing.T) {
	assert.True(t, LooksLikePlaylist([]byte("#EXTM3U\n")))
	assert.True(t, LooksLikePlaylist([]byte("\xef\xbb\xbf#EXTM3U url-tvg=\"http://x\"\n")))
	assert.True(t, LooksLikePlaylist([]byte("\n  #EXTM3U\n")))
	assert.False(t, LooksLikePlaylist([]byte(`{"user_info":{}}`)))
	assert.False(t, LooksLikePlaylist([]byte("<html>not found</html>")))
}

func TestGenerate_RoundTrip(t *testing.T) {
	entries := []Entry{
		{
			Duration:   -1,
			TvgID:      "espn.br",
			TvgName:    "ESPN",
			TvgLogo:    "http://logos/espn.png",
			GroupTitle: "Sports",
			Title:      "ESPN",
			URL:        "http://host:8080/live/user/pass/101.ts",
		},
		{
			Duration:      -1,
			TvgID:         "hbo.br",
			GroupTitle:    "Movies",
			ChannelNumber: 7,
			Title:         "HBO",
			URL:           "http://host:8080/movie/user/pass/202.mp4",
			Extra:         map[string]string{"catchup": "shift", "catchup-days": "7"},
		},
	}

	doc, err := Generate(entries)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(doc, "#EXTM3U\n"))

	reparsed, err := ParseAll(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, reparsed, len(entries))
	for i := range entries {
		assert.Equal(t, entries[i].TvgID, reparsed[i].TvgID)
		assert.Equal(t, entries[i].GroupTitle, reparsed[i].GroupTitle)
		assert.Equal(t, entries[i].Title, reparsed[i].Title)
		assert.Equal(t, entries[i].URL, reparsed[i].URL)
		assert.Equal(t, entries[i].ChannelNumber, reparsed[i].ChannelNumber)
	}

	// Canonical documents are fixed points: generate(parse(doc)) == doc.
	doc2, err := Generate(reparsed)
	require.NoError(t, err)
	assert.Equal(t, doc, doc2)
}

func TestGenerate_ZeroDurationBecomesLive(t *testing.T) {
	doc, err := Generate([]Entry{{Title: "C", URL: "http://x/1.ts"}})
	require.NoError(t, err)
	assert.Contains(t, doc, "#EXTINF:-1,C")
}
