package catalog

// StreamType classifies catalog content.
type StreamType string

const (
	TypeLive   StreamType = "live"
	TypeMovie  StreamType = "movie"
	TypeSeries StreamType = "series"
)

// Valid reports whether t is a known stream type.
func (t StreamType) Valid() bool {
	switch t {
	case TypeLive, TypeMovie, TypeSeries:
		return true
	}
	return false
}

// Category is a normalized content category. In playlist mode the ID is the
// group title itself; in Xtream mode it is the panel's category_id.
type Category struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type StreamType `json:"type"`
}

// Stream is the normalized representation of one catalog entry, produced
// fresh on every cache miss. Missing upstream fields default to zero values.
type Stream struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Type         StreamType `json:"type"`
	Icon         string     `json:"icon,omitempty"`
	CategoryID   string     `json:"category_id,omitempty"`
	EPGChannelID string     `json:"epg_channel_id,omitempty"`
	URL          string     `json:"url,omitempty"`
	Rating       float64    `json:"rating,omitempty"`
	Genre        string     `json:"genre,omitempty"`
	Plot         string     `json:"plot,omitempty"`
	ReleaseDate  string     `json:"release_date,omitempty"`
}
