package xtream

import (
	"encoding/json"
	"strconv"
	"time"
)

// AuthInfo is the combined account and server payload returned by the bare
// player_api.php endpoint.
type AuthInfo struct {
	UserInfo   UserInfo   `json:"user_info"`
	ServerInfo ServerInfo `json:"server_info"`
}

// UserInfo contains account details.
type UserInfo struct {
	Username             string   `json:"username"`
	Password             string   `json:"password"`
	Message              string   `json:"message"`
	Auth                 FlexInt  `json:"auth"`
	Status               string   `json:"status"`
	ExpDate              FlexInt  `json:"exp_date"`
	IsTrial              FlexInt  `json:"is_trial"`
	ActiveConnections    FlexInt  `json:"active_cons"`
	MaxConnections       FlexInt  `json:"max_connections"`
	AllowedOutputFormats []string `json:"allowed_output_formats"`
}

// IsAuthenticated reports whether the panel accepted the credentials.
func (u *UserInfo) IsAuthenticated() bool {
	return u.Auth.Int() == 1 && u.Status == "Active"
}

// ExpirationTime returns the account expiry, or the zero time when the panel
// reports none.
func (u *UserInfo) ExpirationTime() time.Time {
	if u.ExpDate.Int() == 0 {
		return time.Time{}
	}
	return time.Unix(u.ExpDate.Int(), 0)
}

// ServerInfo contains panel endpoint details.
type ServerInfo struct {
	URL            string  `json:"url"`
	Port           FlexInt `json:"port"`
	HTTPSPort      FlexInt `json:"https_port"`
	ServerProtocol string  `json:"server_protocol"`
	Timezone       string  `json:"timezone"`
	TimestampNow   FlexInt `json:"timestamp_now"`
}

// Category is a content category. Panels return category_id as either a
// string or a number depending on version.
type Category struct {
	CategoryID   FlexString `json:"category_id"`
	CategoryName string     `json:"category_name"`
	ParentID     FlexInt    `json:"parent_id"`
}

// Stream is a live channel listing.
type Stream struct {
	Num          FlexInt    `json:"num"`
	Name         string     `json:"name"`
	StreamType   string     `json:"stream_type"`
	StreamID     FlexInt    `json:"stream_id"`
	StreamIcon   string     `json:"stream_icon"`
	EPGChannelID string     `json:"epg_channel_id"`
	Added        FlexInt    `json:"added"`
	IsAdult      FlexInt    `json:"is_adult"`
	CategoryID   FlexString `json:"category_id"`
	TVArchive    FlexInt    `json:"tv_archive"`
	DirectSource string     `json:"direct_source"`
}

// VODStream is a video-on-demand listing.
type VODStream struct {
	Num                FlexInt    `json:"num"`
	Name               string     `json:"name"`
	StreamType         string     `json:"stream_type"`
	StreamID           FlexInt    `json:"stream_id"`
	StreamIcon         string     `json:"stream_icon"`
	Rating             FlexFloat  `json:"rating"`
	Added              FlexInt    `json:"added"`
	IsAdult            FlexInt    `json:"is_adult"`
	CategoryID         FlexString `json:"category_id"`
	ContainerExtension string     `json:"container_extension"`
	DirectSource       string     `json:"direct_source"`
}

// Series is a series listing.
type Series struct {
	Num          FlexInt    `json:"num"`
	Name         string     `json:"name"`
	SeriesID     FlexInt    `json:"series_id"`
	Cover        string     `json:"cover"`
	Plot         string     `json:"plot"`
	Genre        string     `json:"genre"`
	ReleaseDate  string     `json:"releaseDate"`
	LastModified FlexInt    `json:"last_modified"`
	Rating       FlexFloat  `json:"rating"`
	CategoryID   FlexString `json:"category_id"`
}

// EPGListing is a single short-EPG entry.
type EPGListing struct {
	ID             FlexString `json:"id"`
	EPGId          FlexString `json:"epg_id"`
	Title          string     `json:"title"`
	Lang           string     `json:"lang"`
	Start          string     `json:"start"`
	End            string     `json:"end"`
	Description    string     `json:"description"`
	ChannelID      string     `json:"channel_id"`
	StartTimestamp FlexInt    `json:"start_timestamp"`
	StopTimestamp  FlexInt    `json:"stop_timestamp"`
	NowPlaying     FlexInt    `json:"now_playing"`
}

// EPGResponse wraps the short-EPG listings payload.
type EPGResponse struct {
	EPGListings []EPGListing `json:"epg_listings"`
}

// FlexInt tolerates panels that encode integers as strings.
type FlexInt int64

// Int returns the integer value.
func (f FlexInt) Int() int64 {
	return int64(f)
}

// String returns the decimal representation.
func (f FlexInt) String() string {
	return strconv.FormatInt(int64(f), 10)
}

// UnmarshalJSON accepts both numeric and string encodings. Unparseable
// values decode as zero rather than failing the whole listing.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			*f = FlexInt(parsed)
		} else {
			*f = 0
		}
		return nil
	}

	*f = 0
	return nil
}

// FlexFloat tolerates panels that encode floats as strings.
type FlexFloat float64

// Float returns the float value.
func (f FlexFloat) Float() float64 {
	return float64(f)
}

// UnmarshalJSON accepts both numeric and string encodings.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexFloat(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			*f = FlexFloat(parsed)
		} else {
			*f = 0
		}
		return nil
	}

	*f = 0
	return nil
}

// FlexString tolerates panels that encode identifiers as bare numbers.
type FlexString string

// String returns the string value.
func (f FlexString) String() string {
	return string(f)
}

// UnmarshalJSON accepts both string and numeric encodings.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}

	*f = ""
	return nil
}
