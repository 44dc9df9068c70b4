package xtream

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexInt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"number", `42`, 42},
		{"string", `"42"`, 42},
		{"empty string", `""`, 0},
		{"garbage string", `"abc"`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexInt
			require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
			assert.Equal(t, tt.want, f.Int())
		})
	}
}

func TestFlexFloat(t *testing.T) {
	var f FlexFloat
	require.NoError(t, json.Unmarshal([]byte(`"4.5"`), &f))
	assert.Equal(t, 4.5, f.Float())

	require.NoError(t, json.Unmarshal([]byte(`3.2`), &f))
	assert.Equal(t, 3.2, f.Float())

	require.NoError(t, json.Unmarshal([]byte(`""`), &f))
	assert.Equal(t, 0.0, f.Float())
}

func TestFlexString(t *testing.T) {
	var f FlexString
	require.NoError(t, json.Unmarshal([]byte(`"7"`), &f))
	assert.Equal(t, "7", f.String())

	require.NoError(t, json.Unmarshal([]byte(`7`), &f))
	assert.Equal(t, "7", f.String())

	require.NoError(t, json.Unmarshal([]byte(`null`), &f))
	assert.Equal(t, "", f.String())
}

func TestUserInfo_Expiration(t *testing.T) {
	var u UserInfo
	require.NoError(t, json.Unmarshal([]byte(`{"exp_date":"1735689600","auth":1,"status":"Active"}`), &u))
	assert.Equal(t, time.Unix(1735689600, 0), u.ExpirationTime())
	assert.True(t, u.IsAuthenticated())

	u = UserInfo{}
	assert.True(t, u.ExpirationTime().IsZero())
	assert.False(t, u.IsAuthenticated())
}

func TestStream_DecodeMixedEncodings(t *testing.T) {
	raw := `{"num":"1","name":"A&E","stream_id":205,"category_id":9,"tv_archive":"1"}`
	var s Stream
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, int64(205), s.StreamID.Int())
	assert.Equal(t, "9", s.CategoryID.String())
	assert.Equal(t, int64(1), s.TVArchive.Int())
}
