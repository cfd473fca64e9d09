package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequired(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{"ok", "!join", ""},
		{"padded", "  !join  ", ""},
		{"empty", "", "keyword is required"},
		{"blank", " \t ", "keyword is required"},
		{"at limit", strings.Repeat("k", MaxKeywordLength), ""},
		{"too long", strings.Repeat("k", MaxKeywordLength+1), "cannot exceed 100"},
		{"runes not bytes", strings.Repeat("é", MaxKeywordLength), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKeyword(tt.value)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOptional(t *testing.T) {
	assert.NoError(t, Optional("channel_name", "", MaxChannelLength))
	assert.NoError(t, Optional("channel_name", "alpha", MaxChannelLength))
	assert.Error(t, Optional("channel_name", strings.Repeat("a", MaxChannelLength+1), MaxChannelLength))
}

func TestFieldNames(t *testing.T) {
	assert.EqualError(t, ValidateStreamURL(""), "stream_url is required")
	assert.EqualError(t, ValidateUsername(""), "username is required")
	assert.EqualError(t, ValidateChannel(""), "channel is required")
}
