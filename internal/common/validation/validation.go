package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxStreamURLLength = 500
	MaxKeywordLength   = 100
	MaxUsernameLength  = 100
	MaxChannelLength   = 100
)

// Required checks that value is non-blank and at most max runes long.
// Surrounding whitespace is ignored.
func Required(field, value string, max int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s cannot exceed %d characters", field, max)
	}
	return nil
}

func ValidateStreamURL(url string) error {
	return Required("stream_url", url, MaxStreamURLLength)
}

func ValidateKeyword(keyword string) error {
	return Required("keyword", keyword, MaxKeywordLength)
}

func ValidateUsername(username string) error {
	return Required("username", username, MaxUsernameLength)
}

func ValidateChannel(channel string) error {
	return Required("channel", channel, MaxChannelLength)
}

// Optional is Required for fields that may be left empty.
func Optional(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return Required(field, value, max)
}
