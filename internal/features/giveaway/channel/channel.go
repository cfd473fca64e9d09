// Package channel turns stream URLs and user input into channel identifiers.
package channel

import (
	"regexp"
	"strings"
)

// Unknown is the channel name used when nothing usable was supplied.
const Unknown = "unknown"

var (
	urlPattern    = regexp.MustCompile(`twitch\.tv/(\w+)/?$`)
	handlePattern = regexp.MustCompile(`^\w+$`)
)

// Extract returns the lowercase channel handle from a stream URL such as
// "https://www.twitch.tv/Foo/" or from a bare handle such as "bar123".
// ok is false when the input is neither.
func Extract(input string) (name string, ok bool) {
	input = strings.TrimSpace(input)
	if m := urlPattern.FindStringSubmatch(input); m != nil {
		return strings.ToLower(m[1]), true
	}
	if handlePattern.MatchString(input) {
		return strings.ToLower(input), true
	}
	return "", false
}

// Resolve picks the channel for a new giveaway: the handle extracted from
// streamURL, then the normalized hint, then Unknown.
func Resolve(streamURL, hint string) string {
	if name, ok := Extract(streamURL); ok {
		return name
	}
	if name, ok := Extract(hint); ok {
		return name
	}
	if name := Normalize(hint); name != "" {
		return name
	}
	return Unknown
}

// Normalize canonicalizes a channel name coming from chat transports,
// where it may carry an IRC "#" prefix or mixed case.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "#")
	return strings.ToLower(name)
}
