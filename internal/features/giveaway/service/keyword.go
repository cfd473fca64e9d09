package service

import "strings"

// MatchesKeyword reports whether keyword occurs in message, ignoring case.
// An empty keyword never matches.
func MatchesKeyword(message, keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(message), keyword)
}
