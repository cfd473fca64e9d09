package models

import "time"

// ChatMessage is an entry in the append-only chat log.
// GiveawayID is empty for messages recorded outside of any giveaway.
type ChatMessage struct {
	ID         string    `json:"id" bson:"id"`
	Username   string    `json:"username" bson:"username"`
	Message    string    `json:"message" bson:"message"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
	IsKeyword  bool      `json:"is_keyword" bson:"is_keyword"`
	IsSystem   bool      `json:"is_system" bson:"is_system"`
	GiveawayID string    `json:"giveaway_id,omitempty" bson:"giveaway_id,omitempty"`
}

// ChatEvent is one inbound chat line, whatever transport it arrived on.
type ChatEvent struct {
	Username string `json:"username"`
	Message  string `json:"message"`
	Channel  string `json:"channel"`
	// Keyword is the token to test. Empty means "use the active giveaway's
	// configured keyword".
	Keyword string `json:"keyword"`
}
