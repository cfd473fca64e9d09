package models

import "time"

// Participant is a unique (giveaway, username) entrant. Never mutated.
type Participant struct {
	ID         string    `json:"id" bson:"id"`
	Username   string    `json:"username" bson:"username"`
	JoinedAt   time.Time `json:"joined_at" bson:"joined_at"`
	GiveawayID string    `json:"giveaway_id" bson:"giveaway_id"`
}
