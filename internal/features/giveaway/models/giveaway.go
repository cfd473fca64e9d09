package models

import "time"

// Giveaway is a keyword contest scoped to one stream channel.
//
// ParticipantsCount is denormalized: it always equals the number of
// Participant records whose GiveawayID is this giveaway's ID.
type Giveaway struct {
	ID                string    `json:"id" bson:"id"`
	StreamURL         string    `json:"stream_url" bson:"stream_url"`
	ChannelName       string    `json:"channel_name" bson:"channel_name"`
	Keyword           string    `json:"keyword" bson:"keyword"`
	IsActive          bool      `json:"is_active" bson:"is_active"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
	Winner            string    `json:"winner" bson:"winner"`
	ParticipantsCount int64     `json:"participants_count" bson:"participants_count"`
}

// HasWinner reports whether a winner has been drawn.
func (g *Giveaway) HasWinner() bool {
	return g.Winner != ""
}

// GiveawayStats is the per-channel summary of the active giveaway.
type GiveawayStats struct {
	Giveaway *Giveaway `json:"giveaway"`
	// ParticipantsRecorded is the number of participant records actually
	// stored. It differs from Giveaway.ParticipantsCount only while a
	// registration is in flight.
	ParticipantsRecorded int64 `json:"participants_recorded"`
}
