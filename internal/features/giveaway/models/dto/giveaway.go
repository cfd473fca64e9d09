package dto

import (
	"time"

	"twitch-giveaway-backend/internal/features/giveaway/models"
)

// GiveawayCreateRequest is the body of POST /api/giveaway.
type GiveawayCreateRequest struct {
	StreamURL   string `json:"stream_url" binding:"required,max=500"`
	ChannelName string `json:"channel_name" binding:"max=100"`
	Keyword     string `json:"keyword" binding:"required,max=100"`
}

// ChatMessageRequest is the body of POST /api/chat/message.
type ChatMessageRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Message  string `json:"message" binding:"required,max=2000"`
	Channel  string `json:"channel" binding:"required,max=100"`
	Keyword  string `json:"keyword" binding:"max=100"`
}

// ToEvent converts the request into the transport-neutral chat event.
func (r ChatMessageRequest) ToEvent() models.ChatEvent {
	return models.ChatEvent{
		Username: r.Username,
		Message:  r.Message,
		Channel:  r.Channel,
		Keyword:  r.Keyword,
	}
}

// ChatIngestResponse reports what happened to one chat event.
type ChatIngestResponse struct {
	Outcome    string              `json:"outcome"`
	Registered bool                `json:"registered"`
	IsKeyword  bool                `json:"is_keyword"`
	GiveawayID string              `json:"giveaway_id,omitempty"`
	Message    *models.ChatMessage `json:"message,omitempty"`
	Reason     string              `json:"reason,omitempty"`
}

// ParticipantResponse is returned by the manual registration endpoint.
type ParticipantResponse struct {
	Registered bool   `json:"registered"`
	Message    string `json:"message"`
}

// WinnerResponse is returned by POST /api/giveaway/:id/winner.
type WinnerResponse struct {
	Winner string `json:"winner"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ClearParticipantsResponse reports how many participant records were removed.
type ClearParticipantsResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

// HealthResponse is returned by the health and readiness probes.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
