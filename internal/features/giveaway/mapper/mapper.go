package mapper

import (
	"twitch-giveaway-backend/internal/features/giveaway/models/dto"
	"twitch-giveaway-backend/internal/features/giveaway/service"
)

// ToChatIngestResponse maps an ingest result to its API shape.
func ToChatIngestResponse(res *service.IngestResult) dto.ChatIngestResponse {
	if res == nil {
		return NoActiveGiveawayResponse()
	}
	return dto.ChatIngestResponse{
		Outcome:    string(res.Outcome),
		Registered: res.Registered(),
		IsKeyword:  res.IsKeyword(),
		GiveawayID: res.GiveawayID,
		Message:    res.Message,
	}
}

// NoActiveGiveawayResponse is what the ingest endpoint returns when the
// channel has nothing running. The event is not recorded.
func NoActiveGiveawayResponse() dto.ChatIngestResponse {
	outcome := string(service.OutcomeNoActiveGiveaway)
	return dto.ChatIngestResponse{Outcome: outcome, Reason: outcome}
}

// ParticipantMessage is the acknowledgement text for manual registration.
func ParticipantMessage(registered bool) string {
	if registered {
		return "Participant added"
	}
	return "Participant already registered"
}
