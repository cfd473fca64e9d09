package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"twitch-giveaway-backend/internal/common/metrics"
	"twitch-giveaway-backend/internal/common/validation"
	"twitch-giveaway-backend/internal/features/giveaway/channel"
	"twitch-giveaway-backend/internal/features/giveaway/models"
	"twitch-giveaway-backend/internal/features/giveaway/repository"
)

// Chat sources, used as the "source" metrics label.
const (
	SourceHTTP      = "http"
	SourceIRC       = "irc"
	SourceStream    = "stream"
	SourceSimulator = "simulator"
)

type Outcome string

const (
	OutcomeRegistered        Outcome = "registered"
	OutcomeAlreadyRegistered Outcome = "already_registered"
	OutcomeNoMatch           Outcome = "no_match"
	OutcomeNoActiveGiveaway  Outcome = "no_active_giveaway"
	outcomeError             Outcome = "error"
)

// IngestResult describes what a single chat event did.
type IngestResult struct {
	Outcome    Outcome
	GiveawayID string
	Message    *models.ChatMessage
}

func (r *IngestResult) Registered() bool {
	return r.Outcome == OutcomeRegistered
}

func (r *IngestResult) IsKeyword() bool {
	return r.Outcome != OutcomeNoMatch && r.Outcome != OutcomeNoActiveGiveaway
}

// Ingest processes one chat event. The giveaway is always resolved from the
// event's channel; when none is active ErrNoActiveGiveaway is returned and
// nothing is written. An empty event keyword falls back to the giveaway's.
func (s *Service) Ingest(ctx context.Context, source string, event models.ChatEvent) (*IngestResult, error) {
	res, err := s.ingest(ctx, event)

	outcome := outcomeError
	switch {
	case err == nil:
		outcome = res.Outcome
	case errors.Is(err, ErrNoActiveGiveaway):
		outcome = OutcomeNoActiveGiveaway
	}
	metrics.ChatMessagesTotal.WithLabelValues(source, string(outcome)).Inc()

	return res, err
}

func (s *Service) ingest(ctx context.Context, event models.ChatEvent) (*IngestResult, error) {
	username := strings.TrimSpace(event.Username)
	channelName := channel.Normalize(event.Channel)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, invalid(err)
	}
	if err := validation.ValidateChannel(channelName); err != nil {
		return nil, invalid(err)
	}

	g, err := s.repo.LatestActive(ctx, channelName)
	if err != nil {
		return nil, storeError(err)
	}
	if g == nil {
		return nil, ErrNoActiveGiveaway
	}

	keyword := strings.TrimSpace(event.Keyword)
	if keyword == "" {
		keyword = g.Keyword
	}
	matched := MatchesKeyword(event.Message, keyword)

	msg := &models.ChatMessage{
		ID:         uuid.NewString(),
		Username:   username,
		Message:    event.Message,
		Timestamp:  s.now(),
		IsKeyword:  matched,
		GiveawayID: g.ID,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, storeError(err)
	}

	res := &IngestResult{Outcome: OutcomeNoMatch, GiveawayID: g.ID, Message: msg}
	if !matched {
		return res, nil
	}

	registered, err := s.register(ctx, g.ID, username)
	if err != nil {
		return nil, err
	}
	if registered {
		res.Outcome = OutcomeRegistered
		s.logger.Info().
			Str("giveaway_id", g.ID).
			Str("username", username).
			Msg("Participant registered")
	} else {
		res.Outcome = OutcomeAlreadyRegistered
	}
	return res, nil
}

// Register adds username to a giveaway by id, bypassing keyword matching.
// It reports false when the user had already joined.
func (s *Service) Register(ctx context.Context, id, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if err := validation.ValidateUsername(username); err != nil {
		return false, invalid(err)
	}
	if _, err := s.repo.GetGiveaway(ctx, id); err != nil {
		return false, storeError(err)
	}
	return s.register(ctx, id, username)
}

// register adds the participant and bumps the counter in one store call.
// The store's uniqueness constraint decides races; losing one is not an error.
func (s *Service) register(ctx context.Context, giveawayID, username string) (bool, error) {
	p := &models.Participant{
		ID:         uuid.NewString(),
		Username:   username,
		JoinedAt:   s.now(),
		GiveawayID: giveawayID,
	}

	err := s.repo.AddParticipant(ctx, p)
	if errors.Is(err, repository.ErrDuplicateParticipant) {
		return false, nil
	}
	if err != nil {
		return false, storeError(err)
	}

	metrics.ParticipantsRegisteredTotal.Inc()
	return true, nil
}
