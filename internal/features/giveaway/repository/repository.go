package repository

import (
	"context"
	"errors"

	"twitch-giveaway-backend/internal/features/giveaway/models"
)

var (
	ErrGiveawayNotFound     = errors.New("giveaway not found")
	ErrDuplicateParticipant = errors.New("participant already registered")
	// ErrUnavailable marks a store call that timed out, was refused, or was
	// short-circuited by the breaker. It is retryable.
	ErrUnavailable = errors.New("store unavailable")
)

// Repository is the store adapter shared by every giveaway component.
// Update methods return ErrGiveawayNotFound when no record has the given id.
type Repository interface {
	Ping(ctx context.Context) error

	CreateGiveaway(ctx context.Context, g *models.Giveaway) error
	GetGiveaway(ctx context.Context, id string) (*models.Giveaway, error)
	// LatestActive returns the most recently created active giveaway for
	// channel, or for any channel when channel is empty. It returns nil and
	// no error when there is none.
	LatestActive(ctx context.Context, channel string) (*models.Giveaway, error)
	ListActive(ctx context.Context) ([]*models.Giveaway, error)
	SetActive(ctx context.Context, id string, active bool) error
	// SetWinner records the winner and clears the active flag.
	SetWinner(ctx context.Context, id, winner string) error

	// AddParticipant stores p and increments its giveaway's counter as one
	// atomic store-side operation. Nothing is written when the giveaway is
	// missing (ErrGiveawayNotFound) or (p.GiveawayID, p.Username) is already
	// taken (ErrDuplicateParticipant).
	AddParticipant(ctx context.Context, p *models.Participant) error
	// ClearParticipants deletes every participant of a giveaway, zeroes its
	// counter and clears its winner atomically. It returns the number of
	// records deleted, or ErrGiveawayNotFound. The active flag is left alone.
	ClearParticipants(ctx context.Context, giveawayID string) (int64, error)
	// ListParticipants returns participants in join order.
	ListParticipants(ctx context.Context, giveawayID string) ([]*models.Participant, error)
	CountParticipants(ctx context.Context, giveawayID string) (int64, error)

	AppendMessage(ctx context.Context, m *models.ChatMessage) error
	// ListMessages returns the newest limit messages of a giveaway in
	// chronological order. limit <= 0 returns all of them.
	ListMessages(ctx context.Context, giveawayID string, limit int) ([]*models.ChatMessage, error)

	// Clear removes every giveaway, participant and chat message.
	Clear(ctx context.Context) error
}
