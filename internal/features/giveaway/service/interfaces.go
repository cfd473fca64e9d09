package service

import (
	"context"

	"twitch-giveaway-backend/internal/features/giveaway/models"
)

// GiveawayService is the surface the delivery layers depend on.
type GiveawayService interface {
	Create(ctx context.Context, input CreateInput) (*models.Giveaway, error)
	GetActive(ctx context.Context, channel string) (*models.Giveaway, error)
	Get(ctx context.Context, id string) (*models.Giveaway, error)
	Stop(ctx context.Context, id string) error
	ClearParticipants(ctx context.Context, id string) (int64, error)
	ClearAll(ctx context.Context) error

	Participants(ctx context.Context, id string) ([]*models.Participant, error)
	Register(ctx context.Context, id, username string) (bool, error)
	Ingest(ctx context.Context, source string, event models.ChatEvent) (*IngestResult, error)
	SelectWinner(ctx context.Context, id string) (string, error)

	Messages(ctx context.Context, id string, limit int) ([]*models.ChatMessage, error)
	Stats(ctx context.Context, channel string) (*models.GiveawayStats, error)
	ActiveChannels(ctx context.Context) ([]string, error)
	Simulate(ctx context.Context, giveawayID string) (*IngestResult, error)

	Ping(ctx context.Context) error
}

// Ingester is what chat transports need: one call per inbound event.
type Ingester interface {
	Ingest(ctx context.Context, source string, event models.ChatEvent) (*IngestResult, error)
}

// ChannelLister reports which channels currently have an active giveaway.
type ChannelLister interface {
	ActiveChannels(ctx context.Context) ([]string, error)
}
