package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"twitch-giveaway-backend/internal/common/metrics"
	"twitch-giveaway-backend/internal/features/giveaway/models"
)

// GuardSettings tunes the timeout and breaker wrapped around a store.
type GuardSettings struct {
	Timeout     time.Duration
	MaxRequests uint32
	Interval    time.Duration
	OpenTimeout time.Duration
	// TripAfter consecutive infrastructure failures open the breaker.
	TripAfter uint32
}

func DefaultGuardSettings(timeout time.Duration) GuardSettings {
	return GuardSettings{
		Timeout:     timeout,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		OpenTimeout: 10 * time.Second,
		TripAfter:   5,
	}
}

// Guard bounds every call to the wrapped Repository with a timeout and a
// circuit breaker. Infrastructure failures come back wrapped in
// ErrUnavailable; domain errors pass through untouched.
type Guard struct {
	next    Repository
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  zerolog.Logger
}

var _ Repository = (*Guard)(nil)

func NewGuard(next Repository, settings GuardSettings, logger zerolog.Logger) *Guard {
	g := &Guard{
		next:    next,
		timeout: settings.Timeout,
		logger:  logger.With().Str("component", "store_guard").Logger(),
	}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "store",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.TripAfter
		},
		// A caller giving up says nothing about the store's health.
		IsSuccessful: func(err error) bool {
			return err == nil || isDomainError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return g
}

// State exposes the breaker state for readiness reporting.
func (g *Guard) State() gobreaker.State {
	return g.cb.State()
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrGiveawayNotFound) || errors.Is(err, ErrDuplicateParticipant)
}

func guarded[T any](ctx context.Context, g *Guard, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	parent := ctx
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	metrics.StoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		if isDomainError(err) {
			return zero, err
		}
		if errors.Is(err, context.Canceled) && parent.Err() != nil {
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
		g.logger.Error().Err(err).Str("operation", op).Msg("store call failed")
		return zero, fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}

	if res == nil {
		return zero, nil
	}
	return res.(T), nil
}

func guardedErr(ctx context.Context, g *Guard, op string, fn func(ctx context.Context) error) error {
	_, err := guarded(ctx, g, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (g *Guard) Ping(ctx context.Context) error {
	return guardedErr(ctx, g, "ping", g.next.Ping)
}

func (g *Guard) CreateGiveaway(ctx context.Context, gw *models.Giveaway) error {
	return guardedErr(ctx, g, "create_giveaway", func(ctx context.Context) error {
		return g.next.CreateGiveaway(ctx, gw)
	})
}

func (g *Guard) GetGiveaway(ctx context.Context, id string) (*models.Giveaway, error) {
	return guarded(ctx, g, "get_giveaway", func(ctx context.Context) (*models.Giveaway, error) {
		return g.next.GetGiveaway(ctx, id)
	})
}

func (g *Guard) LatestActive(ctx context.Context, channel string) (*models.Giveaway, error) {
	return guarded(ctx, g, "latest_active", func(ctx context.Context) (*models.Giveaway, error) {
		return g.next.LatestActive(ctx, channel)
	})
}

func (g *Guard) ListActive(ctx context.Context) ([]*models.Giveaway, error) {
	return guarded(ctx, g, "list_active", g.next.ListActive)
}

func (g *Guard) SetActive(ctx context.Context, id string, active bool) error {
	return guardedErr(ctx, g, "set_active", func(ctx context.Context) error {
		return g.next.SetActive(ctx, id, active)
	})
}

func (g *Guard) SetWinner(ctx context.Context, id, winner string) error {
	return guardedErr(ctx, g, "set_winner", func(ctx context.Context) error {
		return g.next.SetWinner(ctx, id, winner)
	})
}

func (g *Guard) AddParticipant(ctx context.Context, p *models.Participant) error {
	return guardedErr(ctx, g, "add_participant", func(ctx context.Context) error {
		return g.next.AddParticipant(ctx, p)
	})
}

func (g *Guard) ClearParticipants(ctx context.Context, giveawayID string) (int64, error) {
	return guarded(ctx, g, "clear_participants", func(ctx context.Context) (int64, error) {
		return g.next.ClearParticipants(ctx, giveawayID)
	})
}

func (g *Guard) ListParticipants(ctx context.Context, giveawayID string) ([]*models.Participant, error) {
	return guarded(ctx, g, "list_participants", func(ctx context.Context) ([]*models.Participant, error) {
		return g.next.ListParticipants(ctx, giveawayID)
	})
}

func (g *Guard) CountParticipants(ctx context.Context, giveawayID string) (int64, error) {
	return guarded(ctx, g, "count_participants", func(ctx context.Context) (int64, error) {
		return g.next.CountParticipants(ctx, giveawayID)
	})
}

func (g *Guard) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	return guardedErr(ctx, g, "append_message", func(ctx context.Context) error {
		return g.next.AppendMessage(ctx, m)
	})
}

func (g *Guard) ListMessages(ctx context.Context, giveawayID string, limit int) ([]*models.ChatMessage, error) {
	return guarded(ctx, g, "list_messages", func(ctx context.Context) ([]*models.ChatMessage, error) {
		return g.next.ListMessages(ctx, giveawayID, limit)
	})
}

func (g *Guard) Clear(ctx context.Context) error {
	return guardedErr(ctx, g, "clear", g.next.Clear)
}
