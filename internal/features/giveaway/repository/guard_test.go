package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitch-giveaway-backend/internal/features/giveaway/models"
)

// stubRepo implements only the calls exercised below; anything else panics
// through the nil embedded interface.
type stubRepo struct {
	Repository
	getErr   error
	getDelay time.Duration
	calls    int
}

func (s *stubRepo) GetGiveaway(ctx context.Context, id string) (*models.Giveaway, error) {
	s.calls++
	if s.getDelay > 0 {
		select {
		case <-time.After(s.getDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &models.Giveaway{ID: id}, nil
}

func (s *stubRepo) AddParticipant(ctx context.Context, p *models.Participant) error {
	s.calls++
	return ErrDuplicateParticipant
}

func newTestGuard(next Repository) *Guard {
	settings := DefaultGuardSettings(50 * time.Millisecond)
	settings.TripAfter = 3
	settings.OpenTimeout = time.Hour
	return NewGuard(next, settings, zerolog.Nop())
}

func TestGuard_PassesResult(t *testing.T) {
	g := newTestGuard(&stubRepo{})

	gw, err := g.GetGiveaway(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", gw.ID)
}

func TestGuard_DomainErrorsPassThrough(t *testing.T) {
	stub := &stubRepo{getErr: ErrGiveawayNotFound}
	g := newTestGuard(stub)

	for i := 0; i < 10; i++ {
		_, err := g.GetGiveaway(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrGiveawayNotFound)
		assert.NotErrorIs(t, err, ErrUnavailable)

		err = g.AddParticipant(context.Background(), &models.Participant{})
		assert.ErrorIs(t, err, ErrDuplicateParticipant)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())
}

func TestGuard_TimeoutIsUnavailable(t *testing.T) {
	g := newTestGuard(&stubRepo{getDelay: time.Second})

	_, err := g.GetGiveaway(context.Background(), "slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrGiveawayNotFound)
}

func TestGuard_BreakerOpensAfterFailures(t *testing.T) {
	stub := &stubRepo{getErr: errors.New("connection refused")}
	g := newTestGuard(stub)

	for i := 0; i < 3; i++ {
		_, err := g.GetGiveaway(context.Background(), "x")
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	require.Equal(t, gobreaker.StateOpen, g.State())

	_, err := g.GetGiveaway(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, stub.calls, "open breaker must not reach the store")
}

func TestGuard_CallerCancellationIsNotAStoreFailure(t *testing.T) {
	stub := &stubRepo{getDelay: time.Second}
	g := newTestGuard(stub)

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := g.GetGiveaway(ctx, "gone")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State(), "cancelled calls must not trip the breaker")

	// A live caller still reaches the store.
	stub.getDelay = 0
	gw, err := g.GetGiveaway(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", gw.ID)
}
