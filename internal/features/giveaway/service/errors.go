package service

import (
	"context"
	"errors"
	"fmt"

	"twitch-giveaway-backend/internal/features/giveaway/repository"
)

// Custom errors for giveaway service
var (
	ErrNotFound         = errors.New("giveaway not found")
	ErrNoActiveGiveaway = errors.New("no active giveaway for channel")
	ErrNoParticipants   = errors.New("no participants to choose from")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrValidation       = errors.New("validation failed")
)

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// storeError maps a repository error onto the service taxonomy. Anything
// that is not a known domain condition or the caller cancelling is treated
// as the store failing.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrGiveawayNotFound):
		return ErrNotFound
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}
