package service

import (
	"context"
	"errors"
	"fmt"

	"twitch-giveaway-backend/internal/common/metrics"
)

// SelectWinner draws one participant uniformly at random, records them as
// the winner and closes the giveaway. An empty giveaway yields
// ErrNoParticipants and is left untouched.
func (s *Service) SelectWinner(ctx context.Context, id string) (string, error) {
	winner, err := s.selectWinner(ctx, id)

	result := "winner"
	switch {
	case errors.Is(err, ErrNoParticipants):
		result = "no_participants"
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	metrics.DrawsTotal.WithLabelValues(result).Inc()

	return winner, err
}

func (s *Service) selectWinner(ctx context.Context, id string) (string, error) {
	if _, err := s.repo.GetGiveaway(ctx, id); err != nil {
		return "", storeError(err)
	}

	participants, err := s.repo.ListParticipants(ctx, id)
	if err != nil {
		return "", storeError(err)
	}
	if len(participants) == 0 {
		return "", ErrNoParticipants
	}

	idx, err := s.picker.Intn(len(participants))
	if err != nil {
		return "", fmt.Errorf("failed to draw winner: %w", err)
	}
	winner := participants[idx].Username

	if err := s.repo.SetWinner(ctx, id, winner); err != nil {
		return "", storeError(err)
	}

	s.logger.Info().
		Str("giveaway_id", id).
		Str("winner", winner).
		Int("participants", len(participants)).
		Msg("Winner selected")

	s.announce(ctx, id, fmt.Sprintf(announceWinnerFormat, winner))
	return winner, nil
}
