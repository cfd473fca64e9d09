package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"twitch-giveaway-backend/internal/common/validation"
	"twitch-giveaway-backend/internal/features/giveaway/channel"
	"twitch-giveaway-backend/internal/features/giveaway/models"
	"twitch-giveaway-backend/internal/features/giveaway/repository"
	"twitch-giveaway-backend/internal/utils/random"
)

const (
	DefaultBotName      = "TwitchBot"
	DefaultMessageLimit = 50
	MaxMessageLimit     = 500

	announceStartFormat  = "🎉 Giveaway started! Type \"%s\" to enter!"
	announceWinnerFormat = "🏆 Congratulations %s! You won!"
)

type Service struct {
	repo    repository.Repository
	picker  random.Source
	clock   clockwork.Clock
	botName string
	logger  zerolog.Logger
}

var _ GiveawayService = (*Service)(nil)

type Option func(*Service)

// WithPicker replaces the crypto/rand source used for draws and simulation.
func WithPicker(src random.Source) Option {
	return func(s *Service) { s.picker = src }
}

func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithBotName sets the author of system chat messages.
func WithBotName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.botName = name
		}
	}
}

func NewService(repo repository.Repository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		picker:  random.Crypto(),
		clock:   clockwork.NewRealClock(),
		botName: DefaultBotName,
		logger:  logger.With().Str("component", "giveaway_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// CreateInput carries the fields of a new giveaway.
type CreateInput struct {
	StreamURL   string
	ChannelName string
	Keyword     string
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Giveaway, error) {
	streamURL := strings.TrimSpace(input.StreamURL)
	keyword := strings.TrimSpace(input.Keyword)
	if err := validation.ValidateStreamURL(streamURL); err != nil {
		return nil, invalid(err)
	}
	if err := validation.ValidateKeyword(keyword); err != nil {
		return nil, invalid(err)
	}
	if err := validation.Optional("channel_name", input.ChannelName, validation.MaxChannelLength); err != nil {
		return nil, invalid(err)
	}

	g := &models.Giveaway{
		ID:          uuid.NewString(),
		StreamURL:   streamURL,
		ChannelName: channel.Resolve(streamURL, input.ChannelName),
		Keyword:     keyword,
		IsActive:    true,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateGiveaway(ctx, g); err != nil {
		return nil, storeError(err)
	}

	s.logger.Info().
		Str("giveaway_id", g.ID).
		Str("channel", g.ChannelName).
		Str("keyword", g.Keyword).
		Msg("Giveaway created")

	s.announce(ctx, g.ID, fmt.Sprintf(announceStartFormat, g.Keyword))
	return g, nil
}

// announce appends a system message. The giveaway operation that triggered
// it has already been persisted, so a failure here is only logged.
func (s *Service) announce(ctx context.Context, giveawayID, text string) {
	msg := &models.ChatMessage{
		ID:         uuid.NewString(),
		Username:   s.botName,
		Message:    text,
		Timestamp:  s.now(),
		IsSystem:   true,
		GiveawayID: giveawayID,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		s.logger.Warn().Err(err).Str("giveaway_id", giveawayID).Msg("Failed to append system message")
	}
}

// GetActive returns the newest active giveaway, optionally restricted to a
// channel. A nil giveaway with a nil error means there is none.
func (s *Service) GetActive(ctx context.Context, channelName string) (*models.Giveaway, error) {
	g, err := s.repo.LatestActive(ctx, channel.Normalize(channelName))
	if err != nil {
		return nil, storeError(err)
	}
	return g, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Giveaway, error) {
	g, err := s.repo.GetGiveaway(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return g, nil
}

func (s *Service) Stop(ctx context.Context, id string) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return storeError(err)
	}
	s.logger.Info().Str("giveaway_id", id).Msg("Giveaway stopped")
	return nil
}

// ClearParticipants removes every entrant of a giveaway and resets its
// counter and winner in one store operation. The active flag is left alone.
func (s *Service) ClearParticipants(ctx context.Context, id string) (int64, error) {
	deleted, err := s.repo.ClearParticipants(ctx, id)
	if err != nil {
		return 0, storeError(err)
	}

	s.logger.Info().Str("giveaway_id", id).Int64("deleted", deleted).Msg("Participants cleared")
	return deleted, nil
}

func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return storeError(err)
	}
	s.logger.Warn().Msg("All giveaway data cleared")
	return nil
}

func (s *Service) Participants(ctx context.Context, id string) ([]*models.Participant, error) {
	if _, err := s.repo.GetGiveaway(ctx, id); err != nil {
		return nil, storeError(err)
	}
	ps, err := s.repo.ListParticipants(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return ps, nil
}

// Messages returns the latest chat of a giveaway in chronological order.
// limit <= 0 selects DefaultMessageLimit; larger values are capped.
func (s *Service) Messages(ctx context.Context, id string, limit int) ([]*models.ChatMessage, error) {
	switch {
	case limit <= 0:
		limit = DefaultMessageLimit
	case limit > MaxMessageLimit:
		limit = MaxMessageLimit
	}

	if _, err := s.repo.GetGiveaway(ctx, id); err != nil {
		return nil, storeError(err)
	}
	msgs, err := s.repo.ListMessages(ctx, id, limit)
	if err != nil {
		return nil, storeError(err)
	}
	return msgs, nil
}

func (s *Service) Stats(ctx context.Context, channelName string) (*models.GiveawayStats, error) {
	g, err := s.repo.LatestActive(ctx, channel.Normalize(channelName))
	if err != nil {
		return nil, storeError(err)
	}
	if g == nil {
		return nil, ErrNoActiveGiveaway
	}

	n, err := s.repo.CountParticipants(ctx, g.ID)
	if err != nil {
		return nil, storeError(err)
	}
	return &models.GiveawayStats{Giveaway: g, ParticipantsRecorded: n}, nil
}

// ActiveChannels lists the distinct channels with an active giveaway, sorted.
func (s *Service) ActiveChannels(ctx context.Context) ([]string, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	seen := make(map[string]struct{}, len(active))
	channels := make([]string, 0, len(active))
	for _, g := range active {
		if _, ok := seen[g.ChannelName]; ok {
			continue
		}
		seen[g.ChannelName] = struct{}{}
		channels = append(channels, g.ChannelName)
	}
	sort.Strings(channels)
	return channels, nil
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return storeError(err)
	}
	return nil
}
