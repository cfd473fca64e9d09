package twitch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"twitch-giveaway-backend/internal/features/giveaway/models"
	"twitch-giveaway-backend/internal/features/giveaway/service"
)

const defaultSyncInterval = 15 * time.Second

// Client is the subset of *twitch.Client the listener drives.
type Client interface {
	OnPrivateMessage(callback func(message twitch.PrivateMessage))
	Join(channels ...string)
	Depart(channel string)
	Connect() error
	Disconnect() error
}

type Config struct {
	// Username and OAuthToken are optional; without them the connection
	// is anonymous and read-only.
	Username     string
	OAuthToken   string
	SyncInterval time.Duration
}

// NewClient returns an authenticated client, or an anonymous one when
// credentials are missing.
func NewClient(cfg Config) *twitch.Client {
	if cfg.Username == "" || cfg.OAuthToken == "" {
		return twitch.NewAnonymousClient()
	}
	return twitch.NewClient(cfg.Username, cfg.OAuthToken)
}

// Listener feeds Twitch chat into the ingester. It keeps the set of joined
// channels equal to the channels with an active giveaway.
type Listener struct {
	client   Client
	ingester service.Ingester
	channels service.ChannelLister
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	joined map[string]struct{}
}

func NewListener(client Client, ingester service.Ingester, channels service.ChannelLister, interval time.Duration, logger zerolog.Logger) *Listener {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &Listener{
		client:   client,
		ingester: ingester,
		channels: channels,
		interval: interval,
		logger:   logger.With().Str("component", "twitch_irc").Logger(),
		joined:   make(map[string]struct{}),
	}
}

// Run connects and blocks until ctx is cancelled or the connection fails
// permanently.
func (l *Listener) Run(ctx context.Context) error {
	l.client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		l.handleMessage(ctx, msg)
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.logger.Info().Msg("Connecting to Twitch IRC")
		err := l.client.Connect()
		if errors.Is(err, twitch.ErrClientDisconnected) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			l.Sync(ctx)
			select {
			case <-ctx.Done():
				if err := l.client.Disconnect(); err != nil && !errors.Is(err, twitch.ErrConnectionIsNotOpen) {
					l.logger.Warn().Err(err).Msg("Twitch IRC disconnect failed")
				}
				return nil
			case <-ticker.C:
			}
		}
	})

	return g.Wait()
}

// Sync joins channels that gained an active giveaway and departs the ones
// that lost it. Lookup failures leave the current set untouched.
func (l *Listener) Sync(ctx context.Context) {
	want, err := l.channels.ActiveChannels(ctx)
	if err != nil {
		if ctx.Err() == nil {
			l.logger.Warn().Err(err).Msg("Failed to list active channels")
		}
		return
	}

	wanted := make(map[string]struct{}, len(want))
	for _, ch := range want {
		wanted[ch] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var join []string
	for ch := range wanted {
		if _, ok := l.joined[ch]; !ok {
			join = append(join, ch)
			l.joined[ch] = struct{}{}
		}
	}
	if len(join) > 0 {
		sort.Strings(join)
		l.client.Join(join...)
		l.logger.Info().Strs("channels", join).Msg("Joined channels")
	}

	for ch := range l.joined {
		if _, ok := wanted[ch]; !ok {
			l.client.Depart(ch)
			delete(l.joined, ch)
			l.logger.Info().Str("channel", ch).Msg("Departed channel")
		}
	}
}

// Joined returns the channels currently joined, sorted.
func (l *Listener) Joined() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, 0, len(l.joined))
	for ch := range l.joined {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

func (l *Listener) handleMessage(ctx context.Context, msg twitch.PrivateMessage) {
	username := msg.User.Name
	if username == "" {
		username = msg.User.DisplayName
	}

	_, err := l.ingester.Ingest(ctx, service.SourceIRC, models.ChatEvent{
		Username: username,
		Message:  msg.Message,
		Channel:  msg.Channel,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNoActiveGiveaway):
		// Giveaway ended since the last sync.
		l.logger.Debug().Str("channel", msg.Channel).Msg("Dropped message for inactive channel")
	default:
		l.logger.Warn().Err(err).
			Str("channel", msg.Channel).
			Str("username", username).
			Msg("Failed to ingest chat message")
	}
}
