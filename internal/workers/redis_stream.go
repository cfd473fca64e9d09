package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"twitch-giveaway-backend/internal/features/giveaway/models"
	"twitch-giveaway-backend/internal/features/giveaway/service"
)

const (
	defaultBlock = 5 * time.Second
	errorBackoff = time.Second
	readCount    = 32
)

// StreamClient is the subset of go-redis the worker needs.
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

type StreamConfig struct {
	Key      string
	Group    string
	Consumer string
	// Block is how long one XREADGROUP waits for new entries.
	Block time.Duration
}

// ChatStreamWorker consumes chat events that a separate bot publishes to a
// Redis stream and feeds them to the ingester. Entries are acknowledged
// once handled; ones that failed because the store was unavailable stay
// pending and are retried from the group's backlog.
type ChatStreamWorker struct {
	rdb      StreamClient
	ingester service.Ingester
	cfg      StreamConfig
	logger   zerolog.Logger
}

func NewChatStreamWorker(rdb StreamClient, ingester service.Ingester, cfg StreamConfig, logger zerolog.Logger) *ChatStreamWorker {
	if cfg.Block <= 0 {
		cfg.Block = defaultBlock
	}
	return &ChatStreamWorker{
		rdb:      rdb,
		ingester: ingester,
		cfg:      cfg,
		logger: logger.With().
			Str("component", "chat_stream").
			Str("stream", cfg.Key).
			Logger(),
	}
}

// Start blocks reading the stream until ctx is cancelled.
func (w *ChatStreamWorker) Start(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, w.cfg.Key, w.cfg.Group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}

	w.logger.Info().Str("group", w.cfg.Group).Msg("Starting chat stream worker")

	// "0" replays entries delivered to this consumer but never acked.
	cursor := "0"
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping chat stream worker")
			return nil
		default:
		}

		n, err := w.poll(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error().Err(err).Msg("Error reading from stream")
			sleep(ctx, errorBackoff)
			continue
		}
		// Backlog drained: switch to new deliveries. A retryable failure
		// sends the next round back to the backlog.
		if cursor == "0" && n == 0 {
			cursor = ">"
		}
		if n < 0 {
			cursor = "0"
			sleep(ctx, errorBackoff)
		}
	}
}

// poll reads one batch. It returns the number of entries seen, or -1 when
// at least one entry was left pending for retry.
func (w *ChatStreamWorker) poll(ctx context.Context, cursor string) (int, error) {
	args := &redis.XReadGroupArgs{
		Group:    w.cfg.Group,
		Consumer: w.cfg.Consumer,
		Streams:  []string{w.cfg.Key, cursor},
		Count:    readCount,
	}
	if cursor == ">" {
		args.Block = w.cfg.Block
	}

	streams, err := w.rdb.XReadGroup(ctx, args).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	seen, retry := 0, false
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			seen++
			if !w.process(ctx, msg) {
				retry = true
				continue
			}
			if err := w.rdb.XAck(ctx, w.cfg.Key, w.cfg.Group, msg.ID).Err(); err != nil {
				w.logger.Warn().Err(err).Str("entry_id", msg.ID).Msg("Failed to ack entry")
			}
		}
	}
	if retry {
		return -1, nil
	}
	return seen, nil
}

// process handles a single entry and reports whether it can be acked.
func (w *ChatStreamWorker) process(ctx context.Context, msg redis.XMessage) bool {
	event, err := ParseChatEvent(msg.Values)
	if err != nil {
		w.logger.Warn().Err(err).Str("entry_id", msg.ID).Msg("Dropping malformed chat event")
		return true
	}

	_, err = w.ingester.Ingest(ctx, service.SourceStream, event)
	switch {
	case err == nil:
		return true
	case errors.Is(err, service.ErrStoreUnavailable):
		w.logger.Warn().Err(err).Str("entry_id", msg.ID).Msg("Store unavailable, leaving entry pending")
		return false
	case errors.Is(err, context.Canceled):
		// Shutting down mid-entry; it is replayed on the next start.
		return false
	case errors.Is(err, service.ErrNoActiveGiveaway):
		w.logger.Debug().Str("channel", event.Channel).Msg("No active giveaway for streamed message")
		return true
	default:
		w.logger.Warn().Err(err).Str("entry_id", msg.ID).Msg("Chat event rejected")
		return true
	}
}

// ParseChatEvent decodes a stream entry. username, message and channel are
// required; keyword is optional.
func ParseChatEvent(values map[string]interface{}) (models.ChatEvent, error) {
	field := func(name string) string {
		s, _ := values[name].(string)
		return s
	}

	event := models.ChatEvent{
		Username: field("username"),
		Message:  field("message"),
		Channel:  field("channel"),
		Keyword:  field("keyword"),
	}
	for _, required := range []struct{ name, value string }{
		{"username", event.Username},
		{"message", event.Message},
		{"channel", event.Channel},
	} {
		if required.value == "" {
			return models.ChatEvent{}, fmt.Errorf("missing field %q", required.name)
		}
	}
	return event, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
