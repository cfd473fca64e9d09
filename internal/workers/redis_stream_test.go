package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitch-giveaway-backend/internal/features/giveaway/models"
	"twitch-giveaway-backend/internal/features/giveaway/service"
)

func TestParseChatEvent(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]interface{}
		want    models.ChatEvent
		wantErr string
	}{
		{
			name:   "all fields",
			values: map[string]interface{}{"username": "alice", "message": "!join", "channel": "alpha", "keyword": "!join"},
			want:   models.ChatEvent{Username: "alice", Message: "!join", Channel: "alpha", Keyword: "!join"},
		},
		{
			name:   "keyword optional",
			values: map[string]interface{}{"username": "alice", "message": "hi", "channel": "alpha"},
			want:   models.ChatEvent{Username: "alice", Message: "hi", Channel: "alpha"},
		},
		{
			name:    "missing username",
			values:  map[string]interface{}{"message": "hi", "channel": "alpha"},
			wantErr: `"username"`,
		},
		{
			name:    "missing channel",
			values:  map[string]interface{}{"username": "alice", "message": "hi"},
			wantErr: `"channel"`,
		},
		{
			name:    "non-string value",
			values:  map[string]interface{}{"username": "alice", "message": 42, "channel": "alpha"},
			wantErr: `"message"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChatEvent(tt.values)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// fakeStream serves queued batches and records acks.
type fakeStream struct {
	mu       sync.Mutex
	groupErr error
	batches  map[string][][]redis.XMessage
	cursors  []string
	acked    []string
}

func (f *fakeStream) XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd {
	return redis.NewStatusResult("OK", f.groupErr)
}

func (f *fakeStream) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	f.mu.Lock()
	cursor := a.Streams[1]
	f.cursors = append(f.cursors, cursor)
	queue := f.batches[cursor]
	var batch []redis.XMessage
	if len(queue) > 0 {
		batch, f.batches[cursor] = queue[0], queue[1:]
	}
	f.mu.Unlock()

	if batch == nil {
		if cursor == ">" {
			select {
			case <-ctx.Done():
				return redis.NewXStreamSliceCmdResult(nil, ctx.Err())
			case <-time.After(5 * time.Millisecond):
			}
			return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
		}
		return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: a.Streams[0]}}, nil)
	}
	return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: a.Streams[0], Messages: batch}}, nil)
}

func (f *fakeStream) XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func (f *fakeStream) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

type scriptedIngester struct {
	mu     sync.Mutex
	errs   map[string][]error
	events []models.ChatEvent
}

func (s *scriptedIngester) Ingest(_ context.Context, source string, event models.ChatEvent) (*service.IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if queue := s.errs[event.Username]; len(queue) > 0 {
		err := queue[0]
		s.errs[event.Username] = queue[1:]
		return nil, err
	}
	return &service.IngestResult{Outcome: service.OutcomeRegistered}, nil
}

func entry(id, user string) redis.XMessage {
	return redis.XMessage{ID: id, Values: map[string]interface{}{
		"username": user, "message": "!join", "channel": "alpha",
	}}
}

func runWorker(t *testing.T, rdb StreamClient, ing service.Ingester, until func() bool) {
	t.Helper()

	w := NewChatStreamWorker(rdb, ing, StreamConfig{Key: "chat:events", Group: "g", Consumer: "c", Block: time.Millisecond}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, until, 3*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestChatStreamWorker_AcksHandledEntries(t *testing.T) {
	rdb := &fakeStream{batches: map[string][][]redis.XMessage{
		"0": {{entry("1-0", "pending")}},
		">": {{entry("2-0", "alice"), {ID: "3-0", Values: map[string]interface{}{"username": "x"}}}},
	}}
	ing := &scriptedIngester{errs: map[string][]error{}}

	runWorker(t, rdb, ing, func() bool { return len(rdb.ackedIDs()) == 3 })

	assert.Equal(t, []string{"1-0", "2-0", "3-0"}, rdb.ackedIDs(), "malformed entries are acked too")
	require.Len(t, ing.events, 2)
	assert.Equal(t, "pending", ing.events[0].Username)
	assert.Equal(t, "alice", ing.events[1].Username)
}

func TestChatStreamWorker_RetriesWhenStoreUnavailable(t *testing.T) {
	rdb := &fakeStream{batches: map[string][][]redis.XMessage{
		">": {{entry("5-0", "bob")}},
		// Redelivered from the backlog after the first failure.
		"0": {nil, {entry("5-0", "bob")}},
	}}
	ing := &scriptedIngester{errs: map[string][]error{
		"bob": {service.ErrStoreUnavailable},
	}}

	runWorker(t, rdb, ing, func() bool { return len(rdb.ackedIDs()) == 1 })

	assert.Equal(t, []string{"5-0"}, rdb.ackedIDs())
	assert.Len(t, ing.events, 2)
}

func TestChatStreamWorker_RejectedEventsAreAcked(t *testing.T) {
	rdb := &fakeStream{batches: map[string][][]redis.XMessage{
		">": {{entry("7-0", "carol"), entry("8-0", "dave")}},
	}}
	ing := &scriptedIngester{errs: map[string][]error{
		"carol": {service.ErrNoActiveGiveaway},
		"dave":  {errors.New("validation failed")},
	}}

	runWorker(t, rdb, ing, func() bool { return len(rdb.ackedIDs()) == 2 })
	assert.Equal(t, []string{"7-0", "8-0"}, rdb.ackedIDs())
}

func TestChatStreamWorker_GroupCreation(t *testing.T) {
	w := NewChatStreamWorker(&fakeStream{groupErr: errors.New("WRONGTYPE Operation against a key")}, &scriptedIngester{}, StreamConfig{Key: "k", Group: "g"}, zerolog.Nop())
	assert.Error(t, w.Start(context.Background()))

	rdb := &fakeStream{groupErr: errors.New("BUSYGROUP Consumer Group name already exists"), batches: map[string][][]redis.XMessage{
		">": {{entry("1-0", "eve")}},
	}}
	runWorker(t, rdb, &scriptedIngester{errs: map[string][]error{}}, func() bool { return len(rdb.ackedIDs()) == 1 })
}

func TestChatStreamWorker_ProcessLeavesCancelledEntriesPending(t *testing.T) {
	ing := &scriptedIngester{errs: map[string][]error{
		"frank": {context.Canceled},
		"gina":  {service.ErrStoreUnavailable},
	}}
	w := NewChatStreamWorker(&fakeStream{}, ing, StreamConfig{Key: "k", Group: "g"}, zerolog.Nop())

	assert.False(t, w.process(context.Background(), entry("1-0", "frank")))
	assert.False(t, w.process(context.Background(), entry("2-0", "gina")))
	assert.True(t, w.process(context.Background(), entry("3-0", "hank")))
}
