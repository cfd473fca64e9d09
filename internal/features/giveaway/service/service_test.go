package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitch-giveaway-backend/internal/features/giveaway/models"
	"twitch-giveaway-backend/internal/features/giveaway/repository"
	"twitch-giveaway-backend/internal/features/giveaway/repository/memory"
	"twitch-giveaway-backend/internal/utils/random"
)

// countingRepo counts successful writes on top of the in-memory store.
type countingRepo struct {
	repository.Repository
	writes atomic.Int64
}

func (c *countingRepo) count(err error) error {
	if err == nil {
		c.writes.Add(1)
	}
	return err
}

func (c *countingRepo) CreateGiveaway(ctx context.Context, g *models.Giveaway) error {
	return c.count(c.Repository.CreateGiveaway(ctx, g))
}

func (c *countingRepo) SetActive(ctx context.Context, id string, active bool) error {
	return c.count(c.Repository.SetActive(ctx, id, active))
}

func (c *countingRepo) SetWinner(ctx context.Context, id, winner string) error {
	return c.count(c.Repository.SetWinner(ctx, id, winner))
}

func (c *countingRepo) AddParticipant(ctx context.Context, p *models.Participant) error {
	return c.count(c.Repository.AddParticipant(ctx, p))
}

func (c *countingRepo) ClearParticipants(ctx context.Context, giveawayID string) (int64, error) {
	n, err := c.Repository.ClearParticipants(ctx, giveawayID)
	return n, c.count(err)
}

func (c *countingRepo) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	return c.count(c.Repository.AppendMessage(ctx, m))
}

func (c *countingRepo) Clear(ctx context.Context) error {
	return c.count(c.Repository.Clear(ctx))
}

var testNow = time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	repo  *countingRepo
	clock *clockwork.FakeClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	repo := &countingRepo{Repository: memory.New()}
	clock := clockwork.NewFakeClockAt(testNow)
	opts = append([]Option{WithClock(clock), WithPicker(random.Seeded(1))}, opts...)
	return &fixture{
		svc:   NewService(repo, zerolog.Nop(), opts...),
		repo:  repo,
		clock: clock,
	}
}

func (f *fixture) create(t *testing.T, channelName, keyword string) *models.Giveaway {
	t.Helper()
	g, err := f.svc.Create(context.Background(), CreateInput{
		StreamURL: "https://twitch.tv/" + channelName,
		Keyword:   keyword,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return g
}

func (f *fixture) chat(t *testing.T, channelName, username, message string) *IngestResult {
	t.Helper()
	res, err := f.svc.Ingest(context.Background(), SourceHTTP, models.ChatEvent{
		Username: username,
		Message:  message,
		Channel:  channelName,
	})
	require.NoError(t, err)
	return res
}

// assertCounterConsistent checks the denormalized counter against records.
func (f *fixture) assertCounterConsistent(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	g, err := f.repo.GetGiveaway(ctx, id)
	require.NoError(t, err)
	n, err := f.repo.CountParticipants(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, n, g.ParticipantsCount, "participants_count must equal participant records")
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name        string
		streamURL   string
		hint        string
		wantChannel string
	}{
		{"from url", "https://www.twitch.tv/Foo/", "", "foo"},
		{"url wins over hint", "https://twitch.tv/foo", "bar", "foo"},
		{"hint fallback", "https://example.com/live", "Bar", "bar"},
		{"unknown", "https://example.com/live", "", "unknown"},
		{"bare handle", "SomeStreamer", "", "somestreamer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			g, err := f.svc.Create(context.Background(), CreateInput{
				StreamURL:   tt.streamURL,
				ChannelName: tt.hint,
				Keyword:     " !join ",
			})
			require.NoError(t, err)

			assert.NotEmpty(t, g.ID)
			assert.Equal(t, tt.wantChannel, g.ChannelName)
			assert.Equal(t, "!join", g.Keyword)
			assert.True(t, g.IsActive)
			assert.Empty(t, g.Winner)
			assert.Zero(t, g.ParticipantsCount)
			assert.Equal(t, testNow, g.CreatedAt)

			stored, err := f.svc.Get(context.Background(), g.ID)
			require.NoError(t, err)
			assert.Equal(t, g, stored)
		})
	}
}

func TestCreate_Announces(t *testing.T) {
	f := newFixture(t, WithBotName("GiveawayBot"))
	g := f.create(t, "foo", "!join")

	msgs, err := f.svc.Messages(context.Background(), g.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsSystem)
	assert.False(t, msgs[0].IsKeyword)
	assert.Equal(t, "GiveawayBot", msgs[0].Username)
	assert.Contains(t, msgs[0].Message, `"!join"`)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{StreamURL: "https://twitch.tv/foo", Keyword: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Create(ctx, CreateInput{StreamURL: "", Keyword: "!join"})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, f.repo.writes.Load())
}

func TestCreate_DoesNotRejectSecondActive(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, "foo", "!a")
	second := f.create(t, "foo", "!b")

	active, err := f.svc.GetActive(context.Background(), "foo")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	stillActive, err := f.svc.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.True(t, stillActive.IsActive)
}

func TestGetActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	none, err := f.svc.GetActive(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, none)

	foo := f.create(t, "foo", "!join")
	bar := f.create(t, "bar", "!join")

	got, err := f.svc.GetActive(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, bar.ID, got.ID)

	got, err = f.svc.GetActive(ctx, "#FOO")
	require.NoError(t, err)
	assert.Equal(t, foo.ID, got.ID)

	got, err = f.svc.GetActive(ctx, "baz")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.create(t, "foo", "!join")

	require.NoError(t, f.svc.Stop(ctx, g.ID))

	got, err := f.svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	active, err := f.svc.GetActive(ctx, "foo")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestStop_NotFoundPerformsNoWrites(t *testing.T) {
	f := newFixture(t)
	f.create(t, "foo", "!join")
	before := f.repo.writes.Load()

	err := f.svc.Stop(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, f.repo.writes.Load())
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.create(t, "foo", "!join")
	f.chat(t, "foo", "alice", "!join")
	f.chat(t, "foo", "bob", "!join")

	_, err := f.svc.SelectWinner(ctx, g.ID)
	require.NoError(t, err)
	require.NoError(t, f.repo.SetActive(ctx, g.ID, true))

	deleted, err := f.svc.ClearParticipants(ctx, g.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	got, err := f.svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ParticipantsCount)
	assert.Empty(t, got.Winner)
	assert.True(t, got.IsActive, "active flag must be untouched")

	ps, err := f.svc.Participants(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, ps)

	// Former entrants can join again.
	res := f.chat(t, "foo", "alice", "!join")
	assert.True(t, res.Registered())
	f.assertCounterConsistent(t, g.ID)
}

func TestClearParticipants_KeepsInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.create(t, "foo", "!join")
	require.NoError(t, f.svc.Stop(ctx, g.ID))

	_, err := f.svc.ClearParticipants(ctx, g.ID)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestClearParticipants_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ClearParticipants(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.create(t, "foo", "!join")
	f.chat(t, "foo", "alice", "!join")

	require.NoError(t, f.svc.ClearAll(ctx))

	_, err := f.svc.Get(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	active, err := f.svc.GetActive(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestParticipants_JoinOrder(t *testing.T) {
	f := newFixture(t)
	g := f.create(t, "foo", "!join")
	for _, u := range []string{"carol", "alice", "bob"} {
		f.chat(t, "foo", u, "!join")
		f.clock.Advance(time.Millisecond)
	}

	ps, err := f.svc.Participants(context.Background(), g.ID)
	require.NoError(t, err)
	require.Len(t, ps, 3)
	assert.Equal(t, "carol", ps[0].Username)
	assert.Equal(t, "alice", ps[1].Username)
	assert.Equal(t, "bob", ps[2].Username)

	_, err = f.svc.Participants(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessages_LimitAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.create(t, "foo", "!join")
	for i := 0; i < 60; i++ {
		f.chat(t, "foo", "viewer", strings.Repeat("x", i+1))
		f.clock.Advance(time.Millisecond)
	}

	def, err := f.svc.Messages(ctx, g.ID, 0)
	require.NoError(t, err)
	require.Len(t, def, DefaultMessageLimit)
	assert.Len(t, def[len(def)-1].Message, 60, "newest message last")
	for i := 1; i < len(def); i++ {
		assert.False(t, def[i].Timestamp.Before(def[i-1].Timestamp))
	}

	few, err := f.svc.Messages(ctx, g.ID, 3)
	require.NoError(t, err)
	require.Len(t, few, 3)
	assert.Len(t, few[0].Message, 58)

	all, err := f.svc.Messages(ctx, g.ID, 10_000)
	require.NoError(t, err)
	assert.Len(t, all, 61, "60 chat lines plus the start announcement")

	_, err = f.svc.Messages(ctx, "missing", 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Stats(ctx, "foo")
	assert.ErrorIs(t, err, ErrNoActiveGiveaway)

	g := f.create(t, "foo", "!join")
	f.chat(t, "foo", "alice", "!join")
	f.chat(t, "foo", "bob", "!JOIN")

	stats, err := f.svc.Stats(ctx, "Foo")
	require.NoError(t, err)
	assert.Equal(t, g.ID, stats.Giveaway.ID)
	assert.EqualValues(t, 2, stats.Giveaway.ParticipantsCount)
	assert.EqualValues(t, 2, stats.ParticipantsRecorded)
}

func TestActiveChannels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "zed", "!a")
	f.create(t, "foo", "!a")
	f.create(t, "foo", "!b")
	stopped := f.create(t, "bar", "!a")
	require.NoError(t, f.svc.Stop(ctx, stopped.ID))

	channels, err := f.svc.ActiveChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "zed"}, channels)
}

func TestSimulate(t *testing.T) {
	f := newFixture(t, WithPicker(random.Seeded(99)))
	ctx := context.Background()

	_, err := f.svc.Simulate(ctx, "")
	assert.ErrorIs(t, err, ErrNoActiveGiveaway)

	_, err = f.svc.Simulate(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	g := f.create(t, "foo", "!enter")
	var keywordLines int
	for i := 0; i < 200; i++ {
		res, err := f.svc.Simulate(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, g.ID, res.GiveawayID)
		assert.Contains(t, demoUsers, res.Message.Username)
		if res.Message.IsKeyword {
			keywordLines++
			assert.Equal(t, "!enter", res.Message.Message)
		} else {
			assert.Contains(t, demoMessages, res.Message.Message)
		}
	}

	assert.InDelta(t, 60, keywordLines, 35)
	f.assertCounterConsistent(t, g.ID)

	got, err := f.svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Positive(t, got.ParticipantsCount)
	assert.LessOrEqual(t, got.ParticipantsCount, int64(len(demoUsers)))
}

// failingRepo fails every LatestActive and GetGiveaway call at the transport level.
type failingRepo struct {
	repository.Repository
}

func (failingRepo) LatestActive(ctx context.Context, channel string) (*models.Giveaway, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (failingRepo) GetGiveaway(ctx context.Context, id string) (*models.Giveaway, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestStoreFailuresAreNotMaskedAsDomainOutcomes(t *testing.T) {
	guard := repository.NewGuard(failingRepo{memory.New()}, repository.DefaultGuardSettings(time.Second), zerolog.Nop())
	svc := NewService(guard, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Get(ctx, "any")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = svc.Ingest(ctx, SourceHTTP, models.ChatEvent{Username: "a", Message: "!join", Channel: "foo"})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrNoActiveGiveaway)

	_, err = svc.SelectWinner(ctx, "any")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.Stats(ctx, "foo")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestCallerCancellationIsNotStoreUnavailable(t *testing.T) {
	guard := repository.NewGuard(memory.New(), repository.DefaultGuardSettings(time.Second), zerolog.Nop())
	svc := NewService(guard, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The in-memory Ping honours ctx.
	err := svc.Ping(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
}
