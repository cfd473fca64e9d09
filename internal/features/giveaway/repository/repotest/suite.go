// Package repotest holds the behavioural suite every store backend must pass.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitch-giveaway-backend/internal/features/giveaway/models"
	"twitch-giveaway-backend/internal/features/giveaway/repository"
)

// Factory returns an empty repository. It is called once per subtest.
type Factory func(t *testing.T) repository.Repository

// base is millisecond-aligned so every backend round-trips it exactly.
var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(offset int) time.Time {
	return base.Add(time.Duration(offset) * time.Second)
}

func newGiveaway(channel string, created time.Time) *models.Giveaway {
	return &models.Giveaway{
		ID:          uuid.NewString(),
		StreamURL:   "https://twitch.tv/" + channel,
		ChannelName: channel,
		Keyword:     "!join",
		IsActive:    true,
		CreatedAt:   created,
	}
}

func newParticipant(giveawayID, username string, joined time.Time) *models.Participant {
	return &models.Participant{
		ID:         uuid.NewString(),
		Username:   username,
		JoinedAt:   joined,
		GiveawayID: giveawayID,
	}
}

func newMessage(giveawayID, text string, ts time.Time) *models.ChatMessage {
	return &models.ChatMessage{
		ID:         uuid.NewString(),
		Username:   "viewer",
		Message:    text,
		Timestamp:  ts,
		GiveawayID: giveawayID,
	}
}

// Run executes the suite against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, r repository.Repository)
	}{
		{"Ping", testPing},
		{"CreateAndGet", testCreateAndGet},
		{"GetMissing", testGetMissing},
		{"LatestActive", testLatestActive},
		{"ListActive", testListActive},
		{"UpdatesOnMissingID", testUpdatesOnMissingID},
		{"SetActive", testSetActive},
		{"SetWinner", testSetWinner},
		{"AddAndClearParticipants", testAddAndClearParticipants},
		{"ConcurrentAdd", testConcurrentAdd},
		{"AddParticipantUnique", testAddParticipantUnique},
		{"ConcurrentAddSameUser", testConcurrentAddSameUser},
		{"ListParticipantsOrder", testListParticipantsOrder},
		{"ClearParticipants", testClearParticipants},
		{"ConcurrentAddAndClear", testConcurrentAddAndClear},
		{"Messages", testMessages},
		{"UnassignedMessages", testUnassignedMessages},
		{"Clear", testClear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newRepo(t))
		})
	}
}

func testPing(t *testing.T, r repository.Repository) {
	require.NoError(t, r.Ping(context.Background()))
}

func testCreateAndGet(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	g := newGiveaway("foo", at(0))
	require.NoError(t, r.CreateGiveaway(ctx, g))

	got, err := r.GetGiveaway(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, g.StreamURL, got.StreamURL)
	assert.Equal(t, "foo", got.ChannelName)
	assert.Equal(t, "!join", got.Keyword)
	assert.True(t, got.IsActive)
	assert.True(t, g.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", got.CreatedAt, g.CreatedAt)
	assert.Empty(t, got.Winner)
	assert.Zero(t, got.ParticipantsCount)
}

func testGetMissing(t *testing.T, r repository.Repository) {
	_, err := r.GetGiveaway(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrGiveawayNotFound)
}

func testLatestActive(t *testing.T, r repository.Repository) {
	ctx := context.Background()

	none, err := r.LatestActive(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, none)

	older := newGiveaway("foo", at(0))
	newer := newGiveaway("foo", at(10))
	other := newGiveaway("bar", at(5))
	stopped := newGiveaway("foo", at(20))
	stopped.IsActive = false
	for _, g := range []*models.Giveaway{older, newer, other, stopped} {
		require.NoError(t, r.CreateGiveaway(ctx, g))
	}

	got, err := r.LatestActive(ctx, "foo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)

	got, err = r.LatestActive(ctx, "bar")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, other.ID, got.ID)

	got, err = r.LatestActive(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)

	got, err = r.LatestActive(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testListActive(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	a := newGiveaway("foo", at(0))
	b := newGiveaway("bar", at(1))
	c := newGiveaway("baz", at(2))
	c.IsActive = false
	for _, g := range []*models.Giveaway{a, b, c} {
		require.NoError(t, r.CreateGiveaway(ctx, g))
	}

	active, err := r.ListActive(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(active))
	for _, g := range active {
		ids = append(ids, g.ID)
	}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}

func testUpdatesOnMissingID(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	id := uuid.NewString()

	assert.ErrorIs(t, r.SetActive(ctx, id, false), repository.ErrGiveawayNotFound)
	assert.ErrorIs(t, r.SetWinner(ctx, id, "x"), repository.ErrGiveawayNotFound)
	assert.ErrorIs(t, r.AddParticipant(ctx, newParticipant(id, "alice", at(1))), repository.ErrGiveawayNotFound)
	_, err := r.ClearParticipants(ctx, id)
	assert.ErrorIs(t, err, repository.ErrGiveawayNotFound)

	_, err = r.GetGiveaway(ctx, id)
	assert.ErrorIs(t, err, repository.ErrGiveawayNotFound, "updates must not create records")
	n, err := r.CountParticipants(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, n, "no participant may be stored for a missing giveaway")
}

func testSetActive(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	g := newGiveaway("foo", at(0))
	require.NoError(t, r.CreateGiveaway(ctx, g))

	require.NoError(t, r.SetActive(ctx, g.ID, false))
	got, err := r.GetGiveaway(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// idempotent
	require.NoError(t, r.SetActive(ctx, g.ID, false))

	active, err := r.LatestActive(ctx, "foo")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func testSetWinner(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	g := newGiveaway("foo", at(0))
	require.NoError(t, r.CreateGiveaway(ctx, g))

	require.NoError(t, r.SetWinner(ctx, g.ID, "alice"))
	got, err := r.GetGiveaway(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Winner)
	assert.False(t, got.IsActive)
}

// assertCounterMatches checks that the denormalized counter equals the
// number of stored participant records.
func assertCounterMatches(t *testing.T, r repository.Repository, id string) int64 {
	t.Helper()
	ctx := context.Background()

	g, err := r.GetGiveaway(ctx, id)
	require.NoError(t, err)
	n, err := r.CountParticipants(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, n, g.ParticipantsCount, "participants_count must equal stored records")
	return n
}

func testAddAndClearParticipants(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	g := newGiveaway("foo", at(0))
	require.NoError(t, r.CreateGiveaway(ctx, g))

	for i, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, r.AddParticipant(ctx, newParticipant(g.ID, name, at(i+1))))
	}
	require.NoError(t, r.SetWinner(ctx, g.ID, "bob"))
	require.NoError(t, r.SetActive(ctx, g.ID, true))
	assert.EqualValues(t, 3, assertCounterMatches(t, r, g.ID))

	deleted, err := r.ClearParticipants(ctx, g.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	got, err := r.GetGiveaway(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ParticipantsCount)
	assert.Empty(t, got.Winner)
	assert.True(t, got.IsActive, "clearing must not touch the active flag")
	assert.Zero(t, assertCounterMatches(t, r, g.ID))
}

func testConcurrentAdd(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	g := newGiveaway("foo", at(0))
	require.NoError(t, r.CreateGiveaway(ctx, g))

	const workers = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, r.AddParticipant(ctx, newParticipant(g.ID, fmt.Sprintf("viewer%02d", i), at(i))))
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, workers, assertCounterMatches(t, r, g.ID))
}

func testAddParticipantUnique(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	g := newGiveaway("foo", at(0))
	other := newGiveaway("bar", at(1))
	require.NoError(t, r.CreateGiveaway(ctx, g))
	require.NoError(t, r.CreateGiveaway(ctx, other))

	require.NoError(t, r.AddParticipant(ctx, newParticipant(g.ID, "alice", at(2))))
	err := r.AddParticipant(ctx, newParticipant(g.ID, "alice", at(3)))
	assert.ErrorIs(t, err, repository.ErrDuplicateParticipant)

	// Same username in another giveaway is a different entrant.
	require.NoError(t, r.AddParticipant(ctx, newParticipant(other.ID, "alice", at(4))))
	// Usernames compare exactly.
	require.NoError(t, r.AddParticipant(ctx, newParticipant(g.ID, "Alice", at(5))))

	assert.EqualValues(t, 2, assertCounterMatches(t, r, g.ID), "a duplicate must not bump the counter")
	assert.EqualValues(t, 1, assertCounterMatches(t, r, other.ID))
}

func testConcurrentAddSameUser(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	g := newGiveaway("foo", at(0))
	require.NoError(t, r.CreateGiveaway(ctx, g))

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		inserted  int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := r.AddParticipant(ctx, newParticipant(g.ID, "racer", at(i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case assert.ErrorIs(t, err, repository.ErrDuplicateParticipant):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	assert.Equal(t, workers-1, conflicts)
	assert.EqualValues(t, 1, assertCounterMatches(t, r, g.ID))
}

func testListParticipantsOrder(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	g := newGiveaway("foo", at(0))
	require.NoError(t, r.CreateGiveaway(ctx, g))

	empty, err := r.ListParticipants(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	names := []string{"carol", "alice", "bob", "dave"}
	for i, name := range names {
		require.NoError(t, r.AddParticipant(ctx, newParticipant(g.ID, name, at(i+1))))
	}

	got, err := r.ListParticipants(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, got, len(names))
	for i, p := range got {
		assert.Equal(t, names[i], p.Username)
		assert.Equal(t, g.ID, p.GiveawayID)
		assert.True(t, at(i+1).Equal(p.JoinedAt))
	}
}

func testClearParticipants(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	g := newGiveaway("foo", at(0))
	other := newGiveaway("bar", at(1))
	require.NoError(t, r.CreateGiveaway(ctx, g))
	require.NoError(t, r.CreateGiveaway(ctx, other))

	for i := 0; i < 3; i++ {
		require.NoError(t, r.AddParticipant(ctx, newParticipant(g.ID, fmt.Sprintf("u%d", i), at(i))))
	}
	require.NoError(t, r.AddParticipant(ctx, newParticipant(other.ID, "keep", at(9))))

	deleted, err := r.ClearParticipants(ctx, g.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
	assert.Zero(t, assertCounterMatches(t, r, g.ID))
	assert.EqualValues(t, 1, assertCounterMatches(t, r, other.ID))

	deleted, err = r.ClearParticipants(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// Cleared usernames may join again.
	require.NoError(t, r.AddParticipant(ctx, newParticipant(g.ID, "u0", at(10))))
	assert.EqualValues(t, 1, assertCounterMatches(t, r, g.ID))
}

// testConcurrentAddAndClear interleaves registrations with clears of the
// same giveaway. Whatever survives, the counter must match the records.
func testConcurrentAddAndClear(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	g := newGiveaway("foo", at(0))
	require.NoError(t, r.CreateGiveaway(ctx, g))

	const (
		joiners = 8
		perUser = 10
		clears  = 20
	)
	var wg sync.WaitGroup
	for w := 0; w < joiners; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perUser; i++ {
				assert.NoError(t, r.AddParticipant(ctx, newParticipant(g.ID, fmt.Sprintf("w%d-%d", w, i), at(i))))
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < clears; i++ {
			_, err := r.ClearParticipants(ctx, g.ID)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	assertCounterMatches(t, r, g.ID)
}

func testMessages(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	g := newGiveaway("foo", at(0))
	require.NoError(t, r.CreateGiveaway(ctx, g))

	for i := 0; i < 5; i++ {
		m := newMessage(g.ID, fmt.Sprintf("m%d", i), at(i))
		m.IsKeyword = i%2 == 0
		require.NoError(t, r.AppendMessage(ctx, m))
	}
	sys := newMessage(g.ID, "m5", at(5))
	sys.IsSystem = true
	sys.Username = "TwitchBot"
	require.NoError(t, r.AppendMessage(ctx, sys))

	all, err := r.ListMessages(ctx, g.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 6)
	for i, m := range all {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.Message)
		assert.Equal(t, g.ID, m.GiveawayID)
	}
	assert.True(t, all[0].IsKeyword)
	assert.False(t, all[1].IsKeyword)
	assert.True(t, all[5].IsSystem)
	assert.Equal(t, "TwitchBot", all[5].Username)
	assert.True(t, at(3).Equal(all[3].Timestamp))

	last, err := r.ListMessages(ctx, g.ID, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "m4", last[0].Message)
	assert.Equal(t, "m5", last[1].Message)

	wide, err := r.ListMessages(ctx, g.ID, 100)
	require.NoError(t, err)
	assert.Len(t, wide, 6)

	none, err := r.ListMessages(ctx, uuid.NewString(), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testUnassignedMessages(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	require.NoError(t, r.AppendMessage(ctx, newMessage("", "before any giveaway", at(0))))

	g := newGiveaway("foo", at(1))
	require.NoError(t, r.CreateGiveaway(ctx, g))

	got, err := r.ListMessages(ctx, g.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testClear(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	g := newGiveaway("foo", at(0))
	require.NoError(t, r.CreateGiveaway(ctx, g))
	require.NoError(t, r.AddParticipant(ctx, newParticipant(g.ID, "alice", at(1))))
	require.NoError(t, r.AppendMessage(ctx, newMessage(g.ID, "hi", at(2))))
	require.NoError(t, r.AppendMessage(ctx, newMessage("", "loose", at(3))))

	require.NoError(t, r.Clear(ctx))

	_, err := r.GetGiveaway(ctx, g.ID)
	assert.ErrorIs(t, err, repository.ErrGiveawayNotFound)

	active, err := r.LatestActive(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, active)

	n, err := r.CountParticipants(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	msgs, err := r.ListMessages(ctx, g.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// Clearing an empty store is fine.
	require.NoError(t, r.Clear(ctx))
}
