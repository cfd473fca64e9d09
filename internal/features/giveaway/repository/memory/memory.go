// Package memory is an in-process Repository used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"twitch-giveaway-backend/internal/features/giveaway/models"
	"twitch-giveaway-backend/internal/features/giveaway/repository"
)

type participantKey struct {
	giveawayID string
	username   string
}

type storedParticipant struct {
	p   models.Participant
	seq int64
}

type storedGiveaway struct {
	g   models.Giveaway
	seq int64
}

// Repository keeps every record in maps behind one RWMutex.
type Repository struct {
	mu           sync.RWMutex
	seq          int64
	giveaways    map[string]*storedGiveaway
	participants map[participantKey]storedParticipant
	messages     []models.ChatMessage
}

var _ repository.Repository = (*Repository)(nil)

func New() *Repository {
	return &Repository{
		giveaways:    make(map[string]*storedGiveaway),
		participants: make(map[participantKey]storedParticipant),
	}
}

func (r *Repository) next() int64 {
	r.seq++
	return r.seq
}

func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *Repository) CreateGiveaway(ctx context.Context, g *models.Giveaway) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.giveaways[g.ID] = &storedGiveaway{g: *g, seq: r.next()}
	return nil
}

func (r *Repository) GetGiveaway(ctx context.Context, id string) (*models.Giveaway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sg, ok := r.giveaways[id]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	g := sg.g
	return &g, nil
}

// newer orders by created_at, then by insertion for equal timestamps.
func newer(a, b *storedGiveaway) bool {
	if !a.g.CreatedAt.Equal(b.g.CreatedAt) {
		return a.g.CreatedAt.After(b.g.CreatedAt)
	}
	return a.seq > b.seq
}

func (r *Repository) LatestActive(ctx context.Context, channel string) (*models.Giveaway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *storedGiveaway
	for _, sg := range r.giveaways {
		if !sg.g.IsActive || (channel != "" && sg.g.ChannelName != channel) {
			continue
		}
		if best == nil || newer(sg, best) {
			best = sg
		}
	}
	if best == nil {
		return nil, nil
	}
	g := best.g
	return &g, nil
}

func (r *Repository) ListActive(ctx context.Context) ([]*models.Giveaway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*storedGiveaway, 0)
	for _, sg := range r.giveaways {
		if sg.g.IsActive {
			active = append(active, sg)
		}
	}
	sort.Slice(active, func(i, j int) bool { return newer(active[i], active[j]) })

	out := make([]*models.Giveaway, 0, len(active))
	for _, sg := range active {
		g := sg.g
		out = append(out, &g)
	}
	return out, nil
}

func (r *Repository) update(id string, fn func(g *models.Giveaway)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sg, ok := r.giveaways[id]
	if !ok {
		return repository.ErrGiveawayNotFound
	}
	fn(&sg.g)
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(id, func(g *models.Giveaway) { g.IsActive = active })
}

func (r *Repository) SetWinner(ctx context.Context, id, winner string) error {
	return r.update(id, func(g *models.Giveaway) {
		g.Winner = winner
		g.IsActive = false
	})
}

func (r *Repository) AddParticipant(ctx context.Context, p *models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sg, ok := r.giveaways[p.GiveawayID]
	if !ok {
		return repository.ErrGiveawayNotFound
	}
	key := participantKey{giveawayID: p.GiveawayID, username: p.Username}
	if _, exists := r.participants[key]; exists {
		return repository.ErrDuplicateParticipant
	}
	r.participants[key] = storedParticipant{p: *p, seq: r.next()}
	sg.g.ParticipantsCount++
	return nil
}

func (r *Repository) ClearParticipants(ctx context.Context, giveawayID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sg, ok := r.giveaways[giveawayID]
	if !ok {
		return 0, repository.ErrGiveawayNotFound
	}
	var n int64
	for key := range r.participants {
		if key.giveawayID == giveawayID {
			delete(r.participants, key)
			n++
		}
	}
	sg.g.ParticipantsCount = 0
	sg.g.Winner = ""
	return n, nil
}

func (r *Repository) ListParticipants(ctx context.Context, giveawayID string) ([]*models.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]storedParticipant, 0)
	for key, sp := range r.participants {
		if key.giveawayID == giveawayID {
			matched = append(matched, sp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]*models.Participant, 0, len(matched))
	for _, sp := range matched {
		p := sp.p
		out = append(out, &p)
	}
	return out, nil
}

func (r *Repository) CountParticipants(ctx context.Context, giveawayID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for key := range r.participants {
		if key.giveawayID == giveawayID {
			n++
		}
	}
	return n, nil
}

func (r *Repository) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *m)
	return nil
}

func (r *Repository) ListMessages(ctx context.Context, giveawayID string, limit int) ([]*models.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.ChatMessage, 0)
	for i := range r.messages {
		if r.messages[i].GiveawayID == giveawayID {
			m := r.messages[i]
			out = append(out, &m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.giveaways = make(map[string]*storedGiveaway)
	r.participants = make(map[participantKey]storedParticipant)
	r.messages = nil
	return nil
}
