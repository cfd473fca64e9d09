package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"twitch-giveaway-backend/internal/features/giveaway/models"
	"twitch-giveaway-backend/internal/features/giveaway/repository"
)

const (
	keyPrefixGiveaway  = "giveaway:"
	keyAllGiveaways    = "giveaways:all"
	keyActiveGiveaways = "giveaways:active"
	keyUnassignedChat  = "chat:unassigned"
	suffixParticipants = ":participants"
	suffixChat         = ":chat"
	fieldActive        = "is_active"
	fieldWinner        = "winner"
	fieldCount         = "participants_count"
	fieldCreatedMillis = "created_ms"
	scanBatch          = 500
	activeFlagTrue     = "1"
	activeFlagFalse    = "0"
)

// updateScript applies field writes to an existing giveaway hash and keeps
// the active indexes in step with is_active.
// KEYS: [1]=giveaway hash, [2]=active index
// ARGV: [1]=id, [2]=active flag ('1', '0', or '' to keep), [3..]=field/value pairs
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
for i = 3, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
if ARGV[2] ~= '' then
  redis.call('HSET', KEYS[1], 'is_active', ARGV[2])
  local channel = redis.call('HGET', KEYS[1], 'channel_name')
  local score = redis.call('HGET', KEYS[1], 'created_ms')
  if ARGV[2] == '1' then
    redis.call('ZADD', KEYS[2], score, ARGV[1])
    redis.call('ZADD', KEYS[2] .. ':' .. channel, score, ARGV[1])
  else
    redis.call('ZREM', KEYS[2], ARGV[1])
    redis.call('ZREM', KEYS[2] .. ':' .. channel, ARGV[1])
  end
end
return 1
`)

// addParticipantScript registers a username and bumps the counter in one
// step. Returns -1 when the giveaway is missing, 0 when the username is taken.
// KEYS: [1]=giveaway hash, [2]=participants hash; ARGV: [1]=username, [2]=payload
var addParticipantScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
if redis.call('HSETNX', KEYS[2], ARGV[1], ARGV[2]) == 0 then
  return 0
end
redis.call('HINCRBY', KEYS[1], 'participants_count', 1)
return 1
`)

// clearParticipantsScript drops the participants hash and resets the counter
// and winner. Returns -1 when the giveaway is missing, else the number removed.
// KEYS: [1]=giveaway hash, [2]=participants hash
var clearParticipantsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local n = redis.call('HLEN', KEYS[2])
redis.call('DEL', KEYS[2])
redis.call('HSET', KEYS[1], 'participants_count', 0, 'winner', '')
return n
`)

// Repository stores giveaways as hashes, participants as a per-giveaway hash
// keyed by username, and chat as per-giveaway lists.
type Repository struct {
	client redis.UniversalClient
}

var _ repository.Repository = (*Repository)(nil)

func NewRepository(client redis.UniversalClient) *Repository {
	return &Repository{client: client}
}

func makeGiveawayKey(id string) string {
	return keyPrefixGiveaway + id
}

func makeParticipantsKey(id string) string {
	return keyPrefixGiveaway + id + suffixParticipants
}

func makeChatKey(giveawayID string) string {
	if giveawayID == "" {
		return keyUnassignedChat
	}
	return keyPrefixGiveaway + giveawayID + suffixChat
}

func makeActiveChannelKey(channel string) string {
	return keyActiveGiveaways + ":" + channel
}

func boolFlag(b bool) string {
	if b {
		return activeFlagTrue
	}
	return activeFlagFalse
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Repository) CreateGiveaway(ctx context.Context, g *models.Giveaway) error {
	key := makeGiveawayKey(g.ID)
	score := float64(g.CreatedAt.UnixMilli())

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"id", g.ID,
			"stream_url", g.StreamURL,
			"channel_name", g.ChannelName,
			"keyword", g.Keyword,
			fieldActive, boolFlag(g.IsActive),
			"created_at", g.CreatedAt.UTC().Format(time.RFC3339Nano),
			fieldCreatedMillis, g.CreatedAt.UnixMilli(),
			fieldWinner, g.Winner,
			fieldCount, g.ParticipantsCount,
		)
		pipe.ZAdd(ctx, keyAllGiveaways, redis.Z{Score: score, Member: g.ID})
		if g.IsActive {
			pipe.ZAdd(ctx, keyActiveGiveaways, redis.Z{Score: score, Member: g.ID})
			pipe.ZAdd(ctx, makeActiveChannelKey(g.ChannelName), redis.Z{Score: score, Member: g.ID})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create giveaway: %w", err)
	}
	return nil
}

func parseGiveaway(fields map[string]string) (*models.Giveaway, error) {
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	count, err := strconv.ParseInt(fields[fieldCount], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid participants_count: %w", err)
	}
	return &models.Giveaway{
		ID:                fields["id"],
		StreamURL:         fields["stream_url"],
		ChannelName:       fields["channel_name"],
		Keyword:           fields["keyword"],
		IsActive:          fields[fieldActive] == activeFlagTrue,
		CreatedAt:         created,
		Winner:            fields[fieldWinner],
		ParticipantsCount: count,
	}, nil
}

func (r *Repository) GetGiveaway(ctx context.Context, id string) (*models.Giveaway, error) {
	fields, err := r.client.HGetAll(ctx, makeGiveawayKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, repository.ErrGiveawayNotFound
	}
	return parseGiveaway(fields)
}

func (r *Repository) LatestActive(ctx context.Context, channel string) (*models.Giveaway, error) {
	index := keyActiveGiveaways
	if channel != "" {
		index = makeActiveChannelKey(channel)
	}

	ids, err := r.client.ZRevRange(ctx, index, 0, 0).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	g, err := r.GetGiveaway(ctx, ids[0])
	if errors.Is(err, repository.ErrGiveawayNotFound) {
		return nil, nil
	}
	return g, err
}

func (r *Repository) ListActive(ctx context.Context) ([]*models.Giveaway, error) {
	ids, err := r.client.ZRevRange(ctx, keyActiveGiveaways, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, makeGiveawayKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*models.Giveaway, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		g, err := parseGiveaway(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *Repository) update(ctx context.Context, id, active string, fieldValues ...interface{}) error {
	args := append([]interface{}{id, active}, fieldValues...)
	ok, err := updateScript.Run(ctx, r.client, []string{makeGiveawayKey(id), keyActiveGiveaways}, args...).Int()
	if err != nil {
		return fmt.Errorf("update script failed: %w", err)
	}
	if ok == 0 {
		return repository.ErrGiveawayNotFound
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(ctx, id, boolFlag(active))
}

func (r *Repository) SetWinner(ctx context.Context, id, winner string) error {
	return r.update(ctx, id, activeFlagFalse, fieldWinner, winner)
}

func (r *Repository) AddParticipant(ctx context.Context, p *models.Participant) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal participant: %w", err)
	}

	keys := []string{makeGiveawayKey(p.GiveawayID), makeParticipantsKey(p.GiveawayID)}
	res, err := addParticipantScript.Run(ctx, r.client, keys, p.Username, data).Int()
	if err != nil {
		return fmt.Errorf("add participant script failed: %w", err)
	}
	switch res {
	case -1:
		return repository.ErrGiveawayNotFound
	case 0:
		return repository.ErrDuplicateParticipant
	}
	return nil
}

func (r *Repository) ClearParticipants(ctx context.Context, giveawayID string) (int64, error) {
	keys := []string{makeGiveawayKey(giveawayID), makeParticipantsKey(giveawayID)}
	n, err := clearParticipantsScript.Run(ctx, r.client, keys).Int64()
	if err != nil {
		return 0, fmt.Errorf("clear participants script failed: %w", err)
	}
	if n < 0 {
		return 0, repository.ErrGiveawayNotFound
	}
	return n, nil
}

func (r *Repository) ListParticipants(ctx context.Context, giveawayID string) ([]*models.Participant, error) {
	values, err := r.client.HVals(ctx, makeParticipantsKey(giveawayID)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*models.Participant, 0, len(values))
	for _, v := range values {
		var p models.Participant
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal participant: %w", err)
		}
		out = append(out, &p)
	}
	// Hash iteration order is arbitrary.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

func (r *Repository) CountParticipants(ctx context.Context, giveawayID string) (int64, error) {
	return r.client.HLen(ctx, makeParticipantsKey(giveawayID)).Result()
}

func (r *Repository) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}
	return r.client.RPush(ctx, makeChatKey(m.GiveawayID), data).Err()
}

func (r *Repository) ListMessages(ctx context.Context, giveawayID string, limit int) ([]*models.ChatMessage, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	values, err := r.client.LRange(ctx, makeChatKey(giveawayID), start, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*models.ChatMessage, 0, len(values))
	for _, v := range values {
		var m models.ChatMessage
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat message: %w", err)
		}
		out = append(out, &m)
	}
	return out, nil
}

func (r *Repository) Clear(ctx context.Context) error {
	for _, pattern := range []string{keyPrefixGiveaway + "*", "giveaways:*"} {
		if err := r.deleteMatching(ctx, pattern); err != nil {
			return err
		}
	}
	return r.client.Del(ctx, keyUnassignedChat).Err()
}

func (r *Repository) deleteMatching(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete %q: %w", pattern, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
