package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"twitch-giveaway-backend/internal/features/giveaway/models"
	"twitch-giveaway-backend/internal/features/giveaway/repository"
)

const (
	collectionGiveaways    = "giveaways"
	collectionParticipants = "participants"
	collectionChatMessages = "chat_messages"
)

// Repository keeps the three record collections of the giveaway database.
// Documents are addressed by the domain "id" field; Mongo's _id is only used
// to recover insertion order.
//
// A standalone server has no multi-document transactions, so the stored
// participants_count is never maintained. Reads derive it from the
// participants collection in the same aggregation that loads the giveaway.
type Repository struct {
	db           *mongo.Database
	giveaways    *mongo.Collection
	participants *mongo.Collection
	messages     *mongo.Collection
}

var _ repository.Repository = (*Repository)(nil)

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		db:           db,
		giveaways:    db.Collection(collectionGiveaways),
		participants: db.Collection(collectionParticipants),
		messages:     db.Collection(collectionChatMessages),
	}
}

// EnsureIndexes creates the lookup indexes and the unique (giveaway_id,
// username) index that makes participant registration idempotent.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		r.giveaways: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "channel_name", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		r.participants: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys:    bson.D{{Key: "giveaway_id", Value: 1}, {Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("giveaway_username_unique"),
			},
		},
		r.messages: {
			{Keys: bson.D{{Key: "giveaway_id", Value: 1}, {Key: "_id", Value: -1}}},
		},
	}

	for coll, specs := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}

func (r *Repository) CreateGiveaway(ctx context.Context, g *models.Giveaway) error {
	if _, err := r.giveaways.InsertOne(ctx, g); err != nil {
		return fmt.Errorf("failed to create giveaway: %w", err)
	}
	return nil
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// findGiveaways loads matching giveaways newest first with their
// participant counts. limit <= 0 returns all of them.
func (r *Repository) findGiveaways(ctx context.Context, filter bson.M, limit int64) ([]*models.Giveaway, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$sort", Value: newestFirst}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: collectionParticipants},
			{Key: "let", Value: bson.D{{Key: "gid", Value: "$id"}}},
			{Key: "pipeline", Value: mongo.Pipeline{
				{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
					{Key: "$eq", Value: bson.A{"$giveaway_id", "$$gid"}},
				}}}}},
				{{Key: "$count", Value: "n"}},
			}},
			{Key: "as", Value: "_participants"},
		}}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "participants_count", Value: bson.D{{Key: "$ifNull", Value: bson.A{
				bson.D{{Key: "$arrayElemAt", Value: bson.A{"$_participants.n", 0}}}, 0,
			}}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "_participants", Value: 0}}}},
	)

	cursor, err := r.giveaways.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var docs []models.Giveaway
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode giveaways: %w", err)
	}

	out := make([]*models.Giveaway, len(docs))
	for i := range docs {
		out[i] = &docs[i]
	}
	return out, nil
}

func (r *Repository) GetGiveaway(ctx context.Context, id string) (*models.Giveaway, error) {
	found, err := r.findGiveaways(ctx, bson.M{"id": id}, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}
	if len(found) == 0 {
		return nil, repository.ErrGiveawayNotFound
	}
	return found[0], nil
}

func (r *Repository) LatestActive(ctx context.Context, channel string) (*models.Giveaway, error) {
	filter := bson.M{"is_active": true}
	if channel != "" {
		filter["channel_name"] = channel
	}

	found, err := r.findGiveaways(ctx, filter, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to get active giveaway: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *Repository) ListActive(ctx context.Context) ([]*models.Giveaway, error) {
	found, err := r.findGiveaways(ctx, bson.M{"is_active": true}, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list active giveaways: %w", err)
	}
	return found, nil
}

func (r *Repository) update(ctx context.Context, id string, update bson.M) error {
	res, err := r.giveaways.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update giveaway: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrGiveawayNotFound
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"is_active": active}})
}

func (r *Repository) SetWinner(ctx context.Context, id, winner string) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"winner": winner, "is_active": false}})
}

func (r *Repository) AddParticipant(ctx context.Context, p *models.Participant) error {
	n, err := r.giveaways.CountDocuments(ctx, bson.M{"id": p.GiveawayID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to look up giveaway: %w", err)
	}
	if n == 0 {
		return repository.ErrGiveawayNotFound
	}

	// The unique (giveaway_id, username) index settles concurrent joins.
	_, err = r.participants.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicateParticipant
	}
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

func (r *Repository) ClearParticipants(ctx context.Context, giveawayID string) (int64, error) {
	if err := r.update(ctx, giveawayID, bson.M{"$set": bson.M{"winner": ""}}); err != nil {
		return 0, err
	}
	res, err := r.participants.DeleteMany(ctx, bson.M{"giveaway_id": giveawayID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete participants: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *Repository) ListParticipants(ctx context.Context, giveawayID string) ([]*models.Participant, error) {
	cursor, err := r.participants.Find(ctx,
		bson.M{"giveaway_id": giveawayID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	var docs []models.Participant
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}

	out := make([]*models.Participant, len(docs))
	for i := range docs {
		out[i] = &docs[i]
	}
	return out, nil
}

func (r *Repository) CountParticipants(ctx context.Context, giveawayID string) (int64, error) {
	n, err := r.participants.CountDocuments(ctx, bson.M{"giveaway_id": giveawayID})
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return n, nil
}

func (r *Repository) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	if _, err := r.messages.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

func (r *Repository) ListMessages(ctx context.Context, giveawayID string, limit int) ([]*models.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.messages.Find(ctx, bson.M{"giveaway_id": giveawayID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}

	var docs []models.ChatMessage
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode chat messages: %w", err)
	}

	// newest first from the store, oldest first to callers
	out := make([]*models.ChatMessage, len(docs))
	for i := range docs {
		out[len(docs)-1-i] = &docs[i]
	}
	return out, nil
}

func (r *Repository) Clear(ctx context.Context) error {
	for _, coll := range []*mongo.Collection{r.giveaways, r.participants, r.messages} {
		if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
			return fmt.Errorf("failed to clear %s: %w", coll.Name(), err)
		}
	}
	return nil
}
