package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"twitch-giveaway-backend/internal/features/giveaway/models"
	"twitch-giveaway-backend/internal/features/giveaway/repository"
)

//go:embed schema.sql
var schema string

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

type Repository struct {
	db DB
}

var _ repository.Repository = (*Repository)(nil)

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const giveawayColumns = `id, stream_url, channel_name, keyword, is_active, created_at, winner, participants_count`

func scanGiveaway(row pgx.Row) (*models.Giveaway, error) {
	var g models.Giveaway
	err := row.Scan(&g.ID, &g.StreamURL, &g.ChannelName, &g.Keyword,
		&g.IsActive, &g.CreatedAt, &g.Winner, &g.ParticipantsCount)
	if err != nil {
		return nil, err
	}
	g.CreatedAt = g.CreatedAt.UTC()
	return &g, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repository) CreateGiveaway(ctx context.Context, g *models.Giveaway) error {
	query := `
		INSERT INTO giveaways (` + giveawayColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		g.ID, g.StreamURL, g.ChannelName, g.Keyword,
		g.IsActive, g.CreatedAt, g.Winner, g.ParticipantsCount)
	if err != nil {
		return fmt.Errorf("failed to create giveaway: %w", err)
	}
	return nil
}

func (r *Repository) GetGiveaway(ctx context.Context, id string) (*models.Giveaway, error) {
	query := `SELECT ` + giveawayColumns + ` FROM giveaways WHERE id = $1`
	g, err := scanGiveaway(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}
	return g, nil
}

func (r *Repository) LatestActive(ctx context.Context, channel string) (*models.Giveaway, error) {
	query := `
		SELECT ` + giveawayColumns + `
		FROM giveaways
		WHERE is_active AND ($1 = '' OR channel_name = $1)
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`
	g, err := scanGiveaway(r.db.QueryRow(ctx, query, channel))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active giveaway: %w", err)
	}
	return g, nil
}

func (r *Repository) ListActive(ctx context.Context) ([]*models.Giveaway, error) {
	query := `
		SELECT ` + giveawayColumns + `
		FROM giveaways
		WHERE is_active
		ORDER BY created_at DESC, seq DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active giveaways: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Giveaway, 0)
	for rows.Next() {
		g, err := scanGiveaway(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan giveaway: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// exec runs an UPDATE keyed by giveaway id and maps "no row" to not found.
func (r *Repository) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrGiveawayNotFound
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	return r.exec(ctx, "set active", `UPDATE giveaways SET is_active = $2 WHERE id = $1`, id, active)
}

func (r *Repository) SetWinner(ctx context.Context, id, winner string) error {
	return r.exec(ctx, "set winner",
		`UPDATE giveaways SET winner = $2, is_active = FALSE WHERE id = $1`, id, winner)
}

// lockGiveaway takes the giveaway's row lock for the rest of tx. Holding it
// orders registrations and clears of the same giveaway.
func lockGiveaway(ctx context.Context, tx pgx.Tx, id string) error {
	var locked string
	err := tx.QueryRow(ctx, `SELECT id FROM giveaways WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrGiveawayNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock giveaway: %w", err)
	}
	return nil
}

func (r *Repository) AddParticipant(ctx context.Context, p *models.Participant) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockGiveaway(ctx, tx, p.GiveawayID); err != nil {
			return err
		}

		query := `
			INSERT INTO participants (id, giveaway_id, username, joined_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (giveaway_id, username) DO NOTHING
		`
		tag, err := tx.Exec(ctx, query, p.ID, p.GiveawayID, p.Username, p.JoinedAt)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrDuplicateParticipant
		}

		_, err = tx.Exec(ctx,
			`UPDATE giveaways SET participants_count = participants_count + 1 WHERE id = $1`, p.GiveawayID)
		if err != nil {
			return fmt.Errorf("failed to increment participants: %w", err)
		}
		return nil
	})
}

func (r *Repository) ClearParticipants(ctx context.Context, giveawayID string) (int64, error) {
	var deleted int64
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockGiveaway(ctx, tx, giveawayID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM participants WHERE giveaway_id = $1`, giveawayID)
		if err != nil {
			return fmt.Errorf("failed to delete participants: %w", err)
		}
		deleted = tag.RowsAffected()

		_, err = tx.Exec(ctx,
			`UPDATE giveaways SET participants_count = 0, winner = '' WHERE id = $1`, giveawayID)
		if err != nil {
			return fmt.Errorf("failed to reset participants: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *Repository) ListParticipants(ctx context.Context, giveawayID string) ([]*models.Participant, error) {
	query := `
		SELECT id, username, joined_at, giveaway_id
		FROM participants
		WHERE giveaway_id = $1
		ORDER BY seq
	`
	rows, err := r.db.Query(ctx, query, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.Username, &p.JoinedAt, &p.GiveawayID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.JoinedAt = p.JoinedAt.UTC()
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *Repository) CountParticipants(ctx context.Context, giveawayID string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM participants WHERE giveaway_id = $1`, giveawayID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return n, nil
}

func (r *Repository) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, giveaway_id, username, message, sent_at, is_keyword, is_system)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		m.ID, m.GiveawayID, m.Username, m.Message, m.Timestamp, m.IsKeyword, m.IsSystem)
	if err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

func (r *Repository) ListMessages(ctx context.Context, giveawayID string, limit int) ([]*models.ChatMessage, error) {
	var lim any
	if limit > 0 {
		lim = int64(limit)
	}

	query := `
		SELECT id, COALESCE(giveaway_id, ''), username, message, sent_at, is_keyword, is_system
		FROM (
			SELECT * FROM chat_messages
			WHERE giveaway_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) newest
		ORDER BY seq
	`
	rows, err := r.db.Query(ctx, query, giveawayID, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]*models.ChatMessage, 0)
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.GiveawayID, &m.Username, &m.Message,
			&m.Timestamp, &m.IsKeyword, &m.IsSystem); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.Timestamp = m.Timestamp.UTC()
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *Repository) Clear(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `TRUNCATE giveaways, participants, chat_messages RESTART IDENTITY`)
	if err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}
