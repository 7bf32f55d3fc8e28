package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/domain/repository"
)

const defaultRecentLimit = 50

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage keeps the board transition journal in PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type transitionRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Transitions returns the journal repository.
func (s *Storage) Transitions() repository.TransitionRepository {
	return &transitionRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS board_transitions (
            id UUID PRIMARY KEY,
            order_id BIGINT NOT NULL,
            from_status TEXT NOT NULL DEFAULT '',
            to_status TEXT NOT NULL DEFAULT '',
            outcome TEXT NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            error TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_board_transitions_created ON board_transitions(created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

func (r *transitionRepository) Record(ctx context.Context, rec model.TransitionRecord) error {
	const query = `INSERT INTO board_transitions (id, order_id, from_status, to_status, outcome, reason, error, created_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.storage.pool.Exec(ctx, query,
		rec.ID, rec.OrderID, string(rec.From), string(rec.To), string(rec.Outcome), rec.Reason, rec.Error, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

func (r *transitionRepository) Recent(ctx context.Context, limit int) ([]model.TransitionRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	const query = `SELECT id, order_id, from_status, to_status, outcome, reason, error, created_at
                   FROM board_transitions ORDER BY created_at DESC LIMIT $1`
	rows, err := r.storage.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.TransitionRecord, 0, limit)
	for rows.Next() {
		var (
			rec               model.TransitionRecord
			from, to, outcome string
		)
		if err := rows.Scan(&rec.ID, &rec.OrderID, &from, &to, &outcome, &rec.Reason, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.From = model.OrderStatus(from)
		rec.To = model.OrderStatus(to)
		rec.Outcome = model.TransitionOutcome(outcome)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (r *transitionRepository) Ping(ctx context.Context) error {
	return r.storage.HealthCheck(ctx)
}
