package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Store = (*Postgres)(nil)

type Postgres struct {
	pgRepos
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pgRepos: pgRepos{q: pool}, pool: pool}
}

func (s *Postgres) WithTx(ctx context.Context, fn func(tx Repos) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := fn(pgRepos{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Storage(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type pgRepos struct {
	q querier
}

func (r pgRepos) Projects() ProjectRepository         { return &projectRepo{q: r.q} }
func (r pgRepos) Templates() TemplateRepository       { return &templateRepo{q: r.q} }
func (r pgRepos) ModelConfigs() ModelConfigRepository { return &modelConfigRepo{q: r.q} }
func (r pgRepos) Prompts() PromptRepository           { return &promptRepo{q: r.q} }
func (r pgRepos) Tests() TestRepository               { return &testRepo{q: r.q} }

// mapErr converts driver errors into the store's error contract.
func mapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, apperrors.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, apperrors.ErrConflict)
	}
	return apperrors.Storage(fmt.Errorf("%s: %w", op, err))
}

func requireAffected(op string, tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrNotFound)
	}
	return nil
}

func nameExists(ctx context.Context, q querier, table, name string, exclude any) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE name = $1 AND id <> $2)`,
		name, exclude,
	).Scan(&exists)
	if err != nil {
		return false, mapErr("check "+table+" name", err)
	}
	return exists, nil
}
