package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matoous/changelog/internal/ids"
	"github.com/matoous/changelog/internal/model"
	"github.com/matoous/changelog/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

const (
	opAdd  = "entries.add"
	opList = "entries.list"
)

// Conn is the subset of a pooled pgx connection the repository uses.
// *pgxpool.Conn satisfies it.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Release()
}

// Open builds a pgx connection pool for dsn and verifies connectivity.
func Open(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres DSN: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// EnsureSchema applies the embedded schema. It is idempotent.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	if _, err := p.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

// Pool adapts *pgxpool.Pool to store.Pool.
type Pool struct{ *pgxpool.Pool }

var _ store.Pool[Conn] = Pool{}

func (p Pool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewWithPool constructs a Postgres store backed by a pgx pool.
func NewWithPool(p *pgxpool.Pool, opts store.Options) store.Store {
	return New(Pool{p}, opts)
}

// New constructs a Postgres store over any pool capability.
func New(p store.Pool[Conn], opts store.Options) store.Store {
	opts = opts.WithDefaults()
	return &pgStore{pool: p, entries: &entries{pool: p, ids: opts.IDs, timeouts: opts.Timeouts}}
}

type pgStore struct {
	pool    store.Pool[Conn]
	entries *entries
}

func (s *pgStore) Entries() store.Entries { return s.entries }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}

// --- Entries ---
type entries struct {
	pool     store.Pool[Conn]
	ids      ids.Generator
	timeouts store.Timeouts
}

func (e *entries) Add(ctx context.Context, in *model.Entry) (*model.Entry, error) {
	id, err := e.ids.NewID()
	if err != nil {
		return nil, &store.Error{Op: opAdd, Kind: store.KindQuery, Err: err}
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	out := model.Entry{ID: id, Tags: tags, Text: in.Text, Description: in.Description}

	err = store.WithConn(ctx, e.pool, e.timeouts, opAdd, func(ctx context.Context, c Conn) error {
		row := c.QueryRow(ctx, `
        INSERT INTO entries (id, tags, text, description)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at, updated_at
    `, id, tags, in.Text, in.Description)
		if err := row.Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
			return classify(opAdd, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.CreatedAt = out.CreatedAt.UTC()
	out.UpdatedAt = out.UpdatedAt.UTC()
	return &out, nil
}

func (e *entries) List(ctx context.Context, req model.ListEntriesRequest) ([]*model.Entry, error) {
	var (
		where []string
		args  []any
	)
	if req.Before != nil {
		args = append(args, *req.Before)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	query := `SELECT id, tags, text, description, created_at, updated_at FROM entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if req.Limit > 0 {
		args = append(args, req.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	out := []*model.Entry{}
	err := store.WithConn(ctx, e.pool, e.timeouts, opList, func(ctx context.Context, c Conn) error {
		rows, err := c.Query(ctx, query, args...)
		if err != nil {
			return classify(opList, err)
		}
		defer rows.Close()
		for rows.Next() {
			var m model.Entry
			if err := rows.Scan(&m.ID, &m.Tags, &m.Text, &m.Description, &m.CreatedAt, &m.UpdatedAt); err != nil {
				return store.MappingError(opList, err)
			}
			if m.Tags == nil {
				m.Tags = []string{}
			}
			m.CreatedAt = m.CreatedAt.UTC()
			m.UpdatedAt = m.UpdatedAt.UTC()
			out = append(out, &m)
		}
		if err := rows.Err(); err != nil {
			return classify(opList, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// classify sorts pgx errors into repository error kinds.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return &store.Error{Op: op, Kind: store.KindQuery, Err: fmt.Errorf("%w: %v", model.ErrConflict, err)}
		}
		return &store.Error{Op: op, Kind: store.KindQuery, Err: err}
	}
	var scanErr pgx.ScanArgError
	if errors.As(err, &scanErr) {
		return store.MappingError(op, err)
	}
	return &store.Error{Op: op, Kind: store.KindQuery, Err: err}
}
