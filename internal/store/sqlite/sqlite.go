// Package sqlite provides a SQLite implementation of store.Store for the local
// build target. Tags are stored as a JSON array and timestamps as millisecond
// ISO-8601 text assigned by column defaults.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/matoous/changelog/internal/ids"
	"github.com/matoous/changelog/internal/model"
	"github.com/matoous/changelog/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout matches the column default format and sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05.000Z"

const (
	opAdd  = "entries.add"
	opList = "entries.list"
)

// Conn is a checked-out *sql.Conn.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Release()
}

type conn struct{ *sql.Conn }

func (c conn) Release() { _ = c.Close() }

// Pool adapts *sql.DB to store.Pool.
type Pool struct{ DB *sql.DB }

var _ store.Pool[Conn] = Pool{}

func (p Pool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return conn{c}, nil
}

func (p Pool) Ping(ctx context.Context) error { return p.DB.PingContext(ctx) }

func (p Pool) Close() { _ = p.DB.Close() }

// Open opens the SQLite database at path with WAL journaling and a busy timeout
// applied to every pooled connection.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the entries table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}

// NewWithDB constructs a SQLite store backed by db.
func NewWithDB(db *sql.DB, opts store.Options) store.Store {
	return New(Pool{DB: db}, opts)
}

// New constructs a SQLite store over any pool capability.
func New(p store.Pool[Conn], opts store.Options) store.Store {
	opts = opts.WithDefaults()
	return &sqliteStore{pool: p, entries: &entries{pool: p, ids: opts.IDs, timeouts: opts.Timeouts}}
}

type sqliteStore struct {
	pool    store.Pool[Conn]
	entries *entries
}

func (s *sqliteStore) Entries() store.Entries { return s.entries }

func (s *sqliteStore) HealthPing(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *sqliteStore) Close() error {
	s.pool.Close()
	return nil
}

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
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, store.MappingError(opAdd, err)
	}
	out := model.Entry{ID: id, Tags: tags, Text: in.Text, Description: in.Description}

	err = store.WithConn(ctx, e.pool, e.timeouts, opAdd, func(ctx context.Context, c Conn) error {
		var created, updated string
		row := c.QueryRowContext(ctx, `
        INSERT INTO entries (id, tags, text, description)
        VALUES (?,?,?,?)
        RETURNING created_at, updated_at
    `, id, string(tagsJSON), in.Text, in.Description)
		if err := row.Scan(&created, &updated); err != nil {
			return classify(opAdd, err)
		}
		createdAt, updatedAt, err := parseTimes(created, updated)
		if err != nil {
			return store.MappingError(opAdd, err)
		}
		out.CreatedAt, out.UpdatedAt = createdAt, updatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *entries) List(ctx context.Context, req model.ListEntriesRequest) ([]*model.Entry, error) {
	var (
		where []string
		args  []any
	)
	if req.Before != nil {
		where = append(where, "created_at < ?")
		args = append(args, req.Before.UTC().Format(timeLayout))
	}
	query := `SELECT id, tags, text, description, created_at, updated_at FROM entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if req.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, req.Limit)
	}

	out := []*model.Entry{}
	err := store.WithConn(ctx, e.pool, e.timeouts, opList, func(ctx context.Context, c Conn) error {
		rows, err := c.QueryContext(ctx, query, args...)
		if err != nil {
			return classify(opList, err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var (
				m                      model.Entry
				tags, created, updated string
				desc                   sql.NullString
			)
			if err := rows.Scan(&m.ID, &tags, &m.Text, &desc, &created, &updated); err != nil {
				return store.MappingError(opList, err)
			}
			if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
				return store.MappingError(opList, fmt.Errorf("entry %s tags: %w", m.ID, err))
			}
			if m.Tags == nil {
				m.Tags = []string{}
			}
			if desc.Valid {
				d := desc.String
				m.Description = &d
			}
			if m.CreatedAt, m.UpdatedAt, err = parseTimes(created, updated); err != nil {
				return store.MappingError(opList, err)
			}
			out = append(out, &m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseTimes(created, updated string) (time.Time, time.Time, error) {
	c, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	u, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	return c.UTC(), u.UTC(), nil
}

func classify(op string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		return &store.Error{Op: op, Kind: store.KindQuery, Err: fmt.Errorf("%w: %v", model.ErrConflict, err)}
	}
	return &store.Error{Op: op, Kind: store.KindQuery, Err: err}
}
