// v1
// internal/functions/sql.go
package functions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

const (
	sqliteQuery   = `SELECT COALESCE(CAST(id AS TEXT), ''), COALESCE(name, ''), COALESCE(score, 0) FROM leaderboard ORDER BY score DESC LIMIT ?`
	postgresQuery = `SELECT COALESCE(id::text, ''), COALESCE(name, ''), COALESCE(score, 0)::float8 FROM leaderboard ORDER BY score DESC LIMIT $1`
)

// rowScanner is the iteration surface shared by database/sql and pgx.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// collectRows reads id, name, score triples and ranks them by position.
func collectRows(rows rowScanner) ([]Row, error) {
	out := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Name, &r.Score); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		r.Rank = len(out) + 1
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}
	return out, nil
}

// SQLSource reads the leaderboard table from a database/sql handle. It is
// used with the pure Go SQLite driver.
type SQLSource struct {
	db    *sql.DB
	limit int
}

// OpenSQLite opens the SQLite database at dsn.
func OpenSQLite(dsn string, limit int) (*SQLSource, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return NewSQLSource(db, limit), nil
}

// NewSQLSource wraps an existing handle.
func NewSQLSource(db *sql.DB, limit int) *SQLSource {
	return &SQLSource{db: db, limit: limit}
}

// Name identifies the source in logs.
func (s *SQLSource) Name() string { return "sqlite" }

// Leaderboard returns the top rows by score as a bare array.
func (s *SQLSource) Leaderboard(ctx context.Context, _ int) (any, error) {
	rows, err := s.db.QueryContext(ctx, sqliteQuery, s.limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

// Close releases the database handle.
func (s *SQLSource) Close() error { return s.db.Close() }

// pgQuerier is the part of *pgxpool.Pool the source queries through.
type pgQuerier interface {
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads the leaderboard table through a pgx pool.
type PostgresSource struct {
	db    pgQuerier
	close func()
	limit int
}

// OpenPostgres connects a pool to dsn and pings it.
func OpenPostgres(ctx context.Context, dsn string, limit int) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresSource{db: pool, close: pool.Close, limit: limit}, nil
}

// Name identifies the source in logs.
func (p *PostgresSource) Name() string { return "postgres" }

// Leaderboard returns the top rows by score as a bare array.
func (p *PostgresSource) Leaderboard(ctx context.Context, _ int) (any, error) {
	rows, err := p.db.Query(ctx, postgresQuery, p.limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

// Close releases the pool.
func (p *PostgresSource) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}
