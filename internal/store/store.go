package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// SearchRecord is one answered route query.
type SearchRecord struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"` // "lowestcost" or "ranked"
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Outbound    string    `json:"outbound_date"`
	Return      string    `json:"return_date"`
	Airlines    string    `json:"airlines"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

// Recorder persists answered searches.
type Recorder interface {
	Record(ctx context.Context, rec SearchRecord) error
	Recent(ctx context.Context, limit int) ([]SearchRecord, error)
}

// Open connects to Postgres through the pgx database/sql driver.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verify postgres connection: %w", err)
	}
	return db, nil
}

// InitSchema creates the search log table.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS searches (
			id            TEXT PRIMARY KEY,
			kind          TEXT NOT NULL,
			origin        TEXT NOT NULL,
			destination   TEXT NOT NULL,
			outbound_date DATE NOT NULL,
			return_date   DATE NOT NULL,
			airlines      TEXT NOT NULL,
			price         DOUBLE PRECISION NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at DESC)`,
	}
	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}
	return nil
}

type PostgresSearchLog struct {
	DB  *sql.DB
	now func() time.Time
}

func NewPostgresSearchLog(db *sql.DB) *PostgresSearchLog {
	return &PostgresSearchLog{DB: db, now: time.Now}
}

func (s *PostgresSearchLog) Record(ctx context.Context, rec SearchRecord) error {
	if s.DB == nil {
		return errors.New("search log: DB is nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO searches (id, kind, origin, destination, outbound_date, return_date, airlines, price, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Kind, rec.Origin, rec.Destination, rec.Outbound, rec.Return, rec.Airlines, rec.Price, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

func (s *PostgresSearchLog) Recent(ctx context.Context, limit int) ([]SearchRecord, error) {
	if s.DB == nil {
		return nil, errors.New("search log: DB is nil")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT id, kind, origin, destination,
		to_char(outbound_date, 'YYYY-MM-DD'), to_char(return_date, 'YYYY-MM-DD'),
		airlines, price, created_at
	FROM searches
	ORDER BY created_at DESC
	LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent searches: query: %w", err)
	}
	defer rows.Close()

	out := make([]SearchRecord, 0, limit)
	for rows.Next() {
		var r SearchRecord
		if err := rows.Scan(&r.ID, &r.Kind, &r.Origin, &r.Destination, &r.Outbound, &r.Return, &r.Airlines, &r.Price, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("recent searches: scan row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent searches: row iteration: %w", err)
	}
	return out, nil
}

// MemorySearchLog keeps the newest searches in process. It is used when no
// database is configured.
type MemorySearchLog struct {
	mu      sync.Mutex
	records []SearchRecord
	max     int
	now     func() time.Time
}

func NewMemorySearchLog(max int) *MemorySearchLog {
	if max <= 0 {
		max = 100
	}
	return &MemorySearchLog{max: max, now: time.Now}
}

func (m *MemorySearchLog) Record(_ context.Context, rec SearchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	if len(m.records) > m.max {
		m.records = m.records[len(m.records)-m.max:]
	}
	return nil
}

// Recent returns newest first.
func (m *MemorySearchLog) Recent(_ context.Context, limit int) ([]SearchRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SearchRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}
