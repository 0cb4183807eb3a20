package postgres

import (
	"context"
	"database/sql"
	"errors"
)

// Schema is the table Snapshots reads and writes.
const Schema = `CREATE TABLE IF NOT EXISTS cart_snapshots (
	key TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Snapshots persists cart snapshots in PostgreSQL.
type Snapshots struct {
	db *sql.DB
}

// New creates a PostgreSQL snapshot slot. Call EnsureSchema once at startup.
func New(db *sql.DB) *Snapshots {
	return &Snapshots{db: db}
}

// EnsureSchema creates the cart_snapshots table if needed.
func (s *Snapshots) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

// Load retrieves the snapshot stored under key.
func (s *Snapshots) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM cart_snapshots WHERE key=$1", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(data), true, nil
}

// Save upserts the snapshot under key.
func (s *Snapshots) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cart_snapshots (key,data,updated_at) VALUES ($1,$2,now())
		 ON CONFLICT (key) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`,
		key, string(data))
	return err
}

// Ping checks the database connection.
func (s *Snapshots) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
