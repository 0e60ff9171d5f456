// Package store persists host checkpoints and the event journal to SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/chainchat/chainchat/internal/address"
	"github.com/chainchat/chainchat/internal/host"
	"github.com/chainchat/chainchat/internal/ledger"
	"github.com/chainchat/chainchat/internal/state"
)

// Store wraps the SQLite handle.
type Store struct {
	logger *zap.Logger
	db     *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	sequence   INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS balances (
	address BLOB PRIMARY KEY,
	balance INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	address BLOB PRIMARY KEY,
	kind    INTEGER NOT NULL,
	image   BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	sequence INTEGER NOT NULL,
	idx      INTEGER NOT NULL,
	name     TEXT NOT NULL,
	payload  BLOB NOT NULL,
	PRIMARY KEY (sequence, idx)
);
`

// Open opens (or creates) the store at path and ensures the schema.
func Open(logger *zap.Logger, path string) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("store opened", zap.String("path", path))
	return &Store{logger: logger, db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCheckpoint replaces the stored checkpoint with cp in one transaction.
func (s *Store) SaveCheckpoint(ctx context.Context, cp *host.Checkpoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkpoint tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM checkpoints", "DELETE FROM balances", "DELETE FROM records"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear checkpoint: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO checkpoints (id, sequence, created_at) VALUES (1, ?, ?)",
		int64(cp.Sequence), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("failed to write checkpoint header: %w", err)
	}

	balStmt, err := tx.PrepareContext(ctx, "INSERT INTO balances (address, balance) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer balStmt.Close()
	for _, entry := range cp.Balances {
		if _, err := balStmt.ExecContext(ctx, entry.Address[:], int64(entry.Balance)); err != nil {
			return fmt.Errorf("failed to write balance: %w", err)
		}
	}

	recStmt, err := tx.PrepareContext(ctx, "INSERT INTO records (address, kind, image) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer recStmt.Close()
	for _, entry := range cp.Records {
		if _, err := recStmt.ExecContext(ctx, entry.Address[:], int64(entry.Kind), entry.Data); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	s.logger.Debug("checkpoint saved",
		zap.Uint64("sequence", cp.Sequence),
		zap.Int("balances", len(cp.Balances)),
		zap.Int("records", len(cp.Records)),
	)
	return nil
}

// LoadCheckpoint returns the stored checkpoint, or nil when the store is
// empty.
func (s *Store) LoadCheckpoint(ctx context.Context) (*host.Checkpoint, error) {
	var sequence int64
	err := s.db.QueryRowContext(ctx, "SELECT sequence FROM checkpoints WHERE id = 1").Scan(&sequence)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint header: %w", err)
	}
	cp := &host.Checkpoint{Sequence: uint64(sequence)}

	rows, err := s.db.QueryContext(ctx, "SELECT address, balance FROM balances ORDER BY address")
	if err != nil {
		return nil, fmt.Errorf("failed to read balances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		var balance int64
		if err := rows.Scan(&raw, &balance); err != nil {
			return nil, err
		}
		cp.Balances = append(cp.Balances, ledger.BalanceEntry{
			Address: address.FromBytes(raw),
			Balance: uint64(balance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recRows, err := s.db.QueryContext(ctx, "SELECT address, kind, image FROM records ORDER BY address")
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	defer recRows.Close()
	for recRows.Next() {
		var raw, image []byte
		var kind int64
		if err := recRows.Scan(&raw, &kind, &image); err != nil {
			return nil, err
		}
		cp.Records = append(cp.Records, ledger.RecordEntry{
			Address: address.FromBytes(raw),
			Kind:    state.RecordKind(kind),
			Data:    image,
		})
	}
	if err := recRows.Err(); err != nil {
		return nil, err
	}
	return cp, nil
}

// JournalEntry is one persisted event.
type JournalEntry struct {
	Sequence uint64          `json:"sequence"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload"`
}

// AppendEvents journals the events of one applied instruction.
func (s *Store) AppendEvents(ctx context.Context, applied *host.Applied) error {
	if len(applied.Events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin journal tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO events (sequence, idx, name, payload) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range applied.Events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.Name(), err)
		}
		if _, err := stmt.ExecContext(ctx, int64(applied.Sequence), i, e.Name(), payload); err != nil {
			return fmt.Errorf("failed to journal event: %w", err)
		}
	}
	return tx.Commit()
}

// RecentEvents returns up to limit journal entries, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT sequence, name, payload FROM events ORDER BY sequence DESC, idx DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var entry JournalEntry
		var sequence int64
		if err := rows.Scan(&sequence, &entry.Name, (*[]byte)(&entry.Payload)); err != nil {
			return nil, err
		}
		entry.Sequence = uint64(sequence)
		out = append(out, entry)
	}
	return out, rows.Err()
}
