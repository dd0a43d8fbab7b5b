package sqlite

// SQLite-backed wallet registry. The tracking loop reads wallets and
// advances cursors; the chat handler adds and removes rows. SQLite
// serializes individual statements, which is the only atomicity the
// engine relies on.

import (
	"context"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"

	"github.com/v0idum/nft-transfers-tracker/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS wallets (
	name       TEXT    NOT NULL,
	address    TEXT    NOT NULL,
	last_block INTEGER NOT NULL,
	chat_id    INTEGER NOT NULL,
	UNIQUE(name, chat_id)
);`

type Store struct {
	db *sqlx.DB
}

// NewStore opens (or creates) the wallet database at path.
func NewStore(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ListAll returns a snapshot of every tracked wallet, in no particular
// order.
func (s *Store) ListAll(ctx context.Context) ([]domain.Wallet, error) {
	var wallets []domain.Wallet
	err := s.db.SelectContext(ctx, &wallets,
		`SELECT name, address, last_block, chat_id FROM wallets`)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

// ListByChat returns the wallets owned by one chat.
func (s *Store) ListByChat(ctx context.Context, chatID int64) ([]domain.Wallet, error) {
	var wallets []domain.Wallet
	err := s.db.SelectContext(ctx, &wallets,
		`SELECT name, address, last_block, chat_id FROM wallets WHERE chat_id = ?`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets for chat: %w", err)
	}
	return wallets, nil
}

// Add inserts a wallet row. The unique index rejects a duplicate
// (name, chat_id) pair.
func (s *Store) Add(ctx context.Context, w domain.Wallet) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets (name, address, last_block, chat_id) VALUES (?, ?, ?, ?)`,
		w.Name, w.Address, w.CursorBlock, w.ChatID)
	if err != nil {
		return fmt.Errorf("failed to add wallet: %w", err)
	}
	return nil
}

// Delete removes a wallet by its owner-scoped name. Reports whether a
// row actually went away.
func (s *Store) Delete(ctx context.Context, name string, chatID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM wallets WHERE name = ? AND chat_id = ?`, name, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to delete wallet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Exists reports whether the chat already tracks a wallet under name.
func (s *Store) Exists(ctx context.Context, name string, chatID int64) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM wallets WHERE name = ? AND chat_id = ?`, name, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to check wallet: %w", err)
	}
	return count > 0, nil
}

// AdvanceCursor moves the wallet's cursor forward. The guard in the
// WHERE clause keeps the cursor monotonic: a stale or equal block is a
// silent no-op.
func (s *Store) AdvanceCursor(ctx context.Context, address string, chatID int64, newBlock uint64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE wallets SET last_block = ? WHERE address = ? AND chat_id = ? AND last_block < ?`,
		newBlock, address, chatID, newBlock)
	if err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}
	return nil
}
