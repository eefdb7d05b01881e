package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"marketsim/internal/application/port"
	"marketsim/internal/domain"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS accounts (
  user_id TEXT PRIMARY KEY,
  balance REAL NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  entry_price REAL NOT NULL,
  opened_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_positions_user ON positions(user_id);

CREATE TABLE IF NOT EXISTS transactions (
  tx_id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  ts_ms INTEGER NOT NULL,
  amount REAL NOT NULL,
  balance_after REAL NOT NULL,
  source TEXT NOT NULL,
  label TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, tx_id);

CREATE TABLE IF NOT EXISTS equity_snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  ts_ms INTEGER NOT NULL,
  balance REAL NOT NULL,
  equity REAL NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_equity_user_ts ON equity_snapshots(user_id, ts_ms);
`)
	return err
}

// SaveAccount replaces the stored state for userID in one transaction:
// last-write-wins, positions and the visible transaction log are rewritten
// wholesale.
func (r *Repo) SaveAccount(ctx context.Context, userID string, acct domain.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO accounts(user_id, balance, updated_at) VALUES(?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET balance=excluded.balance, updated_at=excluded.updated_at`,
		userID, acct.Balance, now); err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for _, pos := range acct.Positions {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO positions(user_id, symbol, entry_price, opened_at_ms) VALUES(?, ?, ?, ?)`,
			userID, pos.Symbol, pos.EntryPrice, pos.OpenedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert position: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for _, t := range acct.Transactions {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO transactions(tx_id, user_id, ts_ms, amount, balance_after, source, label)
VALUES(?, ?, ?, ?, ?, ?, ?)`,
			t.ID, userID, t.Time.UnixMilli(), t.Amount, t.BalanceAfter, t.Source, t.Label); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
	}

	return tx.Commit()
}

func (r *Repo) LoadAccount(ctx context.Context, userID string) (domain.Account, bool, error) {
	var acct domain.Account

	err := r.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE user_id = ?`, userID).Scan(&acct.Balance)
	if err == sql.ErrNoRows {
		return domain.Account{}, false, nil
	}
	if err != nil {
		return domain.Account{}, false, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT symbol, entry_price, opened_at_ms FROM positions WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return domain.Account{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var pos domain.Position
		var openedMs int64
		if err := rows.Scan(&pos.Symbol, &pos.EntryPrice, &openedMs); err != nil {
			return domain.Account{}, false, err
		}
		pos.OpenedAt = time.UnixMilli(openedMs)
		acct.Positions = append(acct.Positions, pos)
	}
	if err := rows.Err(); err != nil {
		return domain.Account{}, false, err
	}

	// ULIDs sort by generation time, so tx_id order is issuance order.
	txRows, err := r.db.QueryContext(ctx, `
SELECT tx_id, ts_ms, amount, balance_after, source, label
FROM transactions WHERE user_id = ? ORDER BY tx_id`, userID)
	if err != nil {
		return domain.Account{}, false, err
	}
	defer txRows.Close()
	for txRows.Next() {
		var t domain.Transaction
		var tsMs int64
		if err := txRows.Scan(&t.ID, &tsMs, &t.Amount, &t.BalanceAfter, &t.Source, &t.Label); err != nil {
			return domain.Account{}, false, err
		}
		t.Time = time.UnixMilli(tsMs)
		acct.Transactions = append(acct.Transactions, t)
	}
	if err := txRows.Err(); err != nil {
		return domain.Account{}, false, err
	}

	return acct, true, nil
}

func (r *Repo) InsertEquitySnapshot(ctx context.Context, userID string, ts int64, balance, equity float64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO equity_snapshots(user_id, ts_ms, balance, equity, created_at)
VALUES(?, ?, ?, ?, ?)`,
		userID, ts, balance, equity, time.Now().UnixMilli())
	return err
}

// DeleteOldSnapshots prunes equity samples older than before.
func (r *Repo) DeleteOldSnapshots(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM equity_snapshots WHERE ts_ms < ?`, before.UnixMilli())
	return err
}

var _ port.ProfileRepository = (*Repo)(nil)
