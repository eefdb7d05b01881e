package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"marketsim/internal/application/port"
	"marketsim/internal/domain"
)

// Repo stores the whole account as a JSON document per user. Postgres is an
// optional backend for shared deployments; the schema stays deliberately
// thin, matching the last-write-wins contract.
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

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
CREATE TABLE IF NOT EXISTS profiles (
  user_id TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity_snapshots (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  ts_ms BIGINT NOT NULL,
  balance DOUBLE PRECISION NOT NULL,
  equity DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_equity_user_ts ON equity_snapshots(user_id, ts_ms);
`)
	return err
}

func (r *Repo) SaveAccount(ctx context.Context, userID string, acct domain.Account) error {
	payload, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO profiles(user_id, payload, updated_at) VALUES($1, $2, $3)
ON CONFLICT(user_id) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		userID, string(payload), time.Now().UnixMilli())
	return err
}

func (r *Repo) LoadAccount(ctx context.Context, userID string) (domain.Account, bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM profiles WHERE user_id = $1`, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.Account{}, false, nil
	}
	if err != nil {
		return domain.Account{}, false, err
	}

	var acct domain.Account
	if err := json.Unmarshal([]byte(payload), &acct); err != nil {
		return domain.Account{}, false, fmt.Errorf("decode account: %w", err)
	}
	return acct, true, nil
}

func (r *Repo) InsertEquitySnapshot(ctx context.Context, userID string, ts int64, balance, equity float64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO equity_snapshots(user_id, ts_ms, balance, equity) VALUES($1, $2, $3, $4)`,
		userID, ts, balance, equity)
	return err
}

var _ port.ProfileRepository = (*Repo)(nil)
