package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"time"

	"github.com/redis/go-redis/v9"

	"marketsim/internal/application/port"
	"marketsim/internal/domain"
)

// Repo keeps the latest account state in a hash and publishes tick frames
// for out-of-process consumers. Equity samples go to a stream.
type Repo struct {
	rdb         *redis.Client
	prefix      string
	ttl         time.Duration
	keyProfiles string // prefix + ":profiles"
	equityKey   string // prefix + ":equity"
	tickChan    string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, tickChan string) *Repo {
	if tickChan == "" {
		tickChan = prefix + ":ticks"
	}
	return &Repo{
		rdb:         rdb,
		prefix:      prefix,
		ttl:         ttl,
		keyProfiles: prefix + ":profiles",
		equityKey:   prefix + ":equity",
		tickChan:    tickChan,
	}
}

func (r *Repo) SaveAccount(ctx context.Context, userID string, acct domain.Account) error {
	b, err := json.Marshal(acct)
	if err != nil {
		return err
	}

	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyProfiles, userID, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyProfiles, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) LoadAccount(ctx context.Context, userID string) (domain.Account, bool, error) {
	payload, err := r.rdb.HGet(ctx, r.keyProfiles, userID).Result()
	if err == redis.Nil {
		return domain.Account{}, false, nil
	}
	if err != nil {
		return domain.Account{}, false, err
	}

	var acct domain.Account
	if err := json.Unmarshal([]byte(payload), &acct); err != nil {
		return domain.Account{}, false, err
	}
	return acct, true, nil
}

func (r *Repo) InsertEquitySnapshot(ctx context.Context, userID string, ts int64, balance, equity float64) error {
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.equityKey,
		Values: map[string]any{
			"user":    userID,
			"ts_ms":   ts,
			"balance": balance,
			"equity":  equity,
		},
	}).Result()
	return err
}

// PublishTick pushes one price update to the tick channel for external
// subscribers (dashboards, bots). Best-effort; simplest possible JSON.
func (r *Repo) PublishTick(ctx context.Context, symbol string, price float64, ts int64) error {
	msg := fmt.Sprintf(`{"ts_ms":%d,"symbol":"%s","price":%.2f}`, ts, symbol, price)
	return r.rdb.Publish(ctx, r.tickChan, msg).Err()
}

func (r *Repo) Close() error { return nil } // client lifetime owned by caller

var _ port.ProfileRepository = (*Repo)(nil)
