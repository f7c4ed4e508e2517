package repository

import (
	"context"
	"database/sql"
	"time"
)

// CacheRepo stores one opaque JSON payload per (account, data type). Callers
// decide freshness from UpdatedAt; the repo never interprets payloads.
type CacheRepo struct {
	db *sql.DB
}

func NewCacheRepo(db *sql.DB) *CacheRepo {
	return &CacheRepo{db: db}
}

func (r *CacheRepo) Put(ctx context.Context, accountID, dataType string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO cache_entries(account_id, data_type, payload, updated_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(account_id, data_type) DO UPDATE SET
	 payload=excluded.payload,
	 updated_at=CURRENT_TIMESTAMP;
	`, accountID, dataType, string(payload))
	return err
}

func (r *CacheRepo) Get(ctx context.Context, accountID, dataType string) (CacheEntry, bool, error) {
	var e CacheEntry
	var payload string
	err := r.db.QueryRowContext(ctx, `
	SELECT account_id, data_type, payload, updated_at FROM cache_entries
	WHERE account_id = ? AND data_type = ?
	`, accountID, dataType).Scan(&e.AccountID, &e.DataType, &payload, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, err
	}
	e.Payload = []byte(payload)
	return e, true, nil
}

// Fresh reports whether a cached payload exists and is younger than maxAge.
func (r *CacheRepo) Fresh(ctx context.Context, accountID, dataType string, maxAge time.Duration) (bool, error) {
	e, ok, err := r.Get(ctx, accountID, dataType)
	if err != nil || !ok {
		return false, err
	}
	return time.Since(e.UpdatedAt) < maxAge, nil
}

func (r *CacheRepo) Delete(ctx context.Context, accountID, dataType string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE account_id = ? AND data_type = ?`, accountID, dataType)
	return err
}

// Purge removes every cached payload for an account.
func (r *CacheRepo) Purge(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE account_id = ?`, accountID)
	return err
}
