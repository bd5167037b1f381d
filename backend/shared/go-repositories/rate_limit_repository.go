package repositories

import (
	"context"
	"time"
)

// RateLimitRepository provides an atomic way to check and increment
// fixed-window counters.
type RateLimitRepository interface {
	// IncrementAndCheck bumps the counter for key, starting a new window
	// when the previous one has lapsed, and reports whether the new count
	// is still within limit.
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// CleanupExpired removes all counter keys whose window has lapsed.
	CleanupExpired(ctx context.Context) error
}

type rateLimitRepository struct {
	db DB
}

func NewRateLimitRepository(db DB) RateLimitRepository {
	return &rateLimitRepository{db: db}
}

func (r *rateLimitRepository) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	query := `
        INSERT INTO rate_limit_attempts (key, attempt_count, expires_at)
        VALUES ($1, 1, NOW() + $2::interval)
        ON CONFLICT (key) DO UPDATE
        SET attempt_count = CASE
                WHEN rate_limit_attempts.expires_at < NOW() THEN 1
                ELSE rate_limit_attempts.attempt_count + 1
            END,
            expires_at = CASE
                WHEN rate_limit_attempts.expires_at < NOW() THEN NOW() + $2::interval
                ELSE rate_limit_attempts.expires_at
            END
        RETURNING attempt_count
    `

	var currentCount int
	if err := r.db.QueryRow(ctx, query, key, window).Scan(&currentCount); err != nil {
		return false, err
	}
	return currentCount <= limit, nil
}

func (r *rateLimitRepository) CleanupExpired(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM rate_limit_attempts WHERE expires_at < NOW()`)
	return err
}
