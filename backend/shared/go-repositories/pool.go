package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

const (
	maxConnectRetries = 5
	connectTimeout    = 5 * time.Second
	initialBackoff    = 500 * time.Millisecond
)

// OpenPool connects to Postgres, retrying with exponential backoff while
// the database comes up.
func OpenPool(databaseURL string) (*pgxpool.Pool, error) {
	var (
		pool    *pgxpool.Pool
		err     error
		backoff = initialBackoff
	)

	for i := 1; i <= maxConnectRetries; i++ {
		pool, err = connectOnce(databaseURL)
		if err == nil {
			utils.Logger.Infof("Successfully connected to database on attempt %d", i)
			return pool, nil
		}

		utils.Logger.WithError(err).Warnf(
			"Failed to connect to database on attempt %d/%d. Retrying in %v...",
			i, maxConnectRetries, backoff,
		)
		if i == maxConnectRetries {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxConnectRetries, err)
}

func connectOnce(databaseURL string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	// Retire idle sockets before typical proxy idle timeouts.
	cfg.MaxConnIdleTime = 2 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
