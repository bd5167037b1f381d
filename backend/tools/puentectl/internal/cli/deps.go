// Package cli is the cobra command tree for puentectl, the operator tool
// for the Puente backend database.
package cli

import (
	"context"
	"errors"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-repositories"
)

// Stores is what the commands need from the database. Close releases the
// underlying pool.
type Stores struct {
	Migrate   func(ctx context.Context) error
	OtpCodes  repositories.OtpCodeRepository
	RateLimit repositories.RateLimitRepository
	Close     func()
}

var errNoDatabaseURL = errors.New("database url not set: use --database-url or DATABASE_URL")

// openStores is swapped out in tests.
var openStores = func(_ context.Context, databaseURL string) (*Stores, error) {
	if databaseURL == "" {
		return nil, errNoDatabaseURL
	}
	pool, err := repositories.OpenPool(databaseURL)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Migrate:   func(ctx context.Context) error { return repositories.Migrate(ctx, pool) },
		OtpCodes:  repositories.NewOtpCodeRepository(pool),
		RateLimit: repositories.NewRateLimitRepository(pool),
		Close:     pool.Close,
	}, nil
}

func withStores(ctx context.Context, fn func(*Stores) error) error {
	s, err := openStores(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
