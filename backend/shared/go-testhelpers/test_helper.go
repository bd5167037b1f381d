package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-repositories"
)

// TestHelper bundles a live Postgres connection and the repositories for
// integration tests. It needs TEST_DATABASE_URL.
type TestHelper struct {
	T   *testing.T
	Ctx context.Context
	DB  *pgxpool.Pool

	OtpRepo     repositories.OtpCodeRepository
	AccountRepo repositories.AccountRepository
	ProfileRepo repositories.ProfileRepository
	SessionRepo repositories.ChatSessionRepository
}

// NewTestHelper connects, applies the schema and wires the repositories.
// The test is skipped when TEST_DATABASE_URL is unset.
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.Connect(ctx, dbURL)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)

	require.NoError(t, repositories.Migrate(ctx, pool), "Failed to apply schema")

	return &TestHelper{
		T:           t,
		Ctx:         context.Background(),
		DB:          pool,
		OtpRepo:     repositories.NewOtpCodeRepository(pool),
		AccountRepo: repositories.NewAccountRepository(pool),
		ProfileRepo: repositories.NewProfileRepository(pool),
		SessionRepo: repositories.NewChatSessionRepository(pool),
	}
}
