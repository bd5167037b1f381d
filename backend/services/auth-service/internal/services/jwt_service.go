package services

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-middleware"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-repositories"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// ---------------------------------------------------------------------
// JWTService interface
// ---------------------------------------------------------------------

type JWTService interface {
	GenerateAccessToken(subjectID uuid.UUID) (string, time.Time, error)

	// ExchangePassword trades a verification-issued temp password for an
	// access token. The password works exactly once.
	ExchangePassword(ctx context.Context, email, password string) (*TokenResult, error)
}

type TokenResult struct {
	AccessToken string
	ExpiresAt   time.Time
	UserID      uuid.UUID
}

// ---------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------

type jwtService struct {
	privateKey *rsa.PrivateKey
	accounts   repositories.AccountRepository
	ttl        time.Duration
	now        func() time.Time
}

func NewJWTService(privateKey *rsa.PrivateKey, accounts repositories.AccountRepository, ttl time.Duration) JWTService {
	return &jwtService{
		privateKey: privateKey,
		accounts:   accounts,
		ttl:        ttl,
		now:        time.Now,
	}
}

// ---------------------------------------------------------------------
// GenerateAccessToken
// ---------------------------------------------------------------------
func (j *jwtService) GenerateAccessToken(subjectID uuid.UUID) (string, time.Time, error) {
	now := j.now()
	exp := now.Add(j.ttl)
	claims := jwt.MapClaims{
		"iss": middleware.TokenIssuer,
		"sub": subjectID.String(),
		"exp": exp.Unix(),
		"iat": now.Unix(),
		"jti": uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(j.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// ---------------------------------------------------------------------
// ExchangePassword
// ---------------------------------------------------------------------
func (j *jwtService) ExchangePassword(ctx context.Context, email, password string) (*TokenResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	acct, err := j.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if acct == nil || acct.PasswordHash == nil {
		return nil, utils.ErrInvalidCredentials
	}
	if !utils.CheckPasswordHash(password, *acct.PasswordHash) {
		return nil, utils.ErrInvalidCredentials
	}

	// Burn the temp password; a concurrent exchange that lost the race
	// sees the hash already gone.
	cleared, err := j.accounts.ClearPasswordHashIfMatches(ctx, acct.ID, *acct.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("clear temp password: %w", err)
	}
	if !cleared {
		return nil, utils.ErrInvalidCredentials
	}

	if err := j.accounts.TouchLastSignIn(ctx, acct.ID); err != nil {
		utils.Logger.WithError(err).Warn("Failed to record last sign-in")
	}

	token, exp, err := j.GenerateAccessToken(acct.ID)
	if err != nil {
		return nil, err
	}
	return &TokenResult{AccessToken: token, ExpiresAt: exp, UserID: acct.ID}, nil
}
