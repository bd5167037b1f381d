// go-repositories/account_repository.go
package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-models"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// AccountRepository is the phone-bound identity store. Both email and
// phone_number carry unique indexes, which is what keeps one account per
// phone when two verifications race.
type AccountRepository interface {
	Create(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*models.Account, error)
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash *string) error
	UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) error
	TouchLastSignIn(ctx context.Context, id uuid.UUID) error
	// ClearPasswordHashIfMatches atomically clears the hash only if it is
	// still the given one, so a temporary password is exchanged at most once.
	ClearPasswordHashIfMatches(ctx context.Context, id uuid.UUID, hash string) (bool, error)
}

type accountRepository struct {
	db DB
}

func NewAccountRepository(db DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, email, phone_number, full_name, password_hash,
       email_confirmed_at, last_sign_in_at, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, a *models.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	q := `
        INSERT INTO accounts (
            id, email, phone_number, full_name, password_hash,
            email_confirmed_at, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), NOW())
        RETURNING email_confirmed_at, created_at, updated_at
    `
	return r.db.QueryRow(ctx, q,
		a.ID, a.Email, a.PhoneNumber, a.FullName, a.PasswordHash,
	).Scan(&a.EmailConfirmedAt, &a.CreatedAt, &a.UpdatedAt)
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

// FindByEmailOrPhone prefers the email match when both exist.
func (r *accountRepository) FindByEmailOrPhone(ctx context.Context, email, phone string) (*models.Account, error) {
	q := `
        SELECT ` + accountColumns + `
        FROM accounts
        WHERE email = $1 OR phone_number = $2
        ORDER BY (email = $1) DESC, created_at ASC
        LIMIT 1
    `
	return r.getOne(ctx, q, email, phone)
}

func (r *accountRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash *string) error {
	return r.execOne(ctx, `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
}

func (r *accountRepository) UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) error {
	return r.execOne(ctx, `UPDATE accounts SET full_name = $2, updated_at = NOW() WHERE id = $1`, id, fullName)
}

func (r *accountRepository) TouchLastSignIn(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, `UPDATE accounts SET last_sign_in_at = NOW() WHERE id = $1`, id)
}

func (r *accountRepository) ClearPasswordHashIfMatches(ctx context.Context, id uuid.UUID, hash string) (bool, error) {
	q := `
        UPDATE accounts
        SET password_hash = NULL,
            last_sign_in_at = NOW(),
            updated_at = NOW()
        WHERE id = $1 AND password_hash = $2
    `
	tag, err := r.db.Exec(ctx, q, id, hash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *accountRepository) execOne(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrAccountNotFound
	}
	return nil
}

// getOne returns (nil, nil) when no row matches.
func (r *accountRepository) getOne(ctx context.Context, q string, args ...any) (*models.Account, error) {
	var a models.Account
	err := r.db.QueryRow(ctx, q, args...).Scan(
		&a.ID,
		&a.Email,
		&a.PhoneNumber,
		&a.FullName,
		&a.PasswordHash,
		&a.EmailConfirmedAt,
		&a.LastSignInAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
