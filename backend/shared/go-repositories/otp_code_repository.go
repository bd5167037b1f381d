// go-repositories/otp_code_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-models"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// ConsumedRetention is how long verified codes are kept before cleanup.
const ConsumedRetention = 24 * time.Hour

type OtpCodeRepository interface {
	ReplaceCode(ctx context.Context, phone, code string, expiresAt time.Time) (*models.OtpCode, error)
	ConsumeCode(ctx context.Context, phone, code string, now time.Time) (*models.OtpCode, error)
	RevertConsume(ctx context.Context, id uuid.UUID) error
	DeleteCode(ctx context.Context, id uuid.UUID) error
	GetLatest(ctx context.Context, phone string) (*models.OtpCode, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type otpCodeRepository struct {
	db DB
}

func NewOtpCodeRepository(db DB) OtpCodeRepository {
	return &otpCodeRepository{db: db}
}

const otpColumns = `id, phone_number, code, expires_at, attempts, verified, verified_at, created_at`

// ReplaceCode deletes every code for phone and inserts the new one in the
// same transaction. A transaction-scoped advisory lock on the phone
// serializes concurrent issuances, so only one live row survives.
func (r *otpCodeRepository) ReplaceCode(
	ctx context.Context,
	phone, code string,
	expiresAt time.Time,
) (*models.OtpCode, error) {
	var rec *models.OtpCode
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, phone); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM otp_codes WHERE phone_number = $1`, phone); err != nil {
			return err
		}
		q := `
            INSERT INTO otp_codes (id, phone_number, code, expires_at, attempts, verified, created_at)
            VALUES ($1, $2, $3, $4, 0, FALSE, NOW())
            RETURNING ` + otpColumns
		var scanErr error
		rec, scanErr = scanOtpCode(tx.QueryRow(ctx, q, uuid.New(), phone, code, expiresAt))
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ConsumeCode checks code against the live row for phone in one statement.
// Every check, right or wrong, spends one attempt; once utils.MaxOTPAttempts
// have been spent the row no longer matches, even for the right code. Two
// concurrent attempts with the same code cannot both succeed.
func (r *otpCodeRepository) ConsumeCode(
	ctx context.Context,
	phone, code string,
	now time.Time,
) (*models.OtpCode, error) {
	q := `
        UPDATE otp_codes
        SET attempts    = attempts + 1,
            verified    = (code = $2),
            verified_at = CASE WHEN code = $2 THEN NOW() ELSE NULL END
        WHERE phone_number = $1
          AND verified = FALSE
          AND expires_at >= $3
          AND attempts < $4
        RETURNING ` + otpColumns
	rec, err := scanOtpCode(r.db.QueryRow(ctx, q, phone, code, now, utils.MaxOTPAttempts))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrInvalidOrExpiredCode
		}
		return nil, err
	}
	if !rec.Verified {
		return nil, utils.ErrInvalidOrExpiredCode
	}
	return rec, nil
}

func (r *otpCodeRepository) RevertConsume(ctx context.Context, id uuid.UUID) error {
	q := `
        UPDATE otp_codes
        SET verified = FALSE,
            verified_at = NULL,
            attempts = GREATEST(attempts - 1, 0)
        WHERE id = $1 AND verified = TRUE
    `
	tag, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrNoRowsUpdated
	}
	return nil
}

func (r *otpCodeRepository) DeleteCode(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM otp_codes WHERE id = $1`, id)
	return err
}

func (r *otpCodeRepository) GetLatest(ctx context.Context, phone string) (*models.OtpCode, error) {
	q := `SELECT ` + otpColumns + ` FROM otp_codes WHERE phone_number = $1 ORDER BY created_at DESC LIMIT 1`
	rec, err := scanOtpCode(r.db.QueryRow(ctx, q, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (r *otpCodeRepository) CleanupExpired(ctx context.Context) (int64, error) {
	q := `
        DELETE FROM otp_codes
        WHERE
          (verified = FALSE AND expires_at < NOW())
          OR
          (verified = TRUE AND verified_at < NOW() - $1::interval)
    `
	tag, err := r.db.Exec(ctx, q, ConsumedRetention)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanOtpCode(row pgx.Row) (*models.OtpCode, error) {
	var rec models.OtpCode
	if err := row.Scan(
		&rec.ID,
		&rec.PhoneNumber,
		&rec.Code,
		&rec.ExpiresAt,
		&rec.Attempts,
		&rec.Verified,
		&rec.VerifiedAt,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
