package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-models"
)

type ProfileRepository interface {
	// Upsert creates or refreshes the profile. An empty fullName keeps the
	// stored name.
	Upsert(ctx context.Context, id uuid.UUID, fullName, phone string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type profileRepository struct {
	db DB
}

func NewProfileRepository(db DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Upsert(ctx context.Context, id uuid.UUID, fullName, phone string) error {
	q := `
        INSERT INTO profiles (id, full_name, phone_number, created_at, updated_at)
        VALUES ($1, NULLIF($2, ''), $3, NOW(), NOW())
        ON CONFLICT (id) DO UPDATE
        SET full_name    = COALESCE(NULLIF($2, ''), profiles.full_name),
            phone_number = EXCLUDED.phone_number,
            updated_at   = NOW()
    `
	_, err := r.db.Exec(ctx, q, id, fullName, phone)
	return err
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	q := `SELECT id, full_name, phone_number, created_at, updated_at FROM profiles WHERE id = $1`
	var p models.Profile
	err := r.db.QueryRow(ctx, q, id).Scan(&p.ID, &p.FullName, &p.PhoneNumber, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
