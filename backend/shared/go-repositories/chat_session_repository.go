package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-models"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

type ChatSessionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChatSession, error)
	// StampEnded records the session end time and marks it completed. Only
	// the session's owner can stamp it.
	StampEnded(ctx context.Context, id, userID uuid.UUID) error
}

type chatSessionRepository struct {
	db DB
}

func NewChatSessionRepository(db DB) ChatSessionRepository {
	return &chatSessionRepository{db: db}
}

func (r *chatSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	q := `
        SELECT id, user_id, started_at, ended_at, status, rating, feedback
        FROM chat_sessions
        WHERE id = $1
    `
	var s models.ChatSession
	err := r.db.QueryRow(ctx, q, id).Scan(
		&s.ID, &s.UserID, &s.StartedAt, &s.EndedAt, &s.Status, &s.Rating, &s.Feedback,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *chatSessionRepository) StampEnded(ctx context.Context, id, userID uuid.UUID) error {
	q := `
        UPDATE chat_sessions
        SET ended_at = NOW(),
            status   = $3
        WHERE id = $1 AND user_id = $2
    `
	tag, err := r.db.Exec(ctx, q, id, userID, string(models.ChatSessionStatusCompleted))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrNoRowsUpdated
	}
	return nil
}
