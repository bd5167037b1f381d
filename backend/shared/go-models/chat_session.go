package models

import (
	"time"

	"github.com/google/uuid"
)

type ChatSessionStatus string

const (
	ChatSessionStatusActive    ChatSessionStatus = "active"
	ChatSessionStatusCompleted ChatSessionStatus = "completed"
)

// ChatSession is the metadata of one support conversation. Transcripts are
// not stored server-side.
type ChatSession struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	StartedAt time.Time
	EndedAt   *time.Time
	Status    ChatSessionStatus
	Rating    *int
	Feedback  *string
}
