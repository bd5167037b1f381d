package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-repositories"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// ------------------------------------------------------------------
// Service
// ------------------------------------------------------------------

type ChatService interface {
	// Configured reports whether an LLM backend is available.
	Configured() bool
	Reply(ctx context.Context, in ChatInput) (*ChatReply, error)
}

type ChatInput struct {
	Message   string
	SessionID string
	UserID    string
	History   []ChatTurn
}

type ChatReply struct {
	Response  string
	SessionID string
}

// ChatOptions tunes completions. Persona values, when set, win over the
// Model / MaxTokens / Temperature given here.
type ChatOptions struct {
	Model           string
	MaxTokens       int64
	Temperature     float64
	HistoryTurns    int
	StampSessionEnd bool
	StampTimeout    time.Duration
	Persona         *Persona
}

const (
	DefaultModel        = "gpt-4o-mini"
	DefaultMaxTokens    = 500
	DefaultTemperature  = 0.7
	DefaultHistoryTurns = 6
	DefaultStampTimeout = 5 * time.Second
)

type chatService struct {
	completer ChatCompleter
	sessions  repositories.ChatSessionRepository
	opts      ChatOptions
}

// NewChatService builds the chat relay. A nil completer leaves the service
// unconfigured: every Reply fails with utils.ErrLLMNotConfigured.
func NewChatService(
	completer ChatCompleter,
	sessions repositories.ChatSessionRepository,
	opts ChatOptions,
) ChatService {
	if opts.Persona == nil {
		opts.Persona = DefaultPersona()
	}
	if opts.Persona.Model != "" {
		opts.Model = opts.Persona.Model
	}
	if opts.Persona.MaxTokens > 0 {
		opts.MaxTokens = opts.Persona.MaxTokens
	}
	if opts.Persona.Temperature != nil {
		opts.Temperature = *opts.Persona.Temperature
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.HistoryTurns < 0 {
		opts.HistoryTurns = 0
	}
	if opts.StampTimeout <= 0 {
		opts.StampTimeout = DefaultStampTimeout
	}
	return &chatService{completer: completer, sessions: sessions, opts: opts}
}

func (s *chatService) Configured() bool { return s.completer != nil }

func (s *chatService) Reply(ctx context.Context, in ChatInput) (*ChatReply, error) {
	if s.completer == nil {
		return nil, utils.ErrLLMNotConfigured
	}

	text, err := s.completer.Complete(ctx, CompletionRequest{
		Model:       s.opts.Model,
		Messages:    s.buildMessages(in),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrLLMRequestFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty completion", utils.ErrLLMRequestFailed)
	}

	if s.opts.StampSessionEnd && s.sessions != nil {
		s.stampSessionEnd(in.SessionID, in.UserID)
	}

	return &ChatReply{Response: text, SessionID: in.SessionID}, nil
}

// buildMessages lays out system prompt, the tail of the client-held
// history and the new user message.
func (s *chatService) buildMessages(in ChatInput) []ChatTurn {
	history := in.History
	if len(history) > s.opts.HistoryTurns {
		history = history[len(history)-s.opts.HistoryTurns:]
	}

	msgs := make([]ChatTurn, 0, len(history)+2)
	msgs = append(msgs, ChatTurn{Role: RoleSystem, Content: s.opts.Persona.SystemPrompt})
	for _, h := range history {
		if h.Role != RoleUser && h.Role != RoleAssistant {
			continue
		}
		msgs = append(msgs, h)
	}
	return append(msgs, ChatTurn{Role: RoleUser, Content: in.Message})
}

// stampSessionEnd marks the caller's session finished in the background.
// Failures are only logged.
func (s *chatService) stampSessionEnd(sessionID, userID string) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		utils.Logger.WithField("session_id", sessionID).Debug("Session id is not a UUID; skipping end stamp")
		return
	}
	owner, err := uuid.Parse(userID)
	if err != nil {
		utils.Logger.WithField("session_id", id).Debug("User id is not a UUID; skipping end stamp")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.StampTimeout)
		defer cancel()

		if err := s.sessions.StampEnded(ctx, id, owner); err != nil {
			entry := utils.Logger.WithError(err).WithField("session_id", id)
			if errors.Is(err, utils.ErrNoRowsUpdated) {
				entry.Warn("Chat session not found for this user while stamping end time")
				return
			}
			entry.Error("Failed to stamp chat session end time")
		}
	}()
}
