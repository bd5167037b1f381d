package testhelpers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-models"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-repositories"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// ---------------------------------------------------------------------
// OTP codes
// ---------------------------------------------------------------------

// MemOtpStore is an in-memory repositories.OtpCodeRepository. A single mutex
// gives ConsumeCode the same all-or-nothing behaviour as the SQL UPDATE.
type MemOtpStore struct {
	mu    sync.Mutex
	codes map[uuid.UUID]*models.OtpCode

	// Err, when set, is returned by every mutating call.
	Err error
}

var _ repositories.OtpCodeRepository = (*MemOtpStore)(nil)

func NewMemOtpStore() *MemOtpStore {
	return &MemOtpStore{codes: map[uuid.UUID]*models.OtpCode{}}
}

func (s *MemOtpStore) ReplaceCode(_ context.Context, phone, code string, expiresAt time.Time) (*models.OtpCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for id, c := range s.codes {
		if c.PhoneNumber == phone {
			delete(s.codes, id)
		}
	}
	rec := &models.OtpCode{
		ID:          uuid.New(),
		PhoneNumber: phone,
		Code:        code,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}
	s.codes[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (s *MemOtpStore) ConsumeCode(_ context.Context, phone, code string, now time.Time) (*models.OtpCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, c := range s.codes {
		if c.PhoneNumber != phone || c.Verified || c.ExpiresAt.Before(now) || c.Attempts >= utils.MaxOTPAttempts {
			continue
		}
		c.Attempts++
		if c.Code != code {
			return nil, utils.ErrInvalidOrExpiredCode
		}
		c.Verified = true
		c.VerifiedAt = utils.Ptr(now)
		cp := *c
		return &cp, nil
	}
	return nil, utils.ErrInvalidOrExpiredCode
}

func (s *MemOtpStore) RevertConsume(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[id]
	if !ok || !c.Verified {
		return utils.ErrNoRowsUpdated
	}
	c.Verified = false
	c.VerifiedAt = nil
	if c.Attempts > 0 {
		c.Attempts--
	}
	return nil
}

func (s *MemOtpStore) DeleteCode(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, id)
	return nil
}

func (s *MemOtpStore) GetLatest(_ context.Context, phone string) (*models.OtpCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.OtpCode
	for _, c := range s.codes {
		if c.PhoneNumber != phone {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *MemOtpStore) CleanupExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var n int64
	for id, c := range s.codes {
		expired := !c.Verified && c.ExpiresAt.Before(now)
		stale := c.Verified && c.VerifiedAt != nil && c.VerifiedAt.Before(now.Add(-repositories.ConsumedRetention))
		if expired || stale {
			delete(s.codes, id)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored rows for phone.
func (s *MemOtpStore) Count(phone string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.codes {
		if c.PhoneNumber == phone {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------

// MemAccountStore enforces the same unique email / phone constraints as
// the accounts table.
type MemAccountStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account

	// CreateErr, when set, fails Create.
	CreateErr error
}

var _ repositories.AccountRepository = (*MemAccountStore)(nil)

func NewMemAccountStore() *MemAccountStore {
	return &MemAccountStore{accounts: map[uuid.UUID]*models.Account{}}
}

func (s *MemAccountStore) Create(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, a.Email) || existing.PhoneNumber == a.PhoneNumber {
			return ErrUniqueViolation
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt, a.EmailConfirmedAt = now, now, utils.Ptr(now)
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *MemAccountStore) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *MemAccountStore) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemAccountStore) FindByEmailOrPhone(_ context.Context, email, phone string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var byPhone *models.Account
	for _, a := range s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
		if a.PhoneNumber == phone {
			byPhone = a
		}
	}
	if byPhone != nil {
		cp := *byPhone
		return &cp, nil
	}
	return nil, nil
}

func (s *MemAccountStore) SetPasswordHash(_ context.Context, id uuid.UUID, hash *string) error {
	return s.mutate(id, func(a *models.Account) { a.PasswordHash = hash })
}

func (s *MemAccountStore) UpdateFullName(_ context.Context, id uuid.UUID, fullName string) error {
	return s.mutate(id, func(a *models.Account) { a.FullName = utils.Ptr(fullName) })
}

func (s *MemAccountStore) TouchLastSignIn(_ context.Context, id uuid.UUID) error {
	return s.mutate(id, func(a *models.Account) { a.LastSignInAt = utils.Ptr(time.Now()) })
}

func (s *MemAccountStore) ClearPasswordHashIfMatches(_ context.Context, id uuid.UUID, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.PasswordHash == nil || *a.PasswordHash != hash {
		return false, nil
	}
	a.PasswordHash = nil
	a.LastSignInAt = utils.Ptr(time.Now())
	return true, nil
}

// Len returns the number of accounts.
func (s *MemAccountStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

func (s *MemAccountStore) mutate(id uuid.UUID, fn func(a *models.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return utils.ErrAccountNotFound
	}
	fn(a)
	a.UpdatedAt = time.Now()
	return nil
}

// ---------------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------------

type MemProfileStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*models.Profile

	// Err, when set, fails Upsert.
	Err error
}

var _ repositories.ProfileRepository = (*MemProfileStore)(nil)

func NewMemProfileStore() *MemProfileStore {
	return &MemProfileStore{profiles: map[uuid.UUID]*models.Profile{}}
}

func (s *MemProfileStore) Upsert(_ context.Context, id uuid.UUID, fullName, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	now := time.Now()
	p, ok := s.profiles[id]
	if !ok {
		p = &models.Profile{ID: id, CreatedAt: now}
		s.profiles[id] = p
	}
	if fullName != "" {
		p.FullName = utils.Ptr(fullName)
	}
	p.PhoneNumber = phone
	p.UpdatedAt = now
	return nil
}

func (s *MemProfileStore) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *MemProfileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

// ---------------------------------------------------------------------
// Chat sessions
// ---------------------------------------------------------------------

type MemChatSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.ChatSession
	stamped  chan uuid.UUID

	// Err, when set, fails StampEnded.
	Err error
}

var _ repositories.ChatSessionRepository = (*MemChatSessionStore)(nil)

func NewMemChatSessionStore() *MemChatSessionStore {
	return &MemChatSessionStore{
		sessions: map[uuid.UUID]*models.ChatSession{},
		stamped:  make(chan uuid.UUID, 16),
	}
}

// Add seeds an active session.
func (s *MemChatSessionStore) Add(id, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &models.ChatSession{
		ID:        id,
		UserID:    userID,
		StartedAt: time.Now(),
		Status:    models.ChatSessionStatusActive,
	}
}

func (s *MemChatSessionStore) GetByID(_ context.Context, id uuid.UUID) (*models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs, ok := s.sessions[id]; ok {
		cp := *cs
		return &cp, nil
	}
	return nil, nil
}

func (s *MemChatSessionStore) StampEnded(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	err := s.Err
	if err == nil {
		cs, ok := s.sessions[id]
		if !ok || cs.UserID != userID {
			err = utils.ErrNoRowsUpdated
		} else {
			cs.EndedAt = utils.Ptr(time.Now())
			cs.Status = models.ChatSessionStatusCompleted
		}
	}
	s.mu.Unlock()

	select {
	case s.stamped <- id:
	default:
	}
	return err
}

// Stamped delivers the id of every StampEnded call, successful or not.
func (s *MemChatSessionStore) Stamped() <-chan uuid.UUID { return s.stamped }

// ---------------------------------------------------------------------
// Rate limits
// ---------------------------------------------------------------------

type MemRateLimitStore struct {
	mu       sync.Mutex
	counters map[string]*rateCounter
}

type rateCounter struct {
	count     int
	expiresAt time.Time
}

func NewMemRateLimitStore() *MemRateLimitStore {
	return &MemRateLimitStore{counters: map[string]*rateCounter{}}
}

func (s *MemRateLimitStore) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	c, ok := s.counters[key]
	if !ok || c.expiresAt.Before(now) {
		c = &rateCounter{expiresAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count <= limit, nil
}

func (s *MemRateLimitStore) CleanupExpired(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, c := range s.counters {
		if c.expiresAt.Before(now) {
			delete(s.counters, k)
		}
	}
	return nil
}

// Keys returns the tracked counter keys, sorted.
func (s *MemRateLimitStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.counters))
	for k := range s.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
