package testhelpers

import (
	"context"
	"regexp"
	"sync"

	"github.com/jackc/pgconn"
)

// ErrUniqueViolation mimics the error Postgres returns for a duplicate key.
var ErrUniqueViolation = &pgconn.PgError{
	Code:    "23505",
	Message: "duplicate key value violates unique constraint",
}

// SentSMS is one message captured by FakeSMSSender.
type SentSMS struct {
	To   string
	Body string
}

// FakeSMSSender records messages instead of calling Twilio.
type FakeSMSSender struct {
	mu   sync.Mutex
	sent []SentSMS

	// Err, when set, is returned from Send after recording the attempt.
	Err error
}

func (f *FakeSMSSender) Send(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, SentSMS{To: to, Body: body})
	return f.Err
}

// Sent returns a copy of every attempted message.
func (f *FakeSMSSender) Sent() []SentSMS {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentSMS(nil), f.sent...)
}

var codeInBody = regexp.MustCompile(`\b(\d{6})\b`)

// LastCodeTo extracts the six digit code from the most recent message to
// phone, or "" when none was sent.
func (f *FakeSMSSender) LastCodeTo(phone string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].To != phone {
			continue
		}
		if m := codeInBody.FindStringSubmatch(f.sent[i].Body); m != nil {
			return m[1]
		}
	}
	return ""
}

// EventRecord is one event captured by FakePublisher.
type EventRecord struct {
	RoutingKey string
	Payload    any
}

// FakePublisher records published events.
type FakePublisher struct {
	mu     sync.Mutex
	events []EventRecord
}

func (p *FakePublisher) Publish(_ context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, EventRecord{RoutingKey: routingKey, Payload: payload})
	return nil
}

func (p *FakePublisher) Close() error { return nil }

func (p *FakePublisher) RoutingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.RoutingKey)
	}
	return keys
}
