package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

const (
	AuthEventsExchange = "puente.auth"
	exchangeTypeTopic  = "topic"

	RoutingKeyOTPIssued          = "otp.issued"
	RoutingKeyAccountProvisioned = "account.provisioned"

	publishTimeout = 3 * time.Second
)

// OTPIssuedEvent never carries the code itself.
type OTPIssuedEvent struct {
	Phone     string    `json:"phone"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AccountProvisionedEvent struct {
	UserID  string `json:"userId"`
	Phone   string `json:"phone"`
	Created bool   `json:"created"`
}

// EventPublisher emits auth domain events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// NewEventPublisher dials RabbitMQ when amqpURL is set and returns a no-op
// publisher otherwise.
func NewEventPublisher(amqpURL string) (EventPublisher, error) {
	if amqpURL == "" {
		return noopPublisher{}, nil
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial amqp: %v", utils.ErrExternalServiceFailure, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(AuthEventsExchange, exchangeTypeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", AuthEventsExchange, err)
	}
	utils.Logger.Infof("Publishing auth events to exchange %s", AuthEventsExchange)
	return &amqpPublisher{conn: conn, ch: ch}, nil
}

type amqpPublisher struct {
	mu   sync.Mutex // amqp channels are not safe for concurrent publishes
	conn *amqp.Connection
	ch   *amqp.Channel
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx,
		AuthEventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		})
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }
func (noopPublisher) Close() error                             { return nil }

// publishBestEffort logs instead of failing the caller.
func publishBestEffort(ctx context.Context, pub EventPublisher, routingKey string, payload any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, routingKey, payload); err != nil {
		utils.Logger.WithError(err).Warnf("Failed to publish %s event", routingKey)
	}
}
