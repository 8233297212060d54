package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/delacruzbakes/bakeshop-backend/pkg/config"
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

const (
	EventOrderStatusChanged = "order.status_changed"
	EventPaymentConfirmed   = "payment.confirmed"
)

// OrderStatusChangedEvent is published whenever an order moves state.
type OrderStatusChangedEvent struct {
	Type       string    `json:"type"`
	OrderID    uuid.UUID `json:"order_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PaymentConfirmedEvent is published when a payment intent settles as paid.
type PaymentConfirmedEvent struct {
	Type        string    `json:"type"`
	IntentID    uuid.UUID `json:"intent_id"`
	Purpose     string    `json:"purpose"`
	AmountCents int       `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher emits order and payment events to Kafka. Publishing is
// fire-and-forget: a slow or down broker must never block or fail the
// state change that triggered the event.
type Publisher struct {
	writer  messageWriter
	closer  func() error
	timeout time.Duration
	log     *logger.Logger
	now     func() time.Time
}

// NewPublisher builds a Kafka-backed publisher from configuration.
func NewPublisher(cfg config.KafkaConfig, log *logger.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.EventsTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Publisher{
		writer:  writer,
		closer:  writer.Close,
		timeout: cfg.WriteTimeout,
		log:     log,
		now:     time.Now,
	}
}

func newPublisherWithWriter(writer messageWriter, timeout time.Duration, log *logger.Logger) *Publisher {
	return &Publisher{writer: writer, timeout: timeout, log: log, now: time.Now}
}

// Close releases the underlying writer.
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// OrderStatusChanged publishes an order transition event.
func (p *Publisher) OrderStatusChanged(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) {
	event := OrderStatusChangedEvent{
		Type:       EventOrderStatusChanged,
		OrderID:    orderID,
		From:       from.String(),
		To:         to.String(),
		OccurredAt: p.now().UTC(),
	}
	p.publish(ctx, orderID.String(), event)
}

// PaymentConfirmed publishes a settled payment event.
func (p *Publisher) PaymentConfirmed(ctx context.Context, intentID uuid.UUID, purpose enums.PaymentPurpose, amountCents int) {
	event := PaymentConfirmedEvent{
		Type:        EventPaymentConfirmed,
		IntentID:    intentID,
		Purpose:     purpose.String(),
		AmountCents: amountCents,
		OccurredAt:  p.now().UTC(),
	}
	p.publish(ctx, intentID.String(), event)
}

func (p *Publisher) publish(ctx context.Context, key string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error(ctx, "marshal event", err)
		return
	}

	timeout := p.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	// Detached from the request lifecycle so a finished request cannot
	// cancel the write mid-flight.
	background := context.WithoutCancel(ctx)
	go func() {
		writeCtx, cancel := context.WithTimeout(background, timeout)
		defer cancel()
		if err := p.writer.WriteMessages(writeCtx, kafka.Message{
			Key:   []byte(key),
			Value: payload,
		}); err != nil {
			p.log.Error(writeCtx, "publish event", err)
		}
	}()
}
