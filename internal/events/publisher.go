package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/segmentio/kafka-go"
)

const EventTypeOrderPlaced = "order_placed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderPlaced is the payload published once an order is stored.
type OrderPlaced struct {
	OrderCode     string               `json:"order_code"`
	UserID        string               `json:"user_id"`
	Items         []domain.CartItem    `json:"items"`
	Total         float64              `json:"total"`
	Currency      string               `json:"currency"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	Status        domain.OrderStatus   `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
}

const batchTimeout = 10 * time.Millisecond

type KafkaPublisher struct {
	writer messageWriter
	log    *slog.Logger
}

// NewKafkaPublisher returns a publisher whose writes never block the caller.
// Delivery failures surface through the writer's completion callback.
func NewKafkaPublisher(topic string, brokers []string, log *slog.Logger) *KafkaPublisher {
	if log == nil {
		log = slog.Default()
	}
	p := &KafkaPublisher{log: log}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           5 * time.Second,
		Completion:             p.completed,
	}
	return p
}

func (p *KafkaPublisher) completed(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	keys := make([]string, 0, len(msgs))
	for _, m := range msgs {
		keys = append(keys, string(m.Key))
	}
	p.log.Error("order placed events not delivered",
		"messages", len(msgs), "user_ids", keys, "error", err)
}

// PublishOrderPlaced keys the message by user id so one user's orders stay
// in order on a single partition.
func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(OrderPlaced{
		OrderCode:     order.OrderCode,
		UserID:        order.UserID,
		Items:         order.Items,
		Total:         order.Total,
		Currency:      order.Currency,
		PaymentStatus: order.PaymentStatus,
		Status:        order.Status,
		CreatedAt:     order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order placed event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeOrderPlaced)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order placed event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) PublishOrderPlaced(context.Context, *domain.Order) error { return nil }

func (Noop) Close() error { return nil }
