package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mock_events.go -package=events . KafkaWriter

const (
	DepositConfirmed    = "deposit.confirmed"
	WithdrawalRequested = "withdrawal.requested"
	WithdrawalCompleted = "withdrawal.completed"
	WithdrawalCancelled = "withdrawal.cancelled"
)

type Event struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	UserID           string    `json:"userId"`
	EntityID         string    `json:"entityId"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	AvailableBalance float64   `json:"availableBalance"`
	OccurredAt       time.Time `json:"occurredAt"`
}

func DepositEvent(eventType string, deposit *domain.Deposit, wallet *domain.Wallet) Event {
	return newEvent(eventType, deposit.UserID, deposit.ID, deposit.Amount, deposit.Currency, wallet)
}

func WithdrawalEvent(eventType string, withdrawal *domain.Withdrawal, wallet *domain.Wallet) Event {
	return newEvent(eventType, withdrawal.UserID, withdrawal.ID, withdrawal.Amount, withdrawal.Currency, wallet)
}

func newEvent(eventType, userID, entityID string, amount float64, currency string, wallet *domain.Wallet) Event {
	e := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		EntityID:   entityID,
		Amount:     amount,
		Currency:   currency,
		OccurredAt: time.Now().UTC(),
	}
	if wallet != nil {
		e.AvailableBalance = wallet.AvailableBalance
	}
	return e
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends ledger events keyed by user id, so one user's events stay
// ordered within a partition. A Publisher without a writer only logs.
type Publisher struct {
	writer KafkaWriter
}

func NewPublisher(writer KafkaWriter) *Publisher {
	return &Publisher{writer: writer}
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				zap.L().Error("failed to deliver ledger events", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil || p.writer == nil {
		zap.L().Warn("Kafka writer not configured, skipping publishing", zap.String("type", event.Type), zap.String("entityID", event.EntityID))
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("failed to marshal ledger event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		zap.L().Error("failed to publish ledger event", zap.String("type", event.Type), zap.String("entityID", event.EntityID), zap.Error(err))
		return
	}
	zap.L().Debug("ledger event published", zap.String("type", event.Type), zap.String("entityID", event.EntityID))
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
