package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

func TestPublisher_Publish(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := NewMockKafkaWriter(ctrl)
	publisher := NewPublisher(writer)

	deposit := &domain.Deposit{ID: "d1", UserID: "u1", Amount: 100, Currency: "USD"}
	wallet := &domain.Wallet{AvailableBalance: 150}
	event := DepositEvent(DepositConfirmed, deposit, wallet)

	writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msgs ...kafka.Message) error {
		require.Len(t, msgs, 1)
		assert.Equal(t, []byte("u1"), msgs[0].Key)
		assert.Equal(t, "type", msgs[0].Headers[0].Key)
		assert.Equal(t, []byte(DepositConfirmed), msgs[0].Headers[0].Value)

		var got Event
		require.NoError(t, json.Unmarshal(msgs[0].Value, &got))
		assert.Equal(t, "d1", got.EntityID)
		assert.Equal(t, 100.0, got.Amount)
		assert.Equal(t, 150.0, got.AvailableBalance)
		return nil
	})
	publisher.Publish(context.Background(), event)

	writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
	assert.NotPanics(t, func() {
		publisher.Publish(context.Background(), event)
	})

	writer.EXPECT().Close().Return(nil)
	assert.NoError(t, publisher.Close())
}

func TestPublisher_WithoutWriter(t *testing.T) {
	withdrawal := &domain.Withdrawal{ID: "w1", UserID: "u1", Amount: 60, Currency: "USD"}
	event := WithdrawalEvent(WithdrawalRequested, withdrawal, nil)
	assert.Equal(t, WithdrawalRequested, event.Type)
	assert.Zero(t, event.AvailableBalance)
	assert.NotEmpty(t, event.ID)

	var nilPublisher *Publisher
	assert.NotPanics(t, func() {
		nilPublisher.Publish(context.Background(), event)
		NewPublisher(nil).Publish(context.Background(), event)
	})
	assert.NoError(t, nilPublisher.Close())
}

func TestNewKafkaWriter(t *testing.T) {
	writer := NewKafkaWriter([]string{"localhost:9092"}, "ledger-events")
	assert.Equal(t, "ledger-events", writer.Topic)
	assert.True(t, writer.Async)
	assert.NotNil(t, writer.Completion)
}
