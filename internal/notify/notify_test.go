package notify

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/pkg/clients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

func newTestSender(t *testing.T) (*HTTPSender, *clients.MockHTTPClientI) {
	ctrl := gomock.NewController(t)
	client := clients.NewMockHTTPClientI(ctrl)
	sender := NewHTTPSender("http://notifier/send", client)
	sender.backoff = time.Millisecond
	return sender, client
}

func TestHTTPSender_Send(t *testing.T) {
	msg := Message{Kind: KindWelcome, To: "a@x.com", Subject: "Welcome aboard"}

	tests := []struct {
		name        string
		prepareMock func(client *clients.MockHTTPClientI)
		expectError bool
	}{
		{
			name: "Delivered",
			prepareMock: func(client *clients.MockHTTPClientI) {
				client.EXPECT().PostJSON(gomock.Any(), "http://notifier/send", msg).Return(http.StatusAccepted, nil, nil)
			},
		},
		{
			name: "Retried after a server error",
			prepareMock: func(client *clients.MockHTTPClientI) {
				gomock.InOrder(
					client.EXPECT().PostJSON(gomock.Any(), gomock.Any(), gomock.Any()).Return(http.StatusBadGateway, nil, nil),
					client.EXPECT().PostJSON(gomock.Any(), gomock.Any(), gomock.Any()).Return(http.StatusOK, nil, nil),
				)
			},
		},
		{
			name: "Client error is not retried",
			prepareMock: func(client *clients.MockHTTPClientI) {
				client.EXPECT().PostJSON(gomock.Any(), gomock.Any(), gomock.Any()).Return(http.StatusBadRequest, nil, nil)
			},
			expectError: true,
		},
		{
			name: "Gives up after retries",
			prepareMock: func(client *clients.MockHTTPClientI) {
				client.EXPECT().PostJSON(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(0, nil, errors.New("connection refused")).Times(maxRetries)
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, client := newTestSender(t)
			tt.prepareMock(client)

			err := sender.Send(context.Background(), msg)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type recordingSender struct {
	mu       sync.Mutex
	messages []Message
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func TestNotifier_FanOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	failing := NewMockSender(ctrl)
	failing.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("relay down")).Times(3)
	recorder := &recordingSender{}

	notifier := New(2, recorder, failing)
	user := domain.User{ID: "u1", Name: "Alice", Email: "a@x.com"}

	notifier.NotifyWelcome(context.Background(), user)
	notifier.NotifyDepositInitiated(context.Background(), "a@x.com", domain.Deposit{ID: "d1", Amount: 100})
	notifier.NotifyWithdrawalRequested(context.Background(), user, domain.Withdrawal{ID: "w1", Amount: 50})
	notifier.Close()

	require.Len(t, recorder.messages, 3)
	kinds := map[string]string{}
	for _, m := range recorder.messages {
		kinds[m.Kind] = m.To
	}
	assert.Equal(t, map[string]string{
		KindWelcome:             "a@x.com",
		KindDepositInitiated:    "a@x.com",
		KindWithdrawalRequested: "a@x.com",
	}, kinds)
}

func TestNotifier_DefaultsToLog(t *testing.T) {
	notifier := New(1)
	require.Len(t, notifier.senders, 1)
	assert.IsType(t, LogSender{}, notifier.senders[0])

	notifier.NotifyWelcome(context.Background(), domain.User{Email: "a@x.com"})
	notifier.Close()
}

func TestNotifier_DropsWhenClosed(t *testing.T) {
	recorder := &recordingSender{}
	notifier := New(1, recorder)
	notifier.Close()

	assert.NotPanics(t, func() {
		notifier.NotifyWelcome(context.Background(), domain.User{Email: "a@x.com"})
	})
	assert.Empty(t, recorder.messages)
}
