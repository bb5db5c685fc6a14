package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/pkg/clients"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -destination=mock_notify.go -package=notify . Sender

const (
	maxRetries    = 3
	retryInterval = time.Millisecond * 500
	sendTimeout   = time.Second * 30
	queueFactor   = 64
)

const (
	KindWelcome             = "welcome"
	KindDepositInitiated    = "deposit_initiated"
	KindWithdrawalRequested = "withdrawal_requested"
)

type Message struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Name    string `json:"name,omitempty"`
	Subject string `json:"subject"`
	Data    any    `json:"data,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender records notifications in the application log only.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	zap.L().Info("notification", zap.String("kind", msg.Kind), zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// HTTPSender posts the message as JSON to a mail relay.
type HTTPSender struct {
	url     string
	client  clients.HTTPClientI
	backoff time.Duration
}

func NewHTTPSender(url string, client clients.HTTPClientI) *HTTPSender {
	return &HTTPSender{url: url, client: client, backoff: retryInterval}
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		statusCode, _, postErr := s.client.PostJSON(ctx, s.url, msg)
		switch {
		case postErr == nil && statusCode < http.StatusMultipleChoices:
			return nil
		case postErr == nil && statusCode < http.StatusInternalServerError && statusCode != http.StatusTooManyRequests:
			return fmt.Errorf("notifier rejected %s message with status %d", msg.Kind, statusCode)
		}
		err = postErr
		if err == nil {
			err = fmt.Errorf("notifier responded with status %d", statusCode)
		}
		zap.L().Warn("notification attempt failed", zap.String("kind", msg.Kind), zap.Int("attempt", attempt), zap.Error(err))
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff * time.Duration(attempt)):
			}
		}
	}
	return fmt.Errorf("failed to deliver %s message after %d retries: %w", msg.Kind, maxRetries, err)
}

// Notifier delivers messages to every sender on a bounded worker pool. The
// Notify methods never block the caller and never report delivery errors.
type Notifier struct {
	senders []Sender
	pool    *WorkerPool
}

func New(workers int, senders ...Sender) *Notifier {
	if len(senders) == 0 {
		senders = []Sender{LogSender{}}
	}
	return &Notifier{
		senders: senders,
		pool:    NewWorkerPool(workers, workers*queueFactor),
	}
}

func (n *Notifier) dispatch(msg Message) {
	err := n.pool.TryAddTask(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)
		for _, sender := range n.senders {
			sender := sender
			g.Go(func() error {
				return sender.Send(ctx, msg)
			})
		}
		return g.Wait()
	})
	if err != nil {
		zap.L().Warn("notification dropped", zap.String("kind", msg.Kind), zap.String("to", msg.To), zap.Error(err))
	}
}

func (n *Notifier) NotifyWelcome(_ context.Context, user domain.User) {
	n.dispatch(Message{
		Kind:    KindWelcome,
		To:      user.Email,
		Name:    user.Name,
		Subject: "Welcome aboard",
	})
}

func (n *Notifier) NotifyDepositInitiated(_ context.Context, email string, deposit domain.Deposit) {
	n.dispatch(Message{
		Kind:    KindDepositInitiated,
		To:      email,
		Subject: "Deposit initiated",
		Data:    deposit,
	})
}

func (n *Notifier) NotifyWithdrawalRequested(_ context.Context, user domain.User, withdrawal domain.Withdrawal) {
	n.dispatch(Message{
		Kind:    KindWithdrawalRequested,
		To:      user.Email,
		Name:    user.Name,
		Subject: "Withdrawal requested",
		Data:    withdrawal,
	})
}

// Close waits for queued notifications to be delivered.
func (n *Notifier) Close() {
	n.pool.Close()
}
