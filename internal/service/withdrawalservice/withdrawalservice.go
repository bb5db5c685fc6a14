package withdrawalservice

import (
	"context"
	"errors"
	"time"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/internal/events"
	"github.com/GlebRadaev/fundsledger/internal/ledger"
	"github.com/GlebRadaev/fundsledger/internal/pg"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mock_withdrawalservice.go -package=withdrawalservice . Repo,WalletService,Notifier,Publisher

var (
	ErrWithdrawalNotFound   = errors.New("withdrawal not found")
	ErrWithdrawalNotPending = errors.New("withdrawal is not pending")
)

type Repo interface {
	CreateWithdrawal(ctx context.Context, withdrawal *domain.Withdrawal) (*domain.Withdrawal, error)
	FindForUpdate(ctx context.Context, userID, withdrawalID string) (*domain.Withdrawal, error)
	UpdateWithdrawal(ctx context.Context, withdrawal *domain.Withdrawal) error
	GetWithdrawalsByUserID(ctx context.Context, userID string) ([]domain.Withdrawal, error)
}

type WalletService interface {
	Mutate(ctx context.Context, userID, currency string, fn ledger.Mutation) (*domain.Wallet, error)
}

type Notifier interface {
	NotifyWithdrawalRequested(ctx context.Context, user domain.User, withdrawal domain.Withdrawal)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

type CreateInput struct {
	Amount        float64
	Currency      string
	WalletAddress string
}

type Service struct {
	repo      Repo
	wallets   WalletService
	txManager pg.TXManager
	notifier  Notifier
	publisher Publisher
}

func New(repo Repo, wallets WalletService, txManager pg.TXManager, notifier Notifier, publisher Publisher) *Service {
	return &Service{
		repo:      repo,
		wallets:   wallets,
		txManager: txManager,
		notifier:  notifier,
		publisher: publisher,
	}
}

// Create reserves the amount and records the pending withdrawal atomically.
// The funds check runs against the locked wallet row.
func (s *Service) Create(ctx context.Context, user *domain.User, in CreateInput) (*domain.Withdrawal, *domain.Wallet, error) {
	if err := ledger.ValidateAmount(in.Amount); err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	withdrawal := &domain.Withdrawal{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Amount:        in.Amount,
		Currency:      in.Currency,
		WalletAddress: in.WalletAddress,
		Status:        domain.WithdrawalPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var wallet *domain.Wallet
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		wallet, err = s.wallets.Mutate(ctx, user.ID, in.Currency, func(w domain.Wallet) (domain.Wallet, error) {
			return ledger.Reserve(w, in.Amount, now)
		})
		if err != nil {
			return err
		}
		_, err = s.repo.CreateWithdrawal(ctx, withdrawal)
		return err
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			zap.L().Info("withdrawal rejected", zap.String("userID", user.ID), zap.Float64("amount", in.Amount))
		} else {
			zap.L().Error("failed to create withdrawal", zap.String("userID", user.ID), zap.Error(err))
		}
		return nil, nil, err
	}

	s.notifier.NotifyWithdrawalRequested(ctx, *user, *withdrawal)
	s.publisher.Publish(ctx, events.WithdrawalEvent(events.WithdrawalRequested, withdrawal, wallet))
	return withdrawal, wallet, nil
}

// Confirm settles a pending withdrawal: the reservation becomes a debit.
func (s *Service) Confirm(ctx context.Context, userID, withdrawalID, txHash string) (*domain.Withdrawal, *domain.Wallet, error) {
	return s.finish(ctx, userID, withdrawalID, func(wd *domain.Withdrawal, now time.Time) (ledger.Mutation, string) {
		wd.Status = domain.WithdrawalCompleted
		wd.TransactionHash = txHash
		return func(w domain.Wallet) (domain.Wallet, error) {
			return ledger.Settle(w, wd.Amount, now)
		}, events.WithdrawalCompleted
	})
}

// Cancel releases the reservation of a pending withdrawal.
func (s *Service) Cancel(ctx context.Context, userID, withdrawalID string) (*domain.Withdrawal, *domain.Wallet, error) {
	return s.finish(ctx, userID, withdrawalID, func(wd *domain.Withdrawal, now time.Time) (ledger.Mutation, string) {
		wd.Status = domain.WithdrawalCancelled
		return func(w domain.Wallet) (domain.Wallet, error) {
			return ledger.Release(w, wd.Amount, now)
		}, events.WithdrawalCancelled
	})
}

type transition func(wd *domain.Withdrawal, now time.Time) (ledger.Mutation, string)

func (s *Service) finish(ctx context.Context, userID, withdrawalID string, next transition) (*domain.Withdrawal, *domain.Wallet, error) {
	// ids are uuid columns; anything else cannot exist.
	if _, err := uuid.Parse(withdrawalID); err != nil {
		return nil, nil, ErrWithdrawalNotFound
	}
	var (
		withdrawal *domain.Withdrawal
		wallet     *domain.Wallet
		eventType  string
	)
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		withdrawal, err = s.repo.FindForUpdate(ctx, userID, withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal == nil {
			return ErrWithdrawalNotFound
		}
		if withdrawal.Status != domain.WithdrawalPending {
			return ErrWithdrawalNotPending
		}

		now := time.Now().UTC()
		var mutation ledger.Mutation
		mutation, eventType = next(withdrawal, now)
		withdrawal.UpdatedAt = now

		wallet, err = s.wallets.Mutate(ctx, userID, withdrawal.Currency, mutation)
		if err != nil {
			return err
		}
		return s.repo.UpdateWithdrawal(ctx, withdrawal)
	})
	if err != nil {
		if errors.Is(err, ErrWithdrawalNotFound) || errors.Is(err, ErrWithdrawalNotPending) {
			zap.L().Info("withdrawal transition refused", zap.String("withdrawalID", withdrawalID), zap.Error(err))
		} else {
			zap.L().Error("failed to finish withdrawal", zap.String("withdrawalID", withdrawalID), zap.Error(err))
		}
		return nil, nil, err
	}

	s.publisher.Publish(ctx, events.WithdrawalEvent(eventType, withdrawal, wallet))
	zap.L().Info("withdrawal finished", zap.String("withdrawalID", withdrawalID), zap.String("status", string(withdrawal.Status)))
	return withdrawal, wallet, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Withdrawal, error) {
	withdrawals, err := s.repo.GetWithdrawalsByUserID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to fetch withdrawals", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	return withdrawals, nil
}
