package depositservice

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

//go:generate mockgen -destination=mock_depositservice.go -package=depositservice . Repo,WalletService,Notifier,Publisher

var (
	ErrDepositNotFound   = errors.New("deposit not found")
	ErrDepositNotPending = errors.New("deposit is not pending")
)

type Repo interface {
	Create(ctx context.Context, deposit *domain.Deposit) (*domain.Deposit, error)
	FindForUpdate(ctx context.Context, userID, depositID string) (*domain.Deposit, error)
	Update(ctx context.Context, deposit *domain.Deposit) error
	ListByUser(ctx context.Context, userID string) ([]domain.Deposit, error)
}

type WalletService interface {
	Mutate(ctx context.Context, userID, currency string, fn ledger.Mutation) (*domain.Wallet, error)
}

type Notifier interface {
	NotifyDepositInitiated(ctx context.Context, email string, deposit domain.Deposit)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

type CreateInput struct {
	Amount         float64
	Currency       string
	CryptoAmount   float64
	CryptoCurrency string
	WalletAddress  string
	DepositMethod  string
}

type Bonus struct {
	Percent float64
	TTL     time.Duration
}

type Service struct {
	repo      Repo
	wallets   WalletService
	txManager pg.TXManager
	notifier  Notifier
	publisher Publisher
	bonus     Bonus
}

func New(repo Repo, wallets WalletService, txManager pg.TXManager, notifier Notifier, publisher Publisher, bonus Bonus) *Service {
	return &Service{
		repo:      repo,
		wallets:   wallets,
		txManager: txManager,
		notifier:  notifier,
		publisher: publisher,
		bonus:     bonus,
	}
}

func (s *Service) Create(ctx context.Context, user *domain.User, in CreateInput) (*domain.Deposit, error) {
	if err := ledger.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	deposit := &domain.Deposit{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Amount:         in.Amount,
		Currency:       in.Currency,
		CryptoAmount:   in.CryptoAmount,
		CryptoCurrency: in.CryptoCurrency,
		WalletAddress:  in.WalletAddress,
		Status:         domain.DepositPending,
		DepositMethod:  in.DepositMethod,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	created, err := s.repo.Create(ctx, deposit)
	if err != nil {
		zap.L().Error("failed to create deposit", zap.String("userID", user.ID), zap.Error(err))
		return nil, err
	}

	s.notifier.NotifyDepositInitiated(ctx, user.Email, *created)
	zap.L().Info("deposit initiated", zap.String("depositID", created.ID), zap.Float64("amount", created.Amount))
	return created, nil
}

// Confirm completes a pending deposit and credits the wallet in the same
// transaction, so neither change is visible without the other.
func (s *Service) Confirm(ctx context.Context, userID, depositID, txHash string) (*domain.Deposit, *domain.Wallet, error) {
	if _, err := uuid.Parse(depositID); err != nil {
		return nil, nil, ErrDepositNotFound
	}
	var (
		deposit *domain.Deposit
		wallet  *domain.Wallet
	)
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		deposit, err = s.lockPending(ctx, userID, depositID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		bonus := ledger.DepositBonusFor(deposit.Amount, s.bonus.Percent)
		wallet, err = s.wallets.Mutate(ctx, userID, deposit.Currency, func(w domain.Wallet) (domain.Wallet, error) {
			w, err := ledger.CreditDeposit(w, deposit.Amount, now)
			if err != nil || bonus <= 0 {
				return w, err
			}
			return ledger.AddDepositBonus(w, deposit.ID, bonus, now, s.bonus.TTL)
		})
		if err != nil {
			return err
		}

		deposit.Status = domain.DepositCompleted
		deposit.TransactionHash = txHash
		deposit.BonusApplied = bonus
		deposit.UpdatedAt = now
		return s.repo.Update(ctx, deposit)
	})
	if err != nil {
		s.logFailure("failed to confirm deposit", depositID, err)
		return nil, nil, err
	}

	s.publisher.Publish(ctx, events.DepositEvent(events.DepositConfirmed, deposit, wallet))
	zap.L().Info("deposit confirmed", zap.String("depositID", depositID), zap.Float64("bonus", deposit.BonusApplied))
	return deposit, wallet, nil
}

func (s *Service) Cancel(ctx context.Context, userID, depositID string) (*domain.Deposit, error) {
	if _, err := uuid.Parse(depositID); err != nil {
		return nil, ErrDepositNotFound
	}
	var deposit *domain.Deposit
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		deposit, err = s.lockPending(ctx, userID, depositID)
		if err != nil {
			return err
		}
		deposit.Status = domain.DepositCancelled
		deposit.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, deposit)
	})
	if err != nil {
		s.logFailure("failed to cancel deposit", depositID, err)
		return nil, err
	}
	return deposit, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Deposit, error) {
	deposits, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		zap.L().Error("failed to fetch deposits", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	return deposits, nil
}

func (s *Service) lockPending(ctx context.Context, userID, depositID string) (*domain.Deposit, error) {
	deposit, err := s.repo.FindForUpdate(ctx, userID, depositID)
	if err != nil {
		return nil, err
	}
	if deposit == nil {
		return nil, ErrDepositNotFound
	}
	if deposit.Status != domain.DepositPending {
		return nil, ErrDepositNotPending
	}
	return deposit, nil
}

func (s *Service) logFailure(msg, depositID string, err error) {
	if errors.Is(err, ErrDepositNotFound) || errors.Is(err, ErrDepositNotPending) {
		zap.L().Info(msg, zap.String("depositID", depositID), zap.Error(err))
		return
	}
	zap.L().Error(msg, zap.String("depositID", depositID), zap.Error(err))
}
