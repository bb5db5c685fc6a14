package walletservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/internal/ledger"
	"github.com/GlebRadaev/fundsledger/internal/pg"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -destination=mock_walletservice.go -package=walletservice . Repo

var ErrWalletNotFound = errors.New("wallet not found")

type Repo interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, userID string) (*domain.Wallet, error)
	CreateIfAbsent(ctx context.Context, wallet *domain.Wallet) (bool, error)
	Update(ctx context.Context, wallet *domain.Wallet) (*domain.Wallet, error)
}

type Service struct {
	repo         Repo
	txManager    pg.TXManager
	welcomeBonus float64
	group        singleflight.Group
	now          func() time.Time
}

func New(repo Repo, txManager pg.TXManager, welcomeBonus float64) *Service {
	return &Service{
		repo:         repo,
		txManager:    txManager,
		welcomeBonus: welcomeBonus,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a fresh wallet unless the user already has one. It joins the
// transaction carried by ctx, if any.
func (s *Service) Create(ctx context.Context, userID, currency string) (*domain.Wallet, error) {
	wallet := ledger.NewWallet(uuid.NewString(), userID, currency, s.welcomeBonus, s.now())
	created, err := s.repo.CreateIfAbsent(ctx, &wallet)
	if err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	if created {
		zap.L().Info("wallet created", zap.String("userID", userID), zap.Float64("welcomeBonus", s.welcomeBonus))
		return &wallet, nil
	}
	return s.get(ctx, userID)
}

func (s *Service) get(ctx context.Context, userID string) (*domain.Wallet, error) {
	wallet, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}
	return wallet, nil
}

// GetOrCreate collapses concurrent first accesses of one user into a single
// insert. The unique user_id index covers callers in other processes. The
// shared lookup runs detached from the leader's cancellation so one caller
// giving up does not fail the others.
func (s *Service) GetOrCreate(ctx context.Context, userID, currency string) (*domain.Wallet, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(userID, func() (interface{}, error) {
		ctx := shared
		wallet, err := s.repo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if wallet != nil {
			return wallet, nil
		}
		return s.Create(ctx, userID, currency)
	})
	if err != nil {
		zap.L().Error("failed to get wallet", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	wallet := ledger.ExpireBonuses(*v.(*domain.Wallet), s.now())
	return &wallet, nil
}

// Mutate locks the user's wallet row, applies fn and persists the result in
// one transaction. Expired deposit bonuses are dropped before fn runs.
// Concurrent mutations of the same wallet are serialized by
// the row lock, so fn always sees the latest committed state.
func (s *Service) Mutate(ctx context.Context, userID, currency string, fn ledger.Mutation) (*domain.Wallet, error) {
	var updated *domain.Wallet
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		wallet, err := s.repo.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if wallet == nil {
			if _, err := s.Create(ctx, userID, currency); err != nil {
				return err
			}
			if wallet, err = s.repo.GetByUserIDForUpdate(ctx, userID); err != nil {
				return err
			}
			if wallet == nil {
				return ErrWalletNotFound
			}
		}

		next, err := fn(ledger.ExpireBonuses(*wallet, s.now()))
		if err != nil {
			return err
		}
		next = ledger.RecomputeDerived(next)
		updated, err = s.repo.Update(ctx, &next)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
