package withdrawalservice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/internal/events"
	"github.com/GlebRadaev/fundsledger/internal/ledger"
	"github.com/GlebRadaev/fundsledger/internal/pg"
	"github.com/GlebRadaev/fundsledger/internal/service/walletservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

type mocks struct {
	repo      *MockRepo
	wallets   *MockWalletService
	txManager *pg.MockTXManager
	notifier  *MockNotifier
	publisher *MockPublisher
}

func NewMock(t *testing.T) (*Service, mocks) {
	ctrl := gomock.NewController(t)
	m := mocks{
		repo:      NewMockRepo(ctrl),
		wallets:   NewMockWalletService(ctrl),
		txManager: pg.NewMockTXManager(ctrl),
		notifier:  NewMockNotifier(ctrl),
		publisher: NewMockPublisher(ctrl),
	}
	return New(m.repo, m.wallets, m.txManager, m.notifier, m.publisher), m
}

func (m mocks) runInTx() {
	m.txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
		return fn(ctx)
	})
}

func (m mocks) applyTo(base domain.Wallet) {
	m.wallets.EXPECT().Mutate(gomock.Any(), "u1", "USD", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, fn ledger.Mutation) (*domain.Wallet, error) {
			w, err := fn(base)
			if err != nil {
				return nil, err
			}
			w = ledger.RecomputeDerived(w)
			return &w, nil
		})
}

func funded(amount float64) domain.Wallet {
	w, _ := ledger.CreditDeposit(ledger.NewWallet("w1", "u1", "USD", 0, time.Now()), amount, time.Now())
	return ledger.RecomputeDerived(w)
}

const withdrawalID = "3f9a2b7c-5e1d-4f60-8a2b-c4d5e6f70819"

func pendingWithdrawal() *domain.Withdrawal {
	return &domain.Withdrawal{ID: withdrawalID, UserID: "u1", Amount: 40, Currency: "USD", Status: domain.WithdrawalPending}
}

func TestCreate(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "a@x.com"}
	in := CreateInput{Amount: 40, Currency: "USD", WalletAddress: "addr"}

	tests := []struct {
		name        string
		in          CreateInput
		prepareMock func(m mocks)
		expectedErr error
	}{
		{
			name: "Reserves and records the withdrawal",
			in:   in,
			prepareMock: func(m mocks) {
				m.runInTx()
				m.applyTo(funded(100))
				m.repo.EXPECT().CreateWithdrawal(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, wd *domain.Withdrawal) (*domain.Withdrawal, error) {
					return wd, nil
				})
				m.notifier.EXPECT().NotifyWithdrawalRequested(gomock.Any(), *user, gomock.Any())
				m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e events.Event) {
					assert.Equal(t, events.WithdrawalRequested, e.Type)
				})
			},
		},
		{
			name: "Insufficient funds",
			in:   CreateInput{Amount: 150, Currency: "USD", WalletAddress: "addr"},
			prepareMock: func(m mocks) {
				m.runInTx()
				m.applyTo(funded(100))
			},
			expectedErr: ledger.ErrInsufficientFunds,
		},
		{
			name:        "Non-positive amount",
			in:          CreateInput{Amount: 0, Currency: "USD"},
			prepareMock: func(m mocks) {},
			expectedErr: ledger.ErrInvalidAmount,
		},
		{
			name:        "Sub-cent amount",
			in:          CreateInput{Amount: 0.004, Currency: "USD"},
			prepareMock: func(m mocks) {},
			expectedErr: ledger.ErrInvalidAmount,
		},
		{
			name: "Store failure",
			in:   in,
			prepareMock: func(m mocks) {
				m.runInTx()
				m.applyTo(funded(100))
				m.repo.EXPECT().CreateWithdrawal(gomock.Any(), gomock.Any()).Return(nil, errors.New("db error"))
			},
			expectedErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			withdrawal, wallet, err := service.Create(context.Background(), user, tt.in)
			if tt.expectedErr != nil {
				assert.EqualError(t, err, tt.expectedErr.Error())
				assert.Nil(t, withdrawal)
				assert.Nil(t, wallet)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.WithdrawalPending, withdrawal.Status)
			assert.NotEmpty(t, withdrawal.ID)
			assert.Equal(t, 40.0, wallet.ReservedBalance)
			assert.Equal(t, 60.0, wallet.AvailableBalance)
			assert.Equal(t, 100.0, wallet.TotalBalance)
		})
	}
}

func TestConfirm(t *testing.T) {
	reserved, err := ledger.Reserve(funded(100), 40, time.Now())
	require.NoError(t, err)
	reserved = ledger.RecomputeDerived(reserved)

	t.Run("Settles the reservation", func(t *testing.T) {
		service, m := NewMock(t)
		m.runInTx()
		m.repo.EXPECT().FindForUpdate(gomock.Any(), "u1", withdrawalID).Return(pendingWithdrawal(), nil)
		m.applyTo(reserved)
		m.repo.EXPECT().UpdateWithdrawal(gomock.Any(), gomock.Any()).Return(nil)
		m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e events.Event) {
			assert.Equal(t, events.WithdrawalCompleted, e.Type)
		})

		withdrawal, wallet, err := service.Confirm(context.Background(), "u1", withdrawalID, "0xhash")
		require.NoError(t, err)
		assert.Equal(t, domain.WithdrawalCompleted, withdrawal.Status)
		assert.Equal(t, "0xhash", withdrawal.TransactionHash)
		assert.Equal(t, 60.0, wallet.TotalBalance)
		assert.Zero(t, wallet.ReservedBalance)
		assert.Equal(t, 40.0, wallet.TotalWithdrawals)
		assert.Equal(t, 60.0, wallet.AvailableBalance)
	})

	t.Run("Unknown withdrawal", func(t *testing.T) {
		service, m := NewMock(t)
		m.runInTx()
		m.repo.EXPECT().FindForUpdate(gomock.Any(), "u1", withdrawalID).Return(nil, nil)

		_, _, err := service.Confirm(context.Background(), "u1", withdrawalID, "0xhash")
		assert.ErrorIs(t, err, ErrWithdrawalNotFound)
	})

	t.Run("Already finished", func(t *testing.T) {
		service, m := NewMock(t)
		m.runInTx()
		done := pendingWithdrawal()
		done.Status = domain.WithdrawalCompleted
		m.repo.EXPECT().FindForUpdate(gomock.Any(), "u1", withdrawalID).Return(done, nil)

		_, _, err := service.Confirm(context.Background(), "u1", withdrawalID, "0xhash")
		assert.ErrorIs(t, err, ErrWithdrawalNotPending)
	})
}

func TestCancel(t *testing.T) {
	reserved, err := ledger.Reserve(funded(100), 40, time.Now())
	require.NoError(t, err)
	reserved = ledger.RecomputeDerived(reserved)

	service, m := NewMock(t)
	m.runInTx()
	m.repo.EXPECT().FindForUpdate(gomock.Any(), "u1", withdrawalID).Return(pendingWithdrawal(), nil)
	m.applyTo(reserved)
	m.repo.EXPECT().UpdateWithdrawal(gomock.Any(), gomock.Any()).Return(nil)
	m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e events.Event) {
		assert.Equal(t, events.WithdrawalCancelled, e.Type)
	})

	withdrawal, wallet, err := service.Cancel(context.Background(), "u1", withdrawalID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalCancelled, withdrawal.Status)
	assert.Equal(t, 100.0, wallet.AvailableBalance)
	assert.Zero(t, wallet.ReservedBalance)
	assert.Equal(t, 100.0, wallet.TotalBalance)
}

func TestList(t *testing.T) {
	service, m := NewMock(t)

	m.repo.EXPECT().GetWithdrawalsByUserID(gomock.Any(), "u1").Return([]domain.Withdrawal{*pendingWithdrawal()}, nil)
	withdrawals, err := service.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, withdrawals, 1)

	m.repo.EXPECT().GetWithdrawalsByUserID(gomock.Any(), "u1").Return(nil, errors.New("db error"))
	withdrawals, err = service.List(context.Background(), "u1")
	assert.Error(t, err)
	assert.Nil(t, withdrawals)
}

// serialTX stands in for row locking: outer transactions run one at a time
// and nested ones join the caller's.
type serialTX struct {
	mu sync.Mutex
}

type inTx struct{}

func (s *serialTX) Begin(ctx context.Context, fn pg.TransactionalFn) error {
	if ctx.Value(inTx{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(context.WithValue(ctx, inTx{}, true))
}

type walletStore struct {
	mu      sync.Mutex
	wallets map[string]domain.Wallet
}

func (r *walletStore) GetByUserID(_ context.Context, userID string) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *walletStore) GetByUserIDForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *walletStore) CreateIfAbsent(_ context.Context, wallet *domain.Wallet) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[wallet.UserID]; ok {
		return false, nil
	}
	r.wallets[wallet.UserID] = *wallet
	return true, nil
}

func (r *walletStore) Update(_ context.Context, wallet *domain.Wallet) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[wallet.UserID] = *wallet
	return wallet, nil
}

type withdrawalStore struct {
	mu          sync.Mutex
	withdrawals map[string]domain.Withdrawal
}

func (r *withdrawalStore) CreateWithdrawal(_ context.Context, wd *domain.Withdrawal) (*domain.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withdrawals[wd.ID] = *wd
	return wd, nil
}

func (r *withdrawalStore) FindForUpdate(_ context.Context, userID, withdrawalID string) (*domain.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wd, ok := r.withdrawals[withdrawalID]
	if !ok || wd.UserID != userID {
		return nil, nil
	}
	return &wd, nil
}

func (r *withdrawalStore) UpdateWithdrawal(_ context.Context, wd *domain.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withdrawals[wd.ID] = *wd
	return nil
}

func (r *withdrawalStore) GetWithdrawalsByUserID(_ context.Context, userID string) ([]domain.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []domain.Withdrawal{}
	for _, wd := range r.withdrawals {
		if wd.UserID == userID {
			result = append(result, wd)
		}
	}
	return result, nil
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	ctrl := gomock.NewController(t)
	tx := &serialTX{}
	wallets := walletservice.New(&walletStore{wallets: map[string]domain.Wallet{"u1": funded(100)}}, tx, 0)
	store := &withdrawalStore{withdrawals: map[string]domain.Withdrawal{}}

	notifier := NewMockNotifier(ctrl)
	notifier.EXPECT().NotifyWithdrawalRequested(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	publisher := NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).AnyTimes()

	service := New(store, wallets, tx, notifier, publisher)
	user := &domain.User{ID: "u1", Email: "a@x.com"}

	const callers = 2
	errs := make([]error, callers)
	created := make([]*domain.Withdrawal, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created[i], _, errs[i] = service.Create(context.Background(), user, CreateInput{Amount: 60, Currency: "USD", WalletAddress: "addr"})
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	var winner *domain.Withdrawal
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
			winner = created[i]
		case errors.Is(err, ledger.ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	wallet, err := wallets.GetOrCreate(context.Background(), "u1", "USD")
	require.NoError(t, err)
	assert.Equal(t, 60.0, wallet.ReservedBalance)
	assert.Equal(t, 40.0, wallet.AvailableBalance)

	_, wallet, err = service.Cancel(context.Background(), "u1", winner.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, wallet.AvailableBalance)
	assert.Zero(t, wallet.ReservedBalance)
}

func TestMalformedWithdrawalID(t *testing.T) {
	service, _ := NewMock(t)

	withdrawal, wallet, err := service.Confirm(context.Background(), "u1", "abc", "0xhash")
	assert.ErrorIs(t, err, ErrWithdrawalNotFound)
	assert.Nil(t, withdrawal)
	assert.Nil(t, wallet)

	withdrawal, wallet, err = service.Cancel(context.Background(), "u1", "not-a-uuid")
	assert.ErrorIs(t, err, ErrWithdrawalNotFound)
	assert.Nil(t, withdrawal)
	assert.Nil(t, wallet)
}
