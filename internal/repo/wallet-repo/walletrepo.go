package walletrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/internal/pg"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

const walletColumns = `id, user_id, total_balance, reserved_balance, available_balance, total_profit,
	total_deposits, total_withdrawals, bonuses, currency, last_updated, created_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		wallet  domain.Wallet
		bonuses []byte
	)
	err := row.Scan(
		&wallet.ID, &wallet.UserID, &wallet.TotalBalance, &wallet.ReservedBalance, &wallet.AvailableBalance,
		&wallet.TotalProfit, &wallet.TotalDeposits, &wallet.TotalWithdrawals, &bonuses,
		&wallet.Currency, &wallet.LastUpdated, &wallet.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(bonuses) > 0 {
		if err := json.Unmarshal(bonuses, &wallet.Bonuses); err != nil {
			return nil, fmt.Errorf("decode wallet bonuses: %w", err)
		}
	}
	return &wallet, nil
}

func (r *Repository) get(ctx context.Context, query, userID string) (*domain.Wallet, error) {
	wallet, err := scanWallet(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("failed to get wallet", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	return wallet, nil
}

func (r *Repository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return r.get(ctx, query, userID)
}

// GetByUserIDForUpdate locks the wallet row until the surrounding transaction
// ends. It must be called inside pg.TXManager.Begin.
func (r *Repository) GetByUserIDForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	return r.get(ctx, query, userID)
}

// CreateIfAbsent reports whether this call inserted the wallet. The unique
// user_id constraint guarantees one wallet per user across processes.
func (r *Repository) CreateIfAbsent(ctx context.Context, wallet *domain.Wallet) (bool, error) {
	bonuses, err := json.Marshal(wallet.Bonuses)
	if err != nil {
		return false, fmt.Errorf("encode wallet bonuses: %w", err)
	}
	query := `
		INSERT INTO wallets (id, user_id, total_balance, reserved_balance, available_balance, total_profit,
			total_deposits, total_withdrawals, bonuses, currency, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		wallet.ID, wallet.UserID, wallet.TotalBalance, wallet.ReservedBalance, wallet.AvailableBalance,
		wallet.TotalProfit, wallet.TotalDeposits, wallet.TotalWithdrawals, bonuses,
		wallet.Currency, wallet.LastUpdated, wallet.CreatedAt,
	)
	if err != nil {
		zap.L().Error("failed to create wallet", zap.String("userID", wallet.UserID), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) Update(ctx context.Context, wallet *domain.Wallet) (*domain.Wallet, error) {
	bonuses, err := json.Marshal(wallet.Bonuses)
	if err != nil {
		return nil, fmt.Errorf("encode wallet bonuses: %w", err)
	}
	query := `
		UPDATE wallets
		SET total_balance = $1, reserved_balance = $2, available_balance = $3, total_profit = $4,
			total_deposits = $5, total_withdrawals = $6, bonuses = $7, last_updated = $8
		WHERE id = $9
		RETURNING ` + walletColumns
	updated, err := scanWallet(r.db.QueryRow(ctx, query,
		wallet.TotalBalance, wallet.ReservedBalance, wallet.AvailableBalance, wallet.TotalProfit,
		wallet.TotalDeposits, wallet.TotalWithdrawals, bonuses, wallet.LastUpdated, wallet.ID,
	))
	if err != nil {
		zap.L().Error("failed to update wallet", zap.String("walletID", wallet.ID), zap.Error(err))
		return nil, err
	}
	return updated, nil
}
