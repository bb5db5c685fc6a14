package withdrawalrepo

import (
	"context"
	"errors"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/internal/pg"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const listLimit = 50

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

const withdrawalColumns = `id, user_id, amount, currency, wallet_address, transaction_hash, status, created_at, updated_at`

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	var wd domain.Withdrawal
	err := row.Scan(
		&wd.ID, &wd.UserID, &wd.Amount, &wd.Currency, &wd.WalletAddress,
		&wd.TransactionHash, &wd.Status, &wd.CreatedAt, &wd.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wd, nil
}

func (r *Repository) CreateWithdrawal(ctx context.Context, withdrawal *domain.Withdrawal) (*domain.Withdrawal, error) {
	query := `
		INSERT INTO withdrawals (id, user_id, amount, currency, wallet_address, transaction_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		withdrawal.ID, withdrawal.UserID, withdrawal.Amount, withdrawal.Currency, withdrawal.WalletAddress,
		withdrawal.TransactionHash, withdrawal.Status, withdrawal.CreatedAt, withdrawal.UpdatedAt,
	)
	if err != nil {
		zap.L().Error("can't save withdrawal", zap.Error(err))
		return nil, err
	}
	return withdrawal, nil
}

func (r *Repository) FindForUpdate(ctx context.Context, userID, withdrawalID string) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1 AND user_id = $2 FOR UPDATE`
	wd, err := scanWithdrawal(r.db.QueryRow(ctx, query, withdrawalID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("failed to find withdrawal", zap.String("withdrawalID", withdrawalID), zap.Error(err))
		return nil, err
	}
	return wd, nil
}

func (r *Repository) UpdateWithdrawal(ctx context.Context, withdrawal *domain.Withdrawal) error {
	query := `
		UPDATE withdrawals
		SET status = $1, transaction_hash = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, withdrawal.Status, withdrawal.TransactionHash, withdrawal.UpdatedAt, withdrawal.ID)
	if err != nil {
		zap.L().Error("can't update withdrawal", zap.String("withdrawalID", withdrawal.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) GetWithdrawalsByUserID(ctx context.Context, userID string) ([]domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, userID, listLimit)
	if err != nil {
		zap.L().Error("failed to fetch withdrawals", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	withdrawals := []domain.Withdrawal{}
	for rows.Next() {
		wd, err := scanWithdrawal(rows)
		if err != nil {
			zap.L().Error("failed to scan withdrawal row", zap.Error(err))
			return nil, err
		}
		withdrawals = append(withdrawals, *wd)
	}

	return withdrawals, rows.Err()
}
