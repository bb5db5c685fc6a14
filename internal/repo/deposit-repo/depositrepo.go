package depositrepo

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

const depositColumns = `id, user_id, amount, currency, crypto_amount, crypto_currency, wallet_address,
	transaction_hash, status, deposit_method, bonus_applied, created_at, updated_at`

func scanDeposit(row pgx.Row) (*domain.Deposit, error) {
	var d domain.Deposit
	err := row.Scan(
		&d.ID, &d.UserID, &d.Amount, &d.Currency, &d.CryptoAmount, &d.CryptoCurrency, &d.WalletAddress,
		&d.TransactionHash, &d.Status, &d.DepositMethod, &d.BonusApplied, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) Create(ctx context.Context, deposit *domain.Deposit) (*domain.Deposit, error) {
	query := `
		INSERT INTO deposits (id, user_id, amount, currency, crypto_amount, crypto_currency, wallet_address,
			transaction_hash, status, deposit_method, bonus_applied, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		deposit.ID, deposit.UserID, deposit.Amount, deposit.Currency, deposit.CryptoAmount, deposit.CryptoCurrency,
		deposit.WalletAddress, deposit.TransactionHash, deposit.Status, deposit.DepositMethod, deposit.BonusApplied,
		deposit.CreatedAt, deposit.UpdatedAt,
	)
	if err != nil {
		zap.L().Error("can't save deposit", zap.Error(err))
		return nil, err
	}
	return deposit, nil
}

// FindForUpdate returns the deposit only when it belongs to userID, holding a
// row lock for the rest of the transaction.
func (r *Repository) FindForUpdate(ctx context.Context, userID, depositID string) (*domain.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1 AND user_id = $2 FOR UPDATE`
	deposit, err := scanDeposit(r.db.QueryRow(ctx, query, depositID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("failed to find deposit", zap.String("depositID", depositID), zap.Error(err))
		return nil, err
	}
	return deposit, nil
}

func (r *Repository) Update(ctx context.Context, deposit *domain.Deposit) error {
	query := `
		UPDATE deposits
		SET status = $1, transaction_hash = $2, bonus_applied = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.Exec(ctx, query,
		deposit.Status, deposit.TransactionHash, deposit.BonusApplied, deposit.UpdatedAt, deposit.ID,
	)
	if err != nil {
		zap.L().Error("can't update deposit", zap.String("depositID", deposit.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, userID, listLimit)
	if err != nil {
		zap.L().Error("failed to fetch deposits", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	deposits := []domain.Deposit{}
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			zap.L().Error("failed to scan deposit row", zap.Error(err))
			return nil, err
		}
		deposits = append(deposits, *d)
	}
	return deposits, rows.Err()
}
