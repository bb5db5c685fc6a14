package tokenrepo

import (
	"context"

	"github.com/GlebRadaev/fundsledger/internal/pg"
	"go.uber.org/zap"
)

// Repository keeps one row per issued refresh token, so issuing and revoking
// are single-row statements that never rewrite the whole list.
type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Add(ctx context.Context, userID, token string) error {
	query := `
		INSERT INTO refresh_tokens (token, user_id)
		VALUES ($1, $2)
		ON CONFLICT (token) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, token, userID); err != nil {
		zap.L().Error("can't save refresh token", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) Exists(ctx context.Context, userID, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE user_id = $1 AND token = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, token).Scan(&exists); err != nil {
		zap.L().Error("can't check refresh token", zap.Error(err))
		return false, err
	}
	return exists, nil
}

// Remove is idempotent: deleting an unknown token is not an error.
func (r *Repository) Remove(ctx context.Context, userID, token string) error {
	query := `DELETE FROM refresh_tokens WHERE user_id = $1 AND token = $2`
	if _, err := r.db.Exec(ctx, query, userID, token); err != nil {
		zap.L().Error("can't remove refresh token", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) RemoveAll(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE user_id = $1`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		zap.L().Error("can't remove refresh tokens", zap.Error(err))
		return 0, err
	}
	return tag.RowsAffected(), nil
}
