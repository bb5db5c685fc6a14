package userrepo

import (
	"context"
	"errors"

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

const selectUser = `
	SELECT u.id, u.name, u.email, u.password_hash, u.phone, u.currency, u.country, u.created_at,
		COALESCE(array_agg(rt.token ORDER BY rt.created_at) FILTER (WHERE rt.token IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN refresh_tokens rt ON rt.user_id = u.id
`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Phone,
		&user.Currency, &user.Country, &user.CreatedAt, &user.RefreshTokens,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (repo *Repository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := selectUser + `WHERE u.email = $1 GROUP BY u.id`
	user, err := scanUser(repo.db.QueryRow(ctx, query, email))
	if err != nil {
		zap.L().Error("can't find user by email", zap.Error(err))
		return nil, err
	}
	return user, nil
}

// FindByIDAndEmail binds a token subject to the identity claimed by the caller.
func (repo *Repository) FindByIDAndEmail(ctx context.Context, id, email string) (*domain.User, error) {
	query := selectUser + `WHERE u.id = $1 AND u.email = $2 GROUP BY u.id`
	user, err := scanUser(repo.db.QueryRow(ctx, query, id, email))
	if err != nil {
		zap.L().Error("can't find user by id and email", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (repo *Repository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (id, name, email, password_hash, phone, currency, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := repo.db.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Phone,
		user.Currency, user.Country, user.CreatedAt,
	)
	if err != nil {
		zap.L().Error("can't save user", zap.Error(err))
		return nil, err
	}
	if user.RefreshTokens == nil {
		user.RefreshTokens = []string{}
	}
	return user, nil
}
