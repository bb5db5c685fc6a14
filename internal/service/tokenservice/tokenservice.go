package tokenservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/pkg/auth"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mock_tokenservice.go -package=tokenservice . Repo

var ErrTokenRevoked = errors.New("refresh token revoked")

type Repo interface {
	Add(ctx context.Context, userID, token string) error
	Exists(ctx context.Context, userID, token string) (bool, error)
	Remove(ctx context.Context, userID, token string) error
	RemoveAll(ctx context.Context, userID string) (int64, error)
}

type Service struct {
	repo Repo
	jwt  auth.JWTServiceInterface
}

func New(repo Repo, jwt auth.JWTServiceInterface) *Service {
	return &Service{
		repo: repo,
		jwt:  jwt,
	}
}

// Issue signs a new pair and stores the refresh token. The pair is only
// returned once the refresh token is persisted.
func (s *Service) Issue(ctx context.Context, userID string) (*domain.TokenPair, error) {
	access, refresh, err := s.jwt.IssueTokenPair(userID)
	if err != nil {
		zap.L().Error("can't sign token pair", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	if err := s.repo.Add(ctx, userID, refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) IssueAccess(userID string) (string, error) {
	return s.jwt.IssueAccess(userID)
}

// VerifyRefresh returns auth.ErrTokenExpired or auth.ErrTokenMalformed for
// tokens that fail signature checks, and ErrTokenRevoked for valid tokens that
// are no longer stored.
func (s *Service) VerifyRefresh(ctx context.Context, token string) (string, error) {
	userID, err := s.jwt.VerifyRefresh(token)
	if err != nil {
		return "", err
	}
	exists, err := s.repo.Exists(ctx, userID, token)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrTokenRevoked
	}
	return userID, nil
}

func (s *Service) Revoke(ctx context.Context, userID, token string) error {
	return s.repo.Remove(ctx, userID, token)
}

func (s *Service) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.RemoveAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	zap.L().Info("revoked all sessions", zap.String("userID", userID), zap.Int64("count", n))
	return n, nil
}

// HasLiveSession reports whether any stored refresh token of user still
// verifies and belongs to user.
func (s *Service) HasLiveSession(_ context.Context, user *domain.User) bool {
	for _, token := range user.RefreshTokens {
		subject, err := s.jwt.VerifyRefresh(token)
		if err == nil && subject == user.ID {
			return true
		}
	}
	return false
}
