package authservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/internal/ledger"
	"github.com/GlebRadaev/fundsledger/internal/pg"
	"github.com/GlebRadaev/fundsledger/pkg/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mock_authservice.go -package=authservice . Repo,TokenService,WalletService,Notifier

const MinPasswordLength = 8

var (
	ErrEmailTaken        = errors.New("email already registered")
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrIdentityMismatch  = errors.New("token does not belong to this email")
	ErrRefreshTokenEmpty = errors.New("refresh token is required")
)

type Repo interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByIDAndEmail(ctx context.Context, id, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}

type TokenService interface {
	Issue(ctx context.Context, userID string) (*domain.TokenPair, error)
	IssueAccess(userID string) (string, error)
	VerifyRefresh(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, userID, token string) error
	RevokeAll(ctx context.Context, userID string) (int64, error)
}

type WalletService interface {
	Create(ctx context.Context, userID, currency string) (*domain.Wallet, error)
	Mutate(ctx context.Context, userID, currency string, fn ledger.Mutation) (*domain.Wallet, error)
}

type Notifier interface {
	NotifyWelcome(ctx context.Context, user domain.User)
}

type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	Phone         string
	Currency      string
	Country       string
	ReferrerEmail string
}

type Service struct {
	userRepo      Repo
	tokens        TokenService
	wallets       WalletService
	txManager     pg.TXManager
	hashService   auth.HashServiceInterface
	notifier      Notifier
	referralBonus float64
}

func New(
	repo Repo,
	tokens TokenService,
	wallets WalletService,
	txManager pg.TXManager,
	hashService auth.HashServiceInterface,
	notifier Notifier,
	referralBonus float64,
) *Service {
	return &Service{
		userRepo:      repo,
		tokens:        tokens,
		wallets:       wallets,
		txManager:     txManager,
		hashService:   hashService,
		notifier:      notifier,
		referralBonus: referralBonus,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the user and the wallet in one transaction, so a failed
// registration leaves neither behind.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, *domain.TokenPair, error) {
	if len(in.Password) < MinPasswordLength {
		return nil, nil, ErrPasswordTooShort
	}
	email := normalizeEmail(in.Email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		zap.L().Error("can't find user", zap.Error(err))
		return nil, nil, err
	}
	if existing != nil {
		zap.L().Info("email already registered", zap.String("email", email))
		return nil, nil, ErrEmailTaken
	}

	hashedPassword, err := s.hashService.HashPassword(in.Password)
	if err != nil {
		zap.L().Error("can't hash password", zap.Error(err))
		return nil, nil, err
	}

	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        email,
		PasswordHash: hashedPassword,
		Phone:        in.Phone,
		Currency:     currency,
		Country:      in.Country,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		created, err := s.userRepo.Create(ctx, user)
		if err != nil {
			if pg.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		user = created
		if _, err := s.wallets.Create(ctx, user.ID, user.Currency); err != nil {
			return err
		}
		return s.creditReferrer(ctx, in.ReferrerEmail, user.ID)
	})
	if err != nil {
		if !errors.Is(err, ErrEmailTaken) {
			zap.L().Error("can't register user", zap.String("email", email), zap.Error(err))
		}
		return nil, nil, err
	}

	tokens, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		zap.L().Error("can't issue tokens", zap.String("userID", user.ID), zap.Error(err))
		return nil, nil, err
	}
	user.RefreshTokens = append(user.RefreshTokens, tokens.RefreshToken)

	s.notifier.NotifyWelcome(ctx, *user)
	zap.L().Info("user successfully registered", zap.String("userID", user.ID))
	return user, tokens, nil
}

// creditReferrer ignores unknown or self referrals.
func (s *Service) creditReferrer(ctx context.Context, referrerEmail, newUserID string) error {
	referrerEmail = normalizeEmail(referrerEmail)
	if referrerEmail == "" || s.referralBonus <= 0 {
		return nil
	}
	referrer, err := s.userRepo.FindByEmail(ctx, referrerEmail)
	if err != nil {
		return err
	}
	if referrer == nil || referrer.ID == newUserID {
		zap.L().Info("referrer not found, skipping referral bonus", zap.String("referrerEmail", referrerEmail))
		return nil
	}
	now := time.Now().UTC()
	_, err = s.wallets.Mutate(ctx, referrer.ID, referrer.Currency, func(w domain.Wallet) (domain.Wallet, error) {
		return ledger.CreditReferral(w, newUserID, s.referralBonus, now)
	})
	if err != nil {
		return fmt.Errorf("credit referral: %w", err)
	}
	zap.L().Info("referral bonus credited", zap.String("referrerID", referrer.ID), zap.String("userID", newUserID))
	return nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		zap.L().Error("can't find user", zap.Error(err))
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}
	if ok := s.hashService.ComparePassword(user.PasswordHash, password); !ok {
		zap.L().Info("invalid credentials", zap.String("userID", user.ID))
		return nil, nil, ErrInvalidPassword
	}

	tokens, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		zap.L().Error("can't issue tokens", zap.String("userID", user.ID), zap.Error(err))
		return nil, nil, err
	}
	user.RefreshTokens = append(user.RefreshTokens, tokens.RefreshToken)
	zap.L().Info("user successfully authenticated", zap.String("userID", user.ID))
	return user, tokens, nil
}

// Refresh mints a new access token. Token errors from the token service are
// returned unchanged so callers can tell expired from revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken, email string) (*domain.User, string, error) {
	if refreshToken == "" {
		return nil, "", ErrRefreshTokenEmpty
	}
	userID, err := s.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, "", err
	}
	user, err := s.userRepo.FindByIDAndEmail(ctx, userID, normalizeEmail(email))
	if err != nil {
		zap.L().Error("can't find user", zap.Error(err))
		return nil, "", err
	}
	if user == nil {
		return nil, "", ErrIdentityMismatch
	}
	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		zap.L().Error("can't issue access token", zap.String("userID", user.ID), zap.Error(err))
		return nil, "", err
	}
	return user, access, nil
}

func (s *Service) Logout(ctx context.Context, user *domain.User, refreshToken string) error {
	if refreshToken == "" {
		return ErrRefreshTokenEmpty
	}
	if err := s.tokens.Revoke(ctx, user.ID, refreshToken); err != nil {
		zap.L().Error("can't revoke refresh token", zap.String("userID", user.ID), zap.Error(err))
		return err
	}
	zap.L().Info("user logged out", zap.String("userID", user.ID))
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, user *domain.User) (int64, error) {
	n, err := s.tokens.RevokeAll(ctx, user.ID)
	if err != nil {
		zap.L().Error("can't revoke refresh tokens", zap.String("userID", user.ID), zap.Error(err))
		return 0, err
	}
	return n, nil
}
