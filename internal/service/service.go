package service

import (
	"github.com/GlebRadaev/fundsledger/internal/handlers/auth"
	"github.com/GlebRadaev/fundsledger/internal/handlers/deposit"
	"github.com/GlebRadaev/fundsledger/internal/handlers/wallet"
	"github.com/GlebRadaev/fundsledger/internal/handlers/withdrawal"
	"github.com/GlebRadaev/fundsledger/internal/pg"
	"github.com/GlebRadaev/fundsledger/internal/repo"
	"github.com/GlebRadaev/fundsledger/internal/service/authservice"
	"github.com/GlebRadaev/fundsledger/internal/service/depositservice"
	"github.com/GlebRadaev/fundsledger/internal/service/tokenservice"
	"github.com/GlebRadaev/fundsledger/internal/service/walletservice"
	"github.com/GlebRadaev/fundsledger/internal/service/withdrawalservice"
	pkgauth "github.com/GlebRadaev/fundsledger/pkg/auth"
)

type Notifier interface {
	authservice.Notifier
	depositservice.Notifier
	withdrawalservice.Notifier
}

type Options struct {
	TXManager     pg.TXManager
	JWT           pkgauth.JWTServiceInterface
	Hash          pkgauth.HashServiceInterface
	Notifier      Notifier
	Publisher     depositservice.Publisher
	WelcomeBonus  float64
	ReferralBonus float64
	DepositBonus  depositservice.Bonus
}

type Services struct {
	AuthService       auth.Service
	WalletService     wallet.Service
	DepositService    deposit.Service
	WithdrawalService withdrawal.Service
	Gateway           *pkgauth.Gateway
}

func New(repo *repo.Repositories, opts Options) *Services {
	tokenService := tokenservice.New(repo.TokenRepo, opts.JWT)
	walletService := walletservice.New(repo.WalletRepo, opts.TXManager, opts.WelcomeBonus)
	authService := authservice.New(
		repo.UserRepo, tokenService, walletService, opts.TXManager, opts.Hash, opts.Notifier, opts.ReferralBonus,
	)
	depositService := depositservice.New(
		repo.DepositRepo, walletService, opts.TXManager, opts.Notifier, opts.Publisher, opts.DepositBonus,
	)
	withdrawalService := withdrawalservice.New(
		repo.WithdrawalRepo, walletService, opts.TXManager, opts.Notifier, opts.Publisher,
	)

	return &Services{
		AuthService:       authService,
		WalletService:     walletService,
		DepositService:    depositService,
		WithdrawalService: withdrawalService,
		Gateway:           pkgauth.NewGateway(opts.JWT, repo.UserRepo, tokenService),
	}
}
