package repo

import (
	"github.com/GlebRadaev/fundsledger/internal/pg"
	depositrepo "github.com/GlebRadaev/fundsledger/internal/repo/deposit-repo"
	tokenrepo "github.com/GlebRadaev/fundsledger/internal/repo/token-repo"
	userrepo "github.com/GlebRadaev/fundsledger/internal/repo/user-repo"
	walletrepo "github.com/GlebRadaev/fundsledger/internal/repo/wallet-repo"
	withdrawalrepo "github.com/GlebRadaev/fundsledger/internal/repo/withdrawal-repo"
	"github.com/GlebRadaev/fundsledger/internal/service/authservice"
	"github.com/GlebRadaev/fundsledger/internal/service/depositservice"
	"github.com/GlebRadaev/fundsledger/internal/service/tokenservice"
	"github.com/GlebRadaev/fundsledger/internal/service/walletservice"
	"github.com/GlebRadaev/fundsledger/internal/service/withdrawalservice"
)

type Repositories struct {
	UserRepo       authservice.Repo
	TokenRepo      tokenservice.Repo
	WalletRepo     walletservice.Repo
	DepositRepo    depositservice.Repo
	WithdrawalRepo withdrawalservice.Repo
}

// New expects conn to route statements to the transaction carried by the
// context, as pg.DB does.
func New(conn pg.Database) *Repositories {
	return &Repositories{
		UserRepo:       userrepo.New(conn),
		TokenRepo:      tokenrepo.New(conn),
		WalletRepo:     walletrepo.New(conn),
		DepositRepo:    depositrepo.New(conn),
		WithdrawalRepo: withdrawalrepo.New(conn),
	}
}
