package handlers

import (
	"net/http"
	"time"

	_ "github.com/GlebRadaev/fundsledger/docs"
	authhandlers "github.com/GlebRadaev/fundsledger/internal/handlers/auth"
	deposithandlers "github.com/GlebRadaev/fundsledger/internal/handlers/deposit"
	wallethandlers "github.com/GlebRadaev/fundsledger/internal/handlers/wallet"
	withdrawalhandlers "github.com/GlebRadaev/fundsledger/internal/handlers/withdrawal"
	"github.com/GlebRadaev/fundsledger/internal/service"
	"github.com/GlebRadaev/fundsledger/pkg/cors"
	"github.com/GlebRadaev/fundsledger/pkg/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:generate mockgen -destination=mock_handlers.go -package=handlers . AuthHandler,WalletHandler,DepositHandler,WithdrawalHandler

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	RefreshToken(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	LogoutAll(w http.ResponseWriter, r *http.Request)
	Profile(w http.ResponseWriter, r *http.Request)
}

type WalletHandler interface {
	GetWallet(w http.ResponseWriter, r *http.Request)
}

type DepositHandler interface {
	CreateDeposit(w http.ResponseWriter, r *http.Request)
	ConfirmDeposit(w http.ResponseWriter, r *http.Request)
	CancelDeposit(w http.ResponseWriter, r *http.Request)
	GetDeposits(w http.ResponseWriter, r *http.Request)
}

type WithdrawalHandler interface {
	Withdraw(w http.ResponseWriter, r *http.Request)
	ConfirmWithdrawal(w http.ResponseWriter, r *http.Request)
	CancelWithdrawal(w http.ResponseWriter, r *http.Request)
	GetWithdrawals(w http.ResponseWriter, r *http.Request)
}

type Options struct {
	Limiter        *ratelimit.Limiter
	TrustedProxies []string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

var securityHeaders = map[string]string{
	"X-Content-Type-Options":            "nosniff",
	"X-Frame-Options":                   "SAMEORIGIN",
	"X-DNS-Prefetch-Control":            "off",
	"X-Download-Options":                "noopen",
	"X-Permitted-Cross-Domain-Policies": "none",
	"X-XSS-Protection":                  "0",
	"Referrer-Policy":                   "no-referrer",
	"Strict-Transport-Security":         "max-age=15552000; includeSubDomains",
	"Cross-Origin-Opener-Policy":        "same-origin",
	"Cross-Origin-Resource-Policy":      "same-origin",
	"Origin-Agent-Cluster":              "?1",
}

type Handlers struct {
	AuthHandler       AuthHandler
	WalletHandler     WalletHandler
	DepositHandler    DepositHandler
	WithdrawalHandler WithdrawalHandler

	authenticate func(http.Handler) http.Handler
	opts         Options
}

func New(s *service.Services, opts Options) *Handlers {
	return &Handlers{
		AuthHandler:       authhandlers.New(s.AuthService),
		WalletHandler:     wallethandlers.New(s.WalletService),
		DepositHandler:    deposithandlers.New(s.DepositService),
		WithdrawalHandler: withdrawalhandlers.New(s.WithdrawalService),
		authenticate:      s.Gateway.Middleware,
		opts:              opts,
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RequestID,
		ratelimit.TrustedRealIP(h.opts.TrustedProxies),
		middleware.Logger,
		middleware.Recoverer,
	)
	for name, value := range securityHeaders {
		r.Use(middleware.SetHeader(name, value))
	}
	r.Use(cors.Middleware(h.opts.AllowedOrigins))
	if h.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(h.opts.RequestTimeout))
	}
	if h.opts.Limiter != nil {
		r.Use(h.opts.Limiter.Middleware)
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.AuthHandler.Register)
		r.Post("/login", h.AuthHandler.Login)
		r.Post("/refresh-token", h.AuthHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Post("/logout", h.AuthHandler.Logout)
			r.Post("/logout-all", h.AuthHandler.LogoutAll)
			r.Get("/profile", h.AuthHandler.Profile)
			r.Get("/wallet", h.WalletHandler.GetWallet)

			r.Route("/deposit", func(r chi.Router) {
				r.Post("/", h.DepositHandler.CreateDeposit)
				r.Post("/confirm", h.DepositHandler.ConfirmDeposit)
				r.Post("/cancel", h.DepositHandler.CancelDeposit)
			})
			r.Get("/deposits", h.DepositHandler.GetDeposits)

			r.Route("/withdraw", func(r chi.Router) {
				r.Post("/", h.WithdrawalHandler.Withdraw)
				r.Post("/confirm", h.WithdrawalHandler.ConfirmWithdrawal)
				r.Post("/cancel", h.WithdrawalHandler.CancelWithdrawal)
			})
			r.Get("/withdrawals", h.WithdrawalHandler.GetWithdrawals)
		})
	})

	return r
}
