package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GlebRadaev/fundsledger/internal/handlers/auth"
	"github.com/GlebRadaev/fundsledger/internal/handlers/deposit"
	"github.com/GlebRadaev/fundsledger/internal/handlers/wallet"
	"github.com/GlebRadaev/fundsledger/internal/handlers/withdrawal"
	"github.com/GlebRadaev/fundsledger/internal/service"
	pkgauth "github.com/GlebRadaev/fundsledger/pkg/auth"
	"github.com/GlebRadaev/fundsledger/pkg/ratelimit"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	services := &service.Services{
		AuthService:       auth.NewMockService(ctrl),
		WalletService:     wallet.NewMockService(ctrl),
		DepositService:    deposit.NewMockService(ctrl),
		WithdrawalService: withdrawal.NewMockService(ctrl),
		Gateway:           pkgauth.NewGateway(nil, nil, nil),
	}

	h := New(services, Options{})
	assert.NotNil(t, h, "Handlers should not be nil")
	assert.NotNil(t, h.authenticate)
}

func newHandlers(ctrl *gomock.Controller, opts Options) *Handlers {
	mockAuthHandler := NewMockAuthHandler(ctrl)
	mockWalletHandler := NewMockWalletHandler(ctrl)
	mockDepositHandler := NewMockDepositHandler(ctrl)
	mockWithdrawalHandler := NewMockWithdrawalHandler(ctrl)

	mockAuthHandler.EXPECT().Register(gomock.Any(), gomock.Any()).AnyTimes()
	mockAuthHandler.EXPECT().Login(gomock.Any(), gomock.Any()).AnyTimes()
	mockAuthHandler.EXPECT().RefreshToken(gomock.Any(), gomock.Any()).AnyTimes()

	return &Handlers{
		AuthHandler:       mockAuthHandler,
		WalletHandler:     mockWalletHandler,
		DepositHandler:    mockDepositHandler,
		WithdrawalHandler: mockWithdrawalHandler,
		authenticate:      pkgauth.NewGateway(nil, nil, nil).Middleware,
		opts:              opts,
	}
}

func TestInitRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := chi.NewRouter()
	newHandlers(ctrl, Options{RequestTimeout: time.Second}).InitRoutes(router)

	tests := []struct {
		method string
		url    string
		status int
	}{
		{"POST", "/api/register", http.StatusOK},
		{"POST", "/api/login", http.StatusOK},
		{"POST", "/api/refresh-token", http.StatusOK},
		{"POST", "/api/logout", http.StatusUnauthorized},
		{"POST", "/api/logout-all", http.StatusUnauthorized},
		{"GET", "/api/profile", http.StatusUnauthorized},
		{"GET", "/api/wallet", http.StatusUnauthorized},
		{"POST", "/api/deposit", http.StatusUnauthorized},
		{"POST", "/api/deposit/confirm", http.StatusUnauthorized},
		{"POST", "/api/deposit/cancel", http.StatusUnauthorized},
		{"GET", "/api/deposits", http.StatusUnauthorized},
		{"POST", "/api/withdraw", http.StatusUnauthorized},
		{"POST", "/api/withdraw/confirm", http.StatusUnauthorized},
		{"POST", "/api/withdraw/cancel", http.StatusUnauthorized},
		{"GET", "/api/withdrawals", http.StatusUnauthorized},
		{"GET", "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.url, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.url, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			for name, value := range securityHeaders {
				assert.Equal(t, value, rec.Header().Get(name), name)
			}
		})
	}
}

func TestInitRoutesRateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	router := chi.NewRouter()
	newHandlers(ctrl, Options{Limiter: ratelimit.New(client, 2, time.Minute)}).InitRoutes(router)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestInitRoutesRateLimitIgnoresForwardedHeaders(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	router := chi.NewRouter()
	newHandlers(ctrl, Options{Limiter: ratelimit.New(client, 2, time.Minute)}).InitRoutes(router)

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		ip := fmt.Sprintf("203.0.113.%d", i+1)
		req.Header.Set("X-Forwarded-For", ip)
		req.Header.Set("X-Real-IP", ip)
		req.Header.Set("True-Client-IP", ip)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{
		http.StatusOK, http.StatusOK,
		http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)
}

func TestInitRoutesRateLimitBehindTrustedProxy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	router := chi.NewRouter()
	newHandlers(ctrl, Options{
		Limiter:        ratelimit.New(client, 1, time.Minute),
		TrustedProxies: []string{"10.0.0.1"},
	}).InitRoutes(router)

	send := func(clientIP string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		req.Header.Set("X-Forwarded-For", clientIP)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.1"))
	assert.Equal(t, http.StatusOK, send("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.1"))
}

func TestInitRoutesPreflight(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := chi.NewRouter()
	newHandlers(ctrl, Options{AllowedOrigins: []string{"http://localhost:3000"}}).InitRoutes(router)

	req := httptest.NewRequest(http.MethodOptions, "/api/wallet", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
