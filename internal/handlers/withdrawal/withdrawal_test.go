package withdrawal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/internal/dto"
	"github.com/GlebRadaev/fundsledger/internal/ledger"
	"github.com/GlebRadaev/fundsledger/internal/service/withdrawalservice"
	"github.com/GlebRadaev/fundsledger/pkg/auth"
	"github.com/GlebRadaev/fundsledger/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

var user = &domain.User{ID: "u1", Email: "a@x.com"}

func NewMock(t *testing.T) (*WithdrawalHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	return New(service), service
}

func request(method, url, body string) *http.Request {
	r := httptest.NewRequest(method, url, bytes.NewBufferString(body))
	return r.WithContext(auth.WithUser(context.Background(), user))
}

func TestWithdrawHandler(t *testing.T) {
	valid := `{"amount":50,"currency":"USD","walletAddress":"addr2"}`

	tests := []struct {
		name         string
		body         string
		prepareMock  func(s *MockService)
		expectedCode int
		expectedErr  string
	}{
		{
			name: "Funds reserved",
			body: valid,
			prepareMock: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), user, withdrawalservice.CreateInput{Amount: 50, Currency: "USD", WalletAddress: "addr2"}).
					Return(
						&domain.Withdrawal{ID: "wd1", Amount: 50, Status: domain.WithdrawalPending},
						&domain.Wallet{TotalBalance: 100, ReservedBalance: 50, AvailableBalance: 100},
						nil,
					)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name: "Insufficient funds",
			body: valid,
			prepareMock: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), user, gomock.Any()).Return(nil, nil, ledger.ErrInsufficientFunds)
			},
			expectedCode: http.StatusBadRequest,
			expectedErr:  "INSUFFICIENT_FUNDS",
		},
		{
			name: "Zero amount",
			body: `{"amount":0,"currency":"USD","walletAddress":"addr2"}`,
			prepareMock: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), user, gomock.Any()).Return(nil, nil, ledger.ErrInvalidAmount)
			},
			expectedCode: http.StatusBadRequest,
			expectedErr:  "INVALID_AMOUNT",
		},
		{
			name:         "Missing wallet address",
			body:         `{"amount":50,"currency":"USD"}`,
			prepareMock:  func(s *MockService) {},
			expectedCode: http.StatusBadRequest,
			expectedErr:  "MISSING_FIELDS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := NewMock(t)
			tt.prepareMock(service)

			w := httptest.NewRecorder()
			handler.Withdraw(w, request(http.MethodPost, "/api/withdraw", tt.body))

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedErr != "" {
				var resp utils.Response
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedErr, resp.Code)
				return
			}
			var body dto.WithdrawalResponseDTO
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "pending", body.Withdrawal.Status)
			assert.Equal(t, 50.0, body.Wallet.ReservedBalance)
		})
	}
}

func TestConfirmWithdrawalHandler(t *testing.T) {
	handler, service := NewMock(t)

	service.EXPECT().Confirm(gomock.Any(), "u1", "wd1", "0xhash").Return(
		&domain.Withdrawal{ID: "wd1", Status: domain.WithdrawalCompleted},
		&domain.Wallet{TotalBalance: 50, TotalWithdrawals: 50},
		nil,
	)
	w := httptest.NewRecorder()
	handler.ConfirmWithdrawal(w, request(http.MethodPost, "/api/withdraw/confirm", `{"withdrawalId":"wd1","transactionHash":"0xhash"}`))
	assert.Equal(t, http.StatusOK, w.Code)

	service.EXPECT().Confirm(gomock.Any(), "u1", "wd1", "").Return(nil, nil, withdrawalservice.ErrWithdrawalNotFound)
	w = httptest.NewRecorder()
	handler.ConfirmWithdrawal(w, request(http.MethodPost, "/api/withdraw/confirm", `{"withdrawalId":"wd1"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.ConfirmWithdrawal(w, request(http.MethodPost, "/api/withdraw/confirm", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelWithdrawalHandler(t *testing.T) {
	handler, service := NewMock(t)

	service.EXPECT().Cancel(gomock.Any(), "u1", "wd1").Return(
		&domain.Withdrawal{ID: "wd1", Status: domain.WithdrawalCancelled},
		&domain.Wallet{TotalBalance: 100, AvailableBalance: 150},
		nil,
	)
	w := httptest.NewRecorder()
	handler.CancelWithdrawal(w, request(http.MethodPost, "/api/withdraw/cancel", `{"withdrawalId":"wd1"}`))
	assert.Equal(t, http.StatusOK, w.Code)

	var body dto.WithdrawalResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "cancelled", body.Withdrawal.Status)
	assert.Equal(t, 150.0, body.Wallet.AvailableBalance)

	service.EXPECT().Cancel(gomock.Any(), "u1", "wd1").Return(nil, nil, withdrawalservice.ErrWithdrawalNotPending)
	w = httptest.NewRecorder()
	handler.CancelWithdrawal(w, request(http.MethodPost, "/api/withdraw/cancel", `{"withdrawalId":"wd1"}`))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetWithdrawalsHandler(t *testing.T) {
	handler, service := NewMock(t)

	service.EXPECT().List(gomock.Any(), "u1").Return([]domain.Withdrawal{{ID: "wd1"}}, nil)
	w := httptest.NewRecorder()
	handler.GetWithdrawals(w, request(http.MethodGet, "/api/withdrawals", ""))
	assert.Equal(t, http.StatusOK, w.Code)

	service.EXPECT().List(gomock.Any(), "u1").Return(nil, errors.New("db error"))
	w = httptest.NewRecorder()
	handler.GetWithdrawals(w, request(http.MethodGet, "/api/withdrawals", ""))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWithdrawalHandlerRejectsBeforeStore(t *testing.T) {
	// Nil collaborators: these requests must be refused before any of them is used.
	handler := New(withdrawalservice.New(nil, nil, nil, nil, nil))

	tests := []struct {
		name         string
		serve        func(w http.ResponseWriter, r *http.Request)
		url          string
		body         string
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "Sub-cent amount",
			serve:        handler.Withdraw,
			url:          "/api/withdraw",
			body:         `{"amount":0.004,"currency":"USD","walletAddress":"addr"}`,
			expectedCode: http.StatusBadRequest,
			expectedErr:  "INVALID_AMOUNT",
		},
		{
			name:         "Confirm malformed id",
			serve:        handler.ConfirmWithdrawal,
			url:          "/api/withdraw/confirm",
			body:         `{"withdrawalId":"abc"}`,
			expectedCode: http.StatusNotFound,
			expectedErr:  "NOT_FOUND",
		},
		{
			name:         "Cancel malformed id",
			serve:        handler.CancelWithdrawal,
			url:          "/api/withdraw/cancel",
			body:         `{"withdrawalId":"abc"}`,
			expectedCode: http.StatusNotFound,
			expectedErr:  "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.serve(w, request(http.MethodPost, tt.url, tt.body))

			assert.Equal(t, tt.expectedCode, w.Code)
			var resp utils.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedErr, resp.Code)
		})
	}
}
