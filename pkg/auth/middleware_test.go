package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

func NewMockGateway(t *testing.T) (*Gateway, *MockJWTServiceInterface, *MockUserFinder, *MockSessionChecker) {
	ctrl := gomock.NewController(t)
	jwtService := NewMockJWTServiceInterface(ctrl)
	users := NewMockUserFinder(ctrl)
	sessions := NewMockSessionChecker(ctrl)
	return NewGateway(jwtService, users, sessions), jwtService, users, sessions
}

func TestGateway_Middleware(t *testing.T) {
	gateway, jwtService, users, sessions := NewMockGateway(t)
	user := &domain.User{ID: "u1", Email: "a@x.com", RefreshTokens: []string{"rt1"}}

	tests := []struct {
		name           string
		authHeader     string
		email          string
		prepareMock    func()
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "No token",
			email:          "a@x.com",
			prepareMock:    func() {},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "TOKEN_MISSING",
		},
		{
			name:           "Not a bearer token",
			authHeader:     "Basic abc",
			email:          "a@x.com",
			prepareMock:    func() {},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "TOKEN_MISSING",
		},
		{
			name:           "No email header",
			authHeader:     "Bearer access",
			prepareMock:    func() {},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "EMAIL_MISSING",
		},
		{
			name:       "Expired token",
			authHeader: "Bearer access",
			email:      "a@x.com",
			prepareMock: func() {
				jwtService.EXPECT().VerifyAccess("access").Return("", ErrTokenExpired)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "TOKEN_EXPIRED",
		},
		{
			name:       "Malformed token",
			authHeader: "Bearer access",
			email:      "a@x.com",
			prepareMock: func() {
				jwtService.EXPECT().VerifyAccess("access").Return("", ErrTokenMalformed)
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "INVALID_TOKEN",
		},
		{
			name:       "Token replayed for another identity",
			authHeader: "Bearer access",
			email:      "b@x.com",
			prepareMock: func() {
				jwtService.EXPECT().VerifyAccess("access").Return("u1", nil)
				users.EXPECT().FindByIDAndEmail(gomock.Any(), "u1", "b@x.com").Return(nil, nil)
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "INVALID_CREDENTIALS",
		},
		{
			name:       "Store failure",
			authHeader: "Bearer access",
			email:      "a@x.com",
			prepareMock: func() {
				jwtService.EXPECT().VerifyAccess("access").Return("u1", nil)
				users.EXPECT().FindByIDAndEmail(gomock.Any(), "u1", "a@x.com").Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "AUTH_FAILED",
		},
		{
			name:       "Logged out everywhere",
			authHeader: "Bearer access",
			email:      "a@x.com",
			prepareMock: func() {
				jwtService.EXPECT().VerifyAccess("access").Return("u1", nil)
				users.EXPECT().FindByIDAndEmail(gomock.Any(), "u1", "a@x.com").Return(user, nil)
				sessions.EXPECT().HasLiveSession(gomock.Any(), user).Return(false)
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "TOKEN_INVALIDATED",
		},
		{
			name:       "Authenticated",
			authHeader: "Bearer access",
			email:      "a@x.com",
			prepareMock: func() {
				jwtService.EXPECT().VerifyAccess("access").Return("u1", nil)
				users.EXPECT().FindByIDAndEmail(gomock.Any(), "u1", "a@x.com").Return(user, nil)
				sessions.EXPECT().HasLiveSession(gomock.Any(), user).Return(true)
			},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			var seen *domain.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/wallet", http.NoBody)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.email != "" {
				req.Header.Set(EmailHeader, tt.email)
			}
			rec := httptest.NewRecorder()

			gateway.Middleware(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedCode != "" {
				var resp utils.Response
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedCode, resp.Code)
				assert.NotEmpty(t, resp.Message)
				assert.Nil(t, seen)
			} else {
				assert.Equal(t, user, seen)
			}
		})
	}
}

func TestUserFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	_, ok := UserFromContext(req.Context())
	assert.False(t, ok)

	user := &domain.User{ID: "u1"}
	got, ok := UserFromContext(WithUser(req.Context(), user))
	assert.True(t, ok)
	assert.Equal(t, user, got)
}

func TestCurrentUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	_, ok := CurrentUser(rec, req)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	user := &domain.User{ID: "u1"}
	rec = httptest.NewRecorder()
	got, ok := CurrentUser(rec, req.WithContext(WithUser(req.Context(), user)))
	assert.True(t, ok)
	assert.Equal(t, user, got)
}
