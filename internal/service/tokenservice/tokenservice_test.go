package tokenservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

func NewMock(t *testing.T) (*Service, *MockRepo, *auth.JWTService) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	jwtService := auth.NewJWTService("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	return New(repo, jwtService), repo, jwtService
}

func TestIssue(t *testing.T) {
	service, repo, jwtService := NewMock(t)

	t.Run("Refresh token is persisted", func(t *testing.T) {
		var stored string
		repo.EXPECT().Add(gomock.Any(), "u1", gomock.Any()).DoAndReturn(func(_ context.Context, _, token string) error {
			stored = token
			return nil
		})

		pair, err := service.Issue(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, stored, pair.RefreshToken)

		userID, err := jwtService.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "u1", userID)
	})

	t.Run("Store failure", func(t *testing.T) {
		repo.EXPECT().Add(gomock.Any(), "u1", gomock.Any()).Return(errors.New("db error"))

		pair, err := service.Issue(context.Background(), "u1")
		assert.Error(t, err)
		assert.Nil(t, pair)
	})
}

func TestVerifyRefresh(t *testing.T) {
	service, repo, jwtService := NewMock(t)
	_, refresh, err := jwtService.IssueTokenPair("u1")
	require.NoError(t, err)

	tests := []struct {
		name          string
		token         string
		prepareMock   func()
		expectedID    string
		expectedError error
	}{
		{
			name:  "Stored token",
			token: refresh,
			prepareMock: func() {
				repo.EXPECT().Exists(gomock.Any(), "u1", refresh).Return(true, nil)
			},
			expectedID: "u1",
		},
		{
			name:  "Logged out token still has a valid signature",
			token: refresh,
			prepareMock: func() {
				repo.EXPECT().Exists(gomock.Any(), "u1", refresh).Return(false, nil)
			},
			expectedError: ErrTokenRevoked,
		},
		{
			name:          "Malformed token never reaches the store",
			token:         "garbage",
			prepareMock:   func() {},
			expectedError: auth.ErrTokenMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			userID, err := service.VerifyRefresh(context.Background(), tt.token)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, userID)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedID, userID)
		})
	}

	t.Run("Store failure", func(t *testing.T) {
		dbErr := errors.New("db error")
		repo.EXPECT().Exists(gomock.Any(), "u1", refresh).Return(false, dbErr)
		_, err := service.VerifyRefresh(context.Background(), refresh)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestRevoke(t *testing.T) {
	service, repo, _ := NewMock(t)

	repo.EXPECT().Remove(gomock.Any(), "u1", "rt1").Return(nil)
	assert.NoError(t, service.Revoke(context.Background(), "u1", "rt1"))

	repo.EXPECT().RemoveAll(gomock.Any(), "u1").Return(int64(2), nil)
	n, err := service.RevokeAll(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)

	repo.EXPECT().RemoveAll(gomock.Any(), "u1").Return(int64(0), errors.New("db error"))
	_, err = service.RevokeAll(context.Background(), "u1")
	assert.Error(t, err)
}

func TestHasLiveSession(t *testing.T) {
	service, _, jwtService := NewMock(t)
	_, own, err := jwtService.IssueTokenPair("u1")
	require.NoError(t, err)
	_, foreign, err := jwtService.IssueTokenPair("u2")
	require.NoError(t, err)
	expiredService := auth.NewJWTService("access-secret", "refresh-secret", time.Minute, -time.Minute)
	_, expired, err := expiredService.IssueTokenPair("u1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		tokens   []string
		expected bool
	}{
		{name: "No sessions", tokens: []string{}, expected: false},
		{name: "Only expired", tokens: []string{expired}, expected: false},
		{name: "Token of another user", tokens: []string{foreign}, expected: false},
		{name: "One live token among stale ones", tokens: []string{expired, "garbage", own}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &domain.User{ID: "u1", RefreshTokens: tt.tokens}
			assert.Equal(t, tt.expected, service.HasLiveSession(context.Background(), user))
		})
	}
}
