package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/pkg/utils"
	"go.uber.org/zap"
)

const EmailHeader = "email"

type ContextKey string

const UserKey ContextKey = "user"

type UserFinder interface {
	FindByIDAndEmail(ctx context.Context, userID, email string) (*domain.User, error)
}

type SessionChecker interface {
	HasLiveSession(ctx context.Context, user *domain.User) bool
}

// Gateway binds the bearer token subject to the identity claimed in the email
// header and refuses tokens of users with no live refresh session.
type Gateway struct {
	jwt      JWTServiceInterface
	users    UserFinder
	sessions SessionChecker
}

func NewGateway(jwt JWTServiceInterface, users UserFinder, sessions SessionChecker) *Gateway {
	return &Gateway{
		jwt:      jwt,
		users:    users,
		sessions: sessions,
	}
}

func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "TOKEN_MISSING", "Access token is required")
			return
		}
		email := strings.ToLower(strings.TrimSpace(r.Header.Get(EmailHeader)))
		if email == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "EMAIL_MISSING", "Email header is required")
			return
		}

		userID, err := g.jwt.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				utils.RespondWithError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token expired")
				return
			}
			utils.RespondWithError(w, http.StatusForbidden, "INVALID_TOKEN", "Invalid token")
			return
		}

		user, err := g.users.FindByIDAndEmail(r.Context(), userID, email)
		if err != nil {
			zap.L().Error("failed to resolve user for token", zap.String("userID", userID), zap.Error(err))
			utils.RespondWithError(w, http.StatusInternalServerError, "AUTH_FAILED", "Authentication failed")
			return
		}
		if user == nil {
			utils.RespondWithError(w, http.StatusForbidden, "INVALID_CREDENTIALS", "Token does not match the claimed identity")
			return
		}

		if !g.sessions.HasLiveSession(r.Context(), user) {
			utils.RespondWithError(w, http.StatusForbidden, "TOKEN_INVALIDATED", "Session has been invalidated")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok && user != nil
}

// CurrentUser writes a 401 and reports false when the request did not pass
// through Middleware.
func CurrentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "TOKEN_MISSING", "Authentication required")
	}
	return user, ok
}
