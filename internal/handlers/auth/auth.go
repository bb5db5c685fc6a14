package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/internal/dto"
	"github.com/GlebRadaev/fundsledger/internal/service/authservice"
	"github.com/GlebRadaev/fundsledger/internal/service/tokenservice"
	pkgauth "github.com/GlebRadaev/fundsledger/pkg/auth"
	"github.com/GlebRadaev/fundsledger/pkg/utils"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mock_auth.go -package=auth . Service

type Service interface {
	Register(ctx context.Context, in authservice.RegisterInput) (*domain.User, *domain.TokenPair, error)
	Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken, email string) (*domain.User, string, error)
	Logout(ctx context.Context, user *domain.User, refreshToken string) error
	LogoutAll(ctx context.Context, user *domain.User) (int64, error)
}

type AuthHandler struct {
	authService Service
}

func New(authService Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register godoc
//
//	@Summary		Register a new user
//	@Description	Create a user account with a funded wallet and return a token pair
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.RegisterRequestDTO	true	"Register request body"
//	@Success		201		{object}	dto.AuthResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid body, missing fields, short password or email taken"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if fields := req.MissingFields(); len(fields) > 0 {
		utils.RespondWithMissingFields(w, fields)
		return
	}

	user, tokens, err := h.authService.Register(r.Context(), authservice.RegisterInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		Phone:         req.Phone,
		Currency:      req.Currency,
		Country:       req.Country,
		ReferrerEmail: req.ReferrerEmail,
	})
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrPasswordTooShort):
			utils.RespondWithError(w, http.StatusBadRequest, "PASSWORD_TOO_SHORT", err.Error())
		case errors.Is(err, authservice.ErrEmailTaken):
			utils.RespondWithError(w, http.StatusBadRequest, "EMAIL_TAKEN", "User already exists")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.AuthResponseDTO{
		Token:        tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         dto.NewUserDTO(user),
	})
}

// Login godoc
//
//	@Summary		Authenticate user
//	@Description	Log in with email and password and get a token pair
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.LoginRequestDTO	true	"Login request body"
//	@Success		200		{object}	dto.AuthResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Unknown email or wrong password"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if fields := req.MissingFields(); len(fields) > 0 {
		utils.RespondWithMissingFields(w, fields)
		return
	}

	user, tokens, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrUserNotFound):
			utils.RespondWithError(w, http.StatusUnauthorized, "USER_NOT_FOUND", "User not found")
		case errors.Is(err, authservice.ErrInvalidPassword):
			utils.RespondWithError(w, http.StatusUnauthorized, "INVALID_PASSWORD", "Invalid credentials")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.AuthResponseDTO{
		Token:        tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         dto.NewUserDTO(user),
	})
}

// RefreshToken godoc
//
//	@Summary		Refresh access token
//	@Description	Exchange a stored refresh token for a new access token
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			email	header		string					true	"Claimed user email"
//	@Param			request	body		dto.RefreshRequestDTO	true	"Refresh request body"
//	@Success		200		{object}	dto.RefreshResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Email missing or token expired"
//	@Failure		403		{object}	utils.Response	"Invalid, revoked or foreign token"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/refresh-token [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.Header.Get(pkgauth.EmailHeader))
	if email == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "EMAIL_MISSING", "Email header is required")
		return
	}
	var req dto.RefreshRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		utils.RespondWithMissingFields(w, []string{"refreshToken"})
		return
	}

	user, access, err := h.authService.Refresh(r.Context(), req.RefreshToken, email)
	if err != nil {
		switch {
		case errors.Is(err, pkgauth.ErrTokenExpired):
			utils.RespondWithError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Refresh token expired")
		case errors.Is(err, pkgauth.ErrTokenMalformed):
			utils.RespondWithError(w, http.StatusForbidden, "INVALID_TOKEN", "Invalid token")
		case errors.Is(err, tokenservice.ErrTokenRevoked):
			utils.RespondWithError(w, http.StatusForbidden, "TOKEN_INVALIDATED", "Refresh token has been revoked")
		case errors.Is(err, authservice.ErrIdentityMismatch):
			utils.RespondWithError(w, http.StatusForbidden, "INVALID_CREDENTIALS", "Token does not match the claimed identity")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.RefreshResponseDTO{
		Token: access,
		User:  dto.NewUserDTO(user),
	})
}

// Logout godoc
//
//	@Summary		Log out
//	@Description	Revoke one refresh token of the current user
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.LogoutRequestDTO	true	"Logout request body"
//	@Success		200		{object}	dto.MessageResponseDTO
//	@Failure		400		{object}	utils.Response	"Missing refresh token"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := pkgauth.CurrentUser(w, r)
	if !ok {
		return
	}
	var req dto.LogoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		utils.RespondWithMissingFields(w, []string{"refreshToken"})
		return
	}
	if err := h.authService.Logout(r.Context(), user, req.RefreshToken); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.MessageResponseDTO{Message: "Logged out successfully"})
}

// LogoutAll godoc
//
//	@Summary		Log out everywhere
//	@Description	Revoke every refresh token of the current user
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.MessageResponseDTO
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/logout-all [post]
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := pkgauth.CurrentUser(w, r)
	if !ok {
		return
	}
	n, err := h.authService.LogoutAll(r.Context(), user)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	zap.L().Info("all sessions closed", zap.String("userID", user.ID), zap.Int64("revoked", n))
	utils.RespondWithJSON(w, http.StatusOK, dto.MessageResponseDTO{Message: "Logged out from all devices"})
}

// Profile godoc
//
//	@Summary		Get profile
//	@Description	Return the profile of the authenticated user
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.ProfileResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Router			/api/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := pkgauth.CurrentUser(w, r)
	if !ok {
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewProfileDTO(user))
}
