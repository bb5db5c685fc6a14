package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

//go:generate mockgen -destination=mock_auth.go -package=auth . JWTServiceInterface,HashServiceInterface,UserFinder,SessionChecker

const issuer = "fundsledger"

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

type JWTServiceInterface interface {
	IssueTokenPair(userID string) (accessToken, refreshToken string, err error)
	IssueAccess(userID string) (string, error)
	VerifyAccess(tokenString string) (string, error)
	VerifyRefresh(tokenString string) (string, error)
}

type Claims struct {
	UserID string `json:"userId"`
	jwt.StandardClaims
}

type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewJWTService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTService {
	return &JWTService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (s *JWTService) sign(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *JWTService) IssueAccess(userID string) (string, error) {
	return s.sign(userID, s.accessSecret, s.accessTTL)
}

func (s *JWTService) IssueTokenPair(userID string) (string, string, error) {
	access, err := s.IssueAccess(userID)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(userID, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}
	return access, refresh, nil
}

func (s *JWTService) VerifyAccess(tokenString string) (string, error) {
	return verify(tokenString, s.accessSecret)
}

// VerifyRefresh checks signature and expiry only. Whether the token was
// revoked is decided by the token store.
func (s *JWTService) VerifyRefresh(tokenString string) (string, error) {
	return verify(tokenString, s.refreshSecret)
}

func verify(tokenString string, secret []byte) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 && ve.Errors&jwt.ValidationErrorSignatureInvalid == 0 {
			return "", ErrTokenExpired
		}
		return "", ErrTokenMalformed
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" || claims.Issuer != issuer {
		return "", ErrTokenMalformed
	}

	return claims.UserID, nil
}
