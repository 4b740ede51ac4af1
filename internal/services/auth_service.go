package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"propdesk/config"
	propdesk_errors "propdesk/pkg/errors"
	"propdesk/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService verifies access tokens minted by the hosted identity provider.
// Sessions and passwords live with the provider; only the signature and the
// subject claim matter here.
type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{jwtSecret: []byte(cfg.AuthJWTSecret)}
}

type AccessClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c AccessClaims) UserID() string {
	return strings.TrimSpace(c.Subject)
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" || len(s.jwtSecret) == 0 {
		return AccessClaims{}, propdesk_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, propdesk_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return AccessClaims{}, propdesk_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.UserID() == "" {
		return AccessClaims{}, propdesk_errors.ErrUnauthorized
	}
	return *claims, nil
}

// IssueAccessToken signs a token for userID. Used by the dev tooling and
// tests; production tokens come from the identity provider.
func (s *AuthService) IssueAccessToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", propdesk_errors.ErrInvalidInput
	}
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, propdesk_errors.ErrQuotaExhausted):
		return 409
	case errors.Is(err, propdesk_errors.ErrValidation), errors.Is(err, propdesk_errors.ErrInvalidInput):
		return 400
	case errors.Is(err, propdesk_errors.ErrUnauthorized):
		return 401
	case errors.Is(err, propdesk_errors.ErrForbidden):
		return 403
	case errors.Is(err, propdesk_errors.ErrNotFound):
		return 404
	case errors.Is(err, propdesk_errors.ErrAlreadyExists), errors.Is(err, propdesk_errors.ErrConflict):
		return 409
	case errors.Is(err, propdesk_errors.ErrTooLarge):
		return 413
	case errors.Is(err, propdesk_errors.ErrRateLimited):
		return 429
	case errors.Is(err, propdesk_errors.ErrAllUploadsFailed), errors.Is(err, propdesk_errors.ErrStorageWrite):
		return 502
	case errors.Is(err, propdesk_errors.ErrServiceUnavailable):
		return 503
	default:
		return 500
	}
}

type ctxKey string

var userIDKey ctxKey = "user_id"

// WithUserContext stores the authenticated user id for services and for
// the request-scoped logger.
func WithUserContext(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, logger.UserIdKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
