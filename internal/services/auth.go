package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

// AuthService verifies bearer tokens minted by the identity provider. It
// never issues tokens for clients; SignToken exists for local tooling.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Claims are the fields read from an identity-provider token. Subject is
// the user id; SessionID is optional and falls back to a hash of the token.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid,omitempty"`
}

var ErrInvalidToken = errors.New("invalid token")

type authService struct {
	log    *logger.Logger
	secret []byte
	opts   []jwt.ParserOption
}

func NewAuthService(log *logger.Logger, cfg AuthConfig) (AuthService, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if iss := strings.TrimSpace(cfg.Issuer); iss != "" {
		opts = append(opts, jwt.WithIssuer(iss))
	}
	if aud := strings.TrimSpace(cfg.Audience); aud != "" {
		opts = append(opts, jwt.WithAudience(aud))
	}
	return &authService{
		log:    log.With("service", "AuthService"),
		secret: []byte(secret),
		opts:   opts,
	}, nil
}

func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, s.opts...)
	if err != nil || token == nil || !token.Valid {
		s.log.Debug("token rejected", "error", err)
		return ctx, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	userID, err := uuid.Parse(strings.TrimSpace(claims.Subject))
	if err != nil || userID == uuid.Nil {
		return ctx, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	sessionID, err := uuid.Parse(strings.TrimSpace(claims.SessionID))
	if err != nil || sessionID == uuid.Nil {
		sessionID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(tokenString))
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		SessionID:   sessionID,
	}), nil
}

// SignToken mints an HS256 token the way the identity provider does. Used by
// the dev CLI and tests.
func SignToken(cfg AuthConfig, userID uuid.UUID, ttl time.Duration) (string, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return "", fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    strings.TrimSpace(cfg.Issuer),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SessionID: uuid.New().String(),
	}
	if aud := strings.TrimSpace(cfg.Audience); aud != "" {
		claims.Audience = jwt.ClaimStrings{aud}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(cfg.Secret)))
}
