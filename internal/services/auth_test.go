package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/data/repos/testutil"
	"github.com/yungbote/puzzleplan-backend/internal/platform/ctxutil"
)

func TestAuthRoundTrip(t *testing.T) {
	cfg := AuthConfig{Secret: "s3cret", Issuer: "https://id.example", Audience: "puzzleplan"}
	svc, err := NewAuthService(testutil.Logger(t), cfg)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	userID := uuid.New()
	tok, err := SignToken(cfg, userID, time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	ctx, err := svc.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != userID || rd.SessionID == uuid.Nil || rd.TokenString != tok {
		t.Fatalf("request data: %+v", rd)
	}
}

func TestAuthRejections(t *testing.T) {
	cfg := AuthConfig{Secret: "s3cret", Issuer: "https://id.example", Audience: "puzzleplan"}
	svc, err := NewAuthService(testutil.Logger(t), cfg)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	now := time.Now()
	sign := func(c jwt.Claims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	base := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}
	}

	expired := base()
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	noExp := base()
	noExp.ExpiresAt = nil
	badSub := base()
	badSub.Subject = "not-a-uuid"
	wrongIss := base()
	wrongIss.Issuer = "https://evil.example"
	wrongAud := base()
	wrongAud.Audience = jwt.ClaimStrings{"other"}

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"wrong secret": sign(&Claims{RegisteredClaims: base()}, "other"),
		"expired":      sign(&Claims{RegisteredClaims: expired}, cfg.Secret),
		"no exp":       sign(&Claims{RegisteredClaims: noExp}, cfg.Secret),
		"bad subject":  sign(&Claims{RegisteredClaims: badSub}, cfg.Secret),
		"wrong issuer": sign(&Claims{RegisteredClaims: wrongIss}, cfg.Secret),
		"wrong aud":    sign(&Claims{RegisteredClaims: wrongAud}, cfg.Secret),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			ctx, err := svc.SetContextFromToken(context.Background(), tok)
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("want ErrInvalidToken, got %v", err)
			}
			if ctxutil.GetRequestData(ctx) != nil {
				t.Fatalf("context should not carry request data")
			}
		})
	}
}

func TestAuthSessionFallsBackToTokenHash(t *testing.T) {
	cfg := AuthConfig{Secret: "s3cret"}
	svc, _ := NewAuthService(testutil.Logger(t), cfg)
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))

	a, err := svc.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	b, _ := svc.SetContextFromToken(context.Background(), tok)
	if ctxutil.GetRequestData(a).SessionID != ctxutil.GetRequestData(b).SessionID {
		t.Fatalf("same token should map to the same session")
	}
}

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	if _, err := NewAuthService(testutil.Logger(t), AuthConfig{Secret: "  "}); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
