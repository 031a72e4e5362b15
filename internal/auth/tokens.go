package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	SessionTTL = time.Hour
	ResetTTL   = 15 * time.Minute
)

// SessionClaims - содержимое токена, выдаваемого при логине.
type SessionClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ResetClaims - содержимое токена сброса пароля.
type ResetClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Tokens подписывает и проверяет HS256 токены. Секреты для сессий и для сброса пароля разные.
type Tokens struct {
	loginSecret []byte
	resetSecret []byte
	now         func() time.Time
}

func NewTokens(loginSecret, resetSecret string) *Tokens {
	return &Tokens{
		loginSecret: []byte(loginSecret),
		resetSecret: []byte(resetSecret),
		now:         time.Now,
	}
}

// WithClock подменяет источник времени (для тестов).
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	t.now = now
	return t
}

func (t *Tokens) IssueSession(userID, email, role string) (string, error) {
	issued := t.now()
	claims := SessionClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(SessionTTL)),
		},
	}
	return t.sign(claims, t.loginSecret)
}

func (t *Tokens) ParseSession(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := t.parse(token, claims, t.loginSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no userId claim")
	}
	return claims, nil
}

func (t *Tokens) IssueReset(userID, email string) (string, error) {
	issued := t.now()
	claims := ResetClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ResetTTL)),
		},
	}
	return t.sign(claims, t.resetSecret)
}

func (t *Tokens) VerifyReset(token string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := t.parse(token, claims, t.resetSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *Tokens) sign(claims jwt.Claims, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token secret is not configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) parse(token string, claims jwt.Claims, secret []byte) error {
	if len(secret) == 0 {
		return errors.New("token secret is not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return errors.New("invalid token")
	}
	return nil
}
