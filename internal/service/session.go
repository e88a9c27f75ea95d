package service

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"tpf-ecosystem/internal/config"
	"tpf-ecosystem/pkg/errors"
)

const sessionIssuer = "tpf-ecosystem"

type SessionUser struct {
	WalletAddress string `json:"walletAddress"`
	Username      string `json:"username,omitempty"`
}

type sessionClaims struct {
	SessionUser
	jwt.RegisteredClaims
}

// SessionService 签发和解析 HS256 会话令牌
type SessionService struct {
	secret []byte
	ttl    time.Duration
	now    Clock
}

func NewSessionService(cfg config.AuthConfig) *SessionService {
	return &SessionService{secret: []byte(cfg.SessionSecret), ttl: cfg.SessionTTL, now: time.Now}
}

func (s *SessionService) SetClock(now Clock) {
	s.now = now
}

func (s *SessionService) Issue(user SessionUser) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.Configuration("SESSION_SECRET is not configured")
	}
	if strings.TrimSpace(user.WalletAddress) == "" {
		return "", time.Time{}, errors.Validation("walletAddress is required")
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := sessionClaims{
		SessionUser: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   strings.ToLower(user.WalletAddress),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, errors.New(errors.ErrConfiguration, "failed to sign session", err)
	}
	return token, expires, nil
}

// Parse 令牌无效或过期时返回 UNAUTHENTICATED
func (s *SessionService) Parse(token string) (*SessionUser, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New(errors.ErrUnauthenticated, "no session", nil)
	}
	if len(s.secret) == 0 {
		return nil, errors.Configuration("SESSION_SECRET is not configured")
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.New(errors.ErrUnauthenticated, "invalid session", err)
	}
	return &claims.SessionUser, nil
}
