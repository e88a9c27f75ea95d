package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"tpf-ecosystem/internal/config"
	"tpf-ecosystem/pkg/errors"
)

func newSessions(secret string) *SessionService {
	s := NewSessionService(config.AuthConfig{SessionSecret: secret, SessionTTL: time.Hour})
	s.SetClock(func() time.Time { return testNow })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := newSessions("secret")
	token, expires, err := s.Issue(SessionUser{WalletAddress: testUser, Username: "tpf"})
	if err != nil {
		t.Fatal(err)
	}
	if !expires.Equal(testNow.Add(time.Hour)) {
		t.Errorf("expires = %v", expires)
	}

	user, err := s.Parse(token)
	if err != nil {
		t.Fatal(err)
	}
	if user.WalletAddress != testUser || user.Username != "tpf" {
		t.Errorf("user = %+v", user)
	}
}

func TestSessionRejects(t *testing.T) {
	s := newSessions("secret")
	token, _, _ := s.Issue(SessionUser{WalletAddress: testUser})

	expired := newSessions("secret")
	expired.SetClock(func() time.Time { return testNow.Add(2 * time.Hour) })

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"walletAddress": testUser, "iss": sessionIssuer})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		svc   *SessionService
		token string
	}{
		{"empty", s, ""},
		{"garbage", s, "not.a.jwt"},
		{"wrong secret", newSessions("other"), token},
		{"expired", expired, token},
		{"alg none", s, unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.Parse(tt.token); !errors.HasCode(err, errors.ErrUnauthenticated) {
				t.Errorf("error = %v, want unauthenticated", err)
			}
		})
	}
}

func TestSessionRequiresSecret(t *testing.T) {
	s := newSessions("")
	if _, _, err := s.Issue(SessionUser{WalletAddress: testUser}); !errors.HasCode(err, errors.ErrConfiguration) {
		t.Errorf("error = %v, want configuration", err)
	}
}
