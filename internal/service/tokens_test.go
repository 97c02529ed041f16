package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenService_RoundTrip(t *testing.T) {
	s, err := NewTokenService("secret", 0)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}

	token, err := s.Issue(279058397)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := s.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != 279058397 {
		t.Fatalf("player id = %d", id)
	}
}

func TestTokenService_NoExpiryByDefault(t *testing.T) {
	s, _ := NewTokenService("secret", 0)
	issued := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return issued }

	token, err := s.Issue(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	s.now = func() time.Time { return issued.Add(365 * 24 * time.Hour) }
	if _, err := s.Parse(token); err != nil {
		t.Fatalf("token without ttl rejected a year later: %v", err)
	}
}

func TestTokenService_Expiry(t *testing.T) {
	s, _ := NewTokenService("secret", time.Minute)
	issued := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return issued }

	token, _ := s.Issue(1)

	s.now = func() time.Time { return issued.Add(30 * time.Second) }
	if _, err := s.Parse(token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := s.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v; want ErrInvalidToken", err)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	s, _ := NewTokenService("secret", 0)
	other, _ := NewTokenService("rotated", 0)

	foreign, _ := other.Issue(1)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("secret"))
	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "abc"}).SignedString([]byte("secret"))

	valid, _ := s.Issue(1)
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	cases := map[string]string{
		"empty":           "",
		"garbage":         "not-a-token",
		"rotated secret":  foreign,
		"alg none":        none,
		"missing subject": noSubject,
		"bad subject":     badSubject,
		"tampered":        tampered,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Parse(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v; want ErrInvalidToken", err)
			}
		})
	}
}

func TestNewTokenService_MissingSecret(t *testing.T) {
	if _, err := NewTokenService("", 0); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("err = %v; want ErrMissingSecret", err)
	}
}
