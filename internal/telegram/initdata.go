// Package telegram verifies Telegram WebApp launch payloads (initData).
//
// Decode policy: the payload is split on '&' and each pair on its first '='.
// Keys and values are percent-decoded exactly once (query semantics, '+' is a
// space) and the data-check-string is built from the decoded values. Telegram
// signs the decoded values, so decoding is applied once at parse time and
// nowhere else.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMaxAge bounds how long a captured payload can be replayed.
	DefaultMaxAge = 24 * time.Hour

	webAppDataKey = "WebAppData"
	maxClockSkew  = 5 * time.Minute
)

var (
	ErrMissingPayload   = errors.New("telegram: init data is empty")
	ErrMissingSecret    = errors.New("telegram: bot token is not configured")
	ErrMalformedPayload = errors.New("telegram: malformed init data")
	ErrMissingHash      = errors.New("telegram: hash is missing")
	ErrHashMismatch     = errors.New("telegram: hash mismatch")
	ErrStaleAuthDate    = errors.New("telegram: auth_date is too old")
	ErrMalformedUser    = errors.New("telegram: malformed user")
)

// IsStale reports whether err means the payload was authentic but expired,
// so the client should re-launch the WebApp.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleAuthDate)
}

// WebAppUser is the "user" field of initData.
type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// InitData is a verified launch payload.
type InitData struct {
	// Fields holds every decoded field except hash and signature.
	Fields     map[string]string
	User       WebAppUser
	AuthDate   time.Time // zero when auth_date was absent
	StartParam string
}

// Verifier checks initData against one bot token.
type Verifier struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier derives the WebApp secret from botToken. An empty token is a
// configuration error and fails closed.
func NewVerifier(botToken string, maxAge time.Duration) (*Verifier, error) {
	if botToken == "" {
		return nil, ErrMissingSecret
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Verifier{
		key:    secretKey(botToken),
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// Verify authenticates initData and extracts the player identity.
func (v *Verifier) Verify(initData string) (*InitData, error) {
	if initData == "" {
		return nil, ErrMissingPayload
	}
	if v == nil || len(v.key) == 0 {
		return nil, ErrMissingSecret
	}

	fields, err := parseFields(initData)
	if err != nil {
		return nil, err
	}

	received, ok := fields["hash"]
	if !ok || received == "" {
		return nil, ErrMissingHash
	}
	delete(fields, "hash")
	delete(fields, "signature")

	provided, err := hex.DecodeString(received)
	if err != nil {
		return nil, ErrHashMismatch
	}
	if !hmac.Equal(sign(v.key, CheckString(fields)), provided) {
		return nil, ErrHashMismatch
	}

	out := &InitData{Fields: fields, StartParam: fields["start_param"]}

	if raw, ok := fields["auth_date"]; ok {
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: auth_date %q", ErrMalformedPayload, raw)
		}
		authDate := time.Unix(sec, 0)
		now := v.now()
		if now.Sub(authDate) > v.maxAge {
			return nil, ErrStaleAuthDate
		}
		if authDate.Sub(now) > maxClockSkew {
			return nil, fmt.Errorf("%w: auth_date is in the future", ErrMalformedPayload)
		}
		out.AuthDate = authDate
	}

	user, err := decodeUser(fields["user"])
	if err != nil {
		return nil, err
	}
	out.User = *user

	return out, nil
}

// CheckString builds the data-check-string: keys sorted byte-wise,
// "key=value" lines joined by '\n' with no trailing newline.
func CheckString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}

func parseFields(raw string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, val, _ := strings.Cut(pair, "=")

		key, err := url.QueryUnescape(k)
		if err != nil || key == "" {
			return nil, fmt.Errorf("%w: bad key %q", ErrMalformedPayload, k)
		}
		value, err := url.QueryUnescape(val)
		if err != nil {
			return nil, fmt.Errorf("%w: bad value for %q", ErrMalformedPayload, key)
		}
		if _, dup := fields[key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrMalformedPayload, key)
		}
		fields[key] = value
	}
	return fields, nil
}

func decodeUser(raw string) (*WebAppUser, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: user is missing", ErrMalformedUser)
	}
	var u WebAppUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUser, err)
	}
	if u.ID <= 0 {
		return nil, fmt.Errorf("%w: user id is missing", ErrMalformedUser)
	}
	return &u, nil
}

// secretKey is HMAC_SHA256(key="WebAppData", msg=botToken).
func secretKey(botToken string) []byte {
	m := hmac.New(sha256.New, []byte(webAppDataKey))
	m.Write([]byte(botToken))
	return m.Sum(nil)
}

func sign(key []byte, checkString string) []byte {
	m := hmac.New(sha256.New, key)
	m.Write([]byte(checkString))
	return m.Sum(nil)
}
