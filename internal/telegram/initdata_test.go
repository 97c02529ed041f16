package telegram

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
)

const testBotToken = "7000000000:test-bot-token"

var testNow = time.Unix(1_700_000_000, 0)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(testBotToken, DefaultMaxAge)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	v.now = func() time.Time { return testNow }
	return v
}

func validFields(authDate time.Time) map[string]string {
	return map[string]string{
		"auth_date":   strconv.FormatInt(authDate.Unix(), 10),
		"query_id":    "AAHdF6IQAAAAAN0XohDhrOrc",
		"start_param": "ref_42",
		"user": UserJSON(WebAppUser{
			ID:        279058397,
			Username:  "vdkfrost",
			FirstName: "Vladislav",
			LastName:  "Kibenko ✨",
		}),
	}
}

func TestVerify_Valid(t *testing.T) {
	v := newTestVerifier(t)
	initData := Sign(testBotToken, validFields(testNow.Add(-time.Minute)))

	data, err := v.Verify(initData)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if data.User.ID != 279058397 || data.User.Username != "vdkfrost" {
		t.Fatalf("unexpected user: %+v", data.User)
	}
	if data.User.LastName != "Kibenko ✨" {
		t.Fatalf("last name not decoded: %q", data.User.LastName)
	}
	if data.StartParam != "ref_42" {
		t.Fatalf("start_param = %q", data.StartParam)
	}
	if _, ok := data.Fields["hash"]; ok {
		t.Fatalf("hash must not be in verified fields")
	}
	if !data.AuthDate.Equal(testNow.Add(-time.Minute)) {
		t.Fatalf("auth date = %v", data.AuthDate)
	}
}

func TestVerify_HashIsCaseInsensitive(t *testing.T) {
	v := newTestVerifier(t)
	initData := Sign(testBotToken, validFields(testNow))

	idx := strings.LastIndex(initData, "hash=")
	upper := initData[:idx] + "hash=" + strings.ToUpper(initData[idx+len("hash="):])

	if _, err := v.Verify(upper); err != nil {
		t.Fatalf("uppercase hash rejected: %v", err)
	}
}

func TestVerify_SignatureIsNotSigned(t *testing.T) {
	v := newTestVerifier(t)
	initData := Sign(testBotToken, validFields(testNow)) + "&signature=c2lnbmF0dXJl"

	data, err := v.Verify(initData)
	if err != nil {
		t.Fatalf("payload with signature rejected: %v", err)
	}
	if _, ok := data.Fields["signature"]; ok {
		t.Fatalf("signature must be stripped")
	}
}

func TestVerify_SingleByteFlipRejected(t *testing.T) {
	v := newTestVerifier(t)
	initData := Sign(testBotToken, validFields(testNow))
	signed := strings.LastIndex(initData, "&hash=")

	for i := 0; i < signed; i++ {
		b := []byte(initData)
		b[i] ^= 0x01
		if _, err := v.Verify(string(b)); err == nil {
			t.Fatalf("flipping byte %d (%q) was accepted", i, initData[i])
		}
	}
}

func TestVerify_TamperedExtraField(t *testing.T) {
	v := newTestVerifier(t)
	initData := Sign(testBotToken, validFields(testNow)) + "&x=1"

	if _, err := v.Verify(initData); !errors.Is(err, ErrHashMismatch) {
		t.Fatalf("err = %v; want ErrHashMismatch", err)
	}
}

func TestVerify_WrongToken(t *testing.T) {
	v := newTestVerifier(t)
	initData := Sign("other-token", validFields(testNow))

	if _, err := v.Verify(initData); !errors.Is(err, ErrHashMismatch) {
		t.Fatalf("err = %v; want ErrHashMismatch", err)
	}
}

func TestVerify_Stale(t *testing.T) {
	v := newTestVerifier(t)
	initData := Sign(testBotToken, validFields(testNow.Add(-DefaultMaxAge-time.Second)))

	_, err := v.Verify(initData)
	if !IsStale(err) {
		t.Fatalf("err = %v; want stale", err)
	}
}

func TestVerify_WithinWindow(t *testing.T) {
	v := newTestVerifier(t)
	initData := Sign(testBotToken, validFields(testNow.Add(-DefaultMaxAge+time.Second)))

	if _, err := v.Verify(initData); err != nil {
		t.Fatalf("payload inside freshness window rejected: %v", err)
	}
}

func TestVerify_FutureAuthDate(t *testing.T) {
	v := newTestVerifier(t)
	initData := Sign(testBotToken, validFields(testNow.Add(time.Hour)))

	if _, err := v.Verify(initData); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("err = %v; want ErrMalformedPayload", err)
	}
}

func TestVerify_NoAuthDate(t *testing.T) {
	v := newTestVerifier(t)
	fields := validFields(testNow)
	delete(fields, "auth_date")

	data, err := v.Verify(Sign(testBotToken, fields))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !data.AuthDate.IsZero() {
		t.Fatalf("auth date should be zero")
	}
}

func TestVerify_Failures(t *testing.T) {
	v := newTestVerifier(t)

	noUser := validFields(testNow)
	delete(noUser, "user")

	badUser := validFields(testNow)
	badUser["user"] = "{not json"

	zeroID := validFields(testNow)
	zeroID["user"] = `{"username":"ghost"}`

	badDate := validFields(testNow)
	badDate["auth_date"] = "yesterday"

	cases := []struct {
		name     string
		initData string
		want     error
	}{
		{"empty", "", ErrMissingPayload},
		{"no hash", "auth_date=1&user=%7B%7D", ErrMissingHash},
		{"empty hash", "auth_date=1&hash=", ErrMissingHash},
		{"non-hex hash", "auth_date=1&hash=zz", ErrHashMismatch},
		{"bad escape", "user=%ZZ&hash=00", ErrMalformedPayload},
		{"duplicate key", "a=1&a=2&hash=00", ErrMalformedPayload},
		{"missing user", Sign(testBotToken, noUser), ErrMalformedUser},
		{"user not json", Sign(testBotToken, badUser), ErrMalformedUser},
		{"user without id", Sign(testBotToken, zeroID), ErrMalformedUser},
		{"bad auth_date", Sign(testBotToken, badDate), ErrMalformedPayload},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(tc.initData); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v; want %v", err, tc.want)
			}
		})
	}
}

func TestNewVerifier_MissingSecret(t *testing.T) {
	if _, err := NewVerifier("", time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("err = %v; want ErrMissingSecret", err)
	}

	var v *Verifier
	if _, err := v.Verify("a=b"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("nil verifier err = %v; want ErrMissingSecret", err)
	}
}

func TestCheckString(t *testing.T) {
	got := CheckString(map[string]string{
		"user":      `{"id":1}`,
		"auth_date": "100",
		"Zeta":      "z",
	})
	want := "Zeta=z\nauth_date=100\nuser={\"id\":1}"
	if got != want {
		t.Fatalf("check string = %q; want %q", got, want)
	}
}

// Reference vector: the digest must follow HMAC(HMAC("WebAppData", token), dcs).
func TestSecretKeyDerivation(t *testing.T) {
	a := secretKey("token-a")
	b := secretKey("token-b")
	if len(a) != 32 {
		t.Fatalf("derived key length = %d; want 32", len(a))
	}
	if string(a) == string(b) {
		t.Fatalf("different tokens produced the same key")
	}
}

func TestParseUser(t *testing.T) {
	u, err := ParseUser(Sign(testBotToken, validFields(testNow)))
	if err != nil {
		t.Fatalf("parse user: %v", err)
	}
	if u.FirstName != "Vladislav" {
		t.Fatalf("first name = %q", u.FirstName)
	}
}
