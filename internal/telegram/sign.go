package telegram

import (
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
)

// Sign produces a launch payload for fields the way the Telegram client
// does: values are query-escaped and hash is appended last. Used by tests and
// the create_test_user tool.
func Sign(botToken string, fields map[string]string) string {
	hash := hex.EncodeToString(sign(secretKey(botToken), CheckString(fields)))

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(fields[k]))
	}
	parts = append(parts, "hash="+hash)
	return strings.Join(parts, "&")
}

// UserJSON encodes u as the "user" field value.
func UserJSON(u WebAppUser) string {
	b, _ := json.Marshal(u)
	return string(b)
}

// ParseUser extracts the user without verifying the payload. Only for
// diagnostics; never use it to establish identity.
func ParseUser(initData string) (*WebAppUser, error) {
	fields, err := parseFields(initData)
	if err != nil {
		return nil, err
	}
	return decodeUser(fields["user"])
}
