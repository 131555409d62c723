// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// AccessToken is an oauth access_token
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// RefreshToken is an oauth refresh_token
type RefreshToken string

// RedactedRefreshToken is the redacted string or json for an oauth refresh_token
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String will redact the token
func (t RefreshToken) String() string {
	return RedactedRefreshToken
}

// MarshalJSON will redact the token
func (t RefreshToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedRefreshToken)
}

// TokenResponse is a successful token endpoint response. Only the JSON is
// parsed; use IsTokenResponse on Raw to validate its shape.
type TokenResponse struct {
	AccessToken  AccessToken
	TokenType    string
	RefreshToken RefreshToken

	// ExpiresIn is in seconds; zero when the provider omitted it.
	ExpiresIn int64

	Scope   string
	IDToken IDToken

	// Raw is the decoded response body, including provider specific fields.
	Raw map[string]interface{}
}

// Scopes splits Scope on spaces.
func (t *TokenResponse) Scopes() []string {
	return strings.Fields(t.Scope)
}

// Expiry returns the access token expiry for a response received at
// issuedAt, or the zero time if the provider didn't say.
func (t *TokenResponse) Expiry(issuedAt time.Time) time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	return issuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Token converts the response into an *oauth2.Token for use with
// golang.org/x/oauth2 clients. Raw is available through Token.Extra.
func (t *TokenResponse) Token(issuedAt time.Time) *oauth2.Token {
	tk := &oauth2.Token{
		AccessToken:  string(t.AccessToken),
		TokenType:    t.TokenType,
		RefreshToken: string(t.RefreshToken),
		Expiry:       t.Expiry(issuedAt),
	}
	if t.Raw != nil {
		tk = tk.WithExtra(t.Raw)
	}
	return tk
}

var errNotAnObject = errors.New("token response is not a json object")

// decodeTokenResponse parses body without validating its shape beyond it
// being a JSON object.
func decodeTokenResponse(body []byte) (*TokenResponse, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errNotAnObject
	}
	t := &TokenResponse{
		AccessToken:  AccessToken(stringField(raw, "access_token")),
		TokenType:    stringField(raw, "token_type"),
		RefreshToken: RefreshToken(stringField(raw, "refresh_token")),
		Scope:        stringField(raw, "scope"),
		IDToken:      IDToken(stringField(raw, "id_token")),
		Raw:          raw,
	}
	// some providers send expires_in as a string
	switch v := raw["expires_in"].(type) {
	case float64:
		t.ExpiresIn = int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			t.ExpiresIn = n
		}
	}
	return t, nil
}

func stringField(m map[string]interface{}, k string) string {
	s, _ := m[k].(string)
	return s
}

// IsTokenResponse reports whether v has the shape of an RFC 6749 section
// 5.1 access token response: a non-empty access_token and token_type, a
// numeric expires_in if present, and string refresh_token, scope and
// id_token if present.
func IsTokenResponse(v interface{}) bool {
	m, ok := v.(map[string]interface{})
	if !ok {
		return false
	}
	if s, ok := m["access_token"].(string); !ok || s == "" {
		return false
	}
	if s, ok := m["token_type"].(string); !ok || s == "" {
		return false
	}
	if e, present := m["expires_in"]; present {
		if _, ok := e.(float64); !ok {
			return false
		}
	}
	for _, k := range []string{"refresh_token", "scope", "id_token"} {
		if f, present := m[k]; present {
			if _, ok := f.(string); !ok {
				return false
			}
		}
	}
	return true
}
