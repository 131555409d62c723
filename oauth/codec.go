// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// DefaultRandomTokenLen is the number of random bytes used by RandomToken
// when no length is given. 32 bytes encode to a 43 character token, which
// is the minimum length of a PKCE code_verifier (RFC 7636 section 4.1).
const DefaultRandomTokenLen = 32

// ChallengeMethod is a PKCE code_challenge_method.
type ChallengeMethod string

const (
	// PKCENone disables PKCE.
	PKCENone ChallengeMethod = "none"

	// Plain sends the verifier unchanged as the challenge.
	Plain ChallengeMethod = "plain"

	// S256 sends the SHA-256 of the verifier as the challenge.
	S256 ChallengeMethod = "S256"
)

// Enabled returns false for PKCENone and the zero value.
func (m ChallengeMethod) Enabled() bool {
	return m != "" && m != PKCENone
}

// RandomToken returns byteLen bytes from a CSPRNG, encoded as URL safe
// base64 without padding. byteLen defaults to DefaultRandomTokenLen. It is
// suitable for both a CSRF state and a PKCE code_verifier.
func RandomToken(byteLen ...int) (string, error) {
	n := DefaultRandomTokenLen
	if len(byteLen) > 0 {
		n = byteLen[0]
	}
	return randomToken(rand.Reader, n)
}

func randomToken(r io.Reader, n int) (string, error) {
	const op = "oauth.RandomToken"
	if n <= 0 {
		return "", fmt.Errorf("%s: length %d is not greater than zero: %w", op, n, ErrInvalidParameter)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("%s: unable to read random bytes: %w: %w", op, ErrConfiguration, err)
	}
	return Base64URLEncode(b), nil
}

// MustRandomToken is like RandomToken but panics when the system has no
// usable CSPRNG.
func MustRandomToken(byteLen ...int) string {
	t, err := RandomToken(byteLen...)
	if err != nil {
		panic(err)
	}
	return t
}

// NewState returns a new random CSRF state value.
func NewState() (string, error) {
	return RandomToken()
}

// NewCodeVerifier returns a new random PKCE code_verifier.
func NewCodeVerifier() (string, error) {
	return RandomToken()
}

// DeriveS256Challenge returns BASE64URL(SHA256(verifier)) without padding.
func DeriveS256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return Base64URLEncode(sum[:])
}

// CreateCodeChallenge derives the code_challenge for verifier using method.
func CreateCodeChallenge(method ChallengeMethod, verifier string) (string, error) {
	const op = "oauth.CreateCodeChallenge"
	if verifier == "" {
		return "", fmt.Errorf("%s: verifier is empty: %w", op, ErrPKCEVerifierRequired)
	}
	switch method {
	case S256:
		return DeriveS256Challenge(verifier), nil
	case Plain:
		return verifier, nil
	default:
		return "", fmt.Errorf("%s: %q: %w", op, method, ErrUnsupportedChallenge)
	}
}

// Base64URLEncode encodes b as URL safe base64 without padding.
func Base64URLEncode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Base64URLDecode decodes URL safe base64. Missing padding is tolerated.
func Base64URLDecode(s string) ([]byte, error) {
	const op = "oauth.Base64URLDecode"
	s = strings.TrimRight(s, "=")
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidParameter, err)
	}
	return b, nil
}

// BasicAuthValue returns base64("id:secret") as used in an HTTP Basic
// Authorization header.
func BasicAuthValue(id, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(id + ":" + secret))
}

// BasicAuthHeader returns the full "Basic ..." Authorization header value.
func BasicAuthHeader(id, secret string) string {
	return "Basic " + BasicAuthValue(id, secret)
}
