// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package clientassertion

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
)

type (
	// HSAlgorithm is an HMAC signature algorithm, used for client_secret_jwt
	// assertions signed with the client secret.
	HSAlgorithm string
	// RSAlgorithm is an RSA signature algorithm
	RSAlgorithm string
	// ESAlgorithm is an ECDSA signature algorithm
	ESAlgorithm string
)

// JOSE signing algorithms (RFC 7518 section 3.1) usable for assertions.
const (
	HS256 HSAlgorithm = "HS256"
	HS384 HSAlgorithm = "HS384"
	HS512 HSAlgorithm = "HS512"
	RS256 RSAlgorithm = "RS256"
	RS384 RSAlgorithm = "RS384"
	RS512 RSAlgorithm = "RS512"
	ES256 ESAlgorithm = "ES256"
	ES384 ESAlgorithm = "ES384"
	ES512 ESAlgorithm = "ES512"
)

// minSecretLen is the shortest secret accepted per algorithm: the size of
// the hash output.
var minSecretLen = map[HSAlgorithm]int{
	HS256: 32,
	HS384: 48,
	HS512: 64,
}

var curves = map[ESAlgorithm]elliptic.Curve{
	ES256: elliptic.P256(),
	ES384: elliptic.P384(),
	ES512: elliptic.P521(),
}

// Validate checks that a is supported and that secret is at least as long
// as the algorithm's hash output.
func (a HSAlgorithm) Validate(secret string) error {
	const op = "HSAlgorithm.Validate"
	n, ok := minSecretLen[a]
	switch {
	case !ok:
		return fmt.Errorf("%s: %w %q for client secret", op, ErrUnsupportedAlgorithm, a)
	case secret == "":
		return fmt.Errorf("%s: %w: secret is empty", op, ErrInvalidSecretLength)
	case len(secret) < n:
		return fmt.Errorf("%s: %w: %s needs at least %d bytes", op, ErrInvalidSecretLength, a, n)
	}
	return nil
}

// Validate checks that a is supported and that key passes
// rsa.PrivateKey.Validate.
func (a RSAlgorithm) Validate(key *rsa.PrivateKey) error {
	const op = "RSAlgorithm.Validate"
	switch {
	case key == nil:
		return fmt.Errorf("%s: %w", op, ErrNilPrivateKey)
	case a != RS256 && a != RS384 && a != RS512:
		return fmt.Errorf("%s: %w %q for RSA key", op, ErrUnsupportedAlgorithm, a)
	}
	if err := key.Validate(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidAssertion, err)
	}
	return nil
}

// Validate checks that a is supported and matches the key's curve.
func (a ESAlgorithm) Validate(key *ecdsa.PrivateKey) error {
	const op = "ESAlgorithm.Validate"
	if key == nil || key.Curve == nil {
		return fmt.Errorf("%s: %w", op, ErrNilPrivateKey)
	}
	want, ok := curves[a]
	if !ok {
		return fmt.Errorf("%s: %w %q for ECDSA key", op, ErrUnsupportedAlgorithm, a)
	}
	if got := key.Curve.Params().Name; got != want.Params().Name {
		return fmt.Errorf("%s: %w %q for curve %s", op, ErrUnsupportedAlgorithm, a, got)
	}
	return nil
}
