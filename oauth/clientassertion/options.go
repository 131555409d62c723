// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package clientassertion

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
)

// Option configures the JWT
type Option func(*JWT) error

// WithClientSecret sets a secret and algorithm to sign the JWT with
func WithClientSecret(secret string, alg string) Option {
	const op = "WithClientSecret"
	return func(j *JWT) error {
		if err := HSAlgorithm(alg).Validate(secret); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		j.secret = secret
		j.alg = jose.SignatureAlgorithm(alg)
		return nil
	}
}

// WithRSAKey sets a private key to sign the JWT with
func WithRSAKey(key *rsa.PrivateKey, alg string) Option {
	const op = "WithRSAKey"
	return func(j *JWT) error {
		if err := RSAlgorithm(alg).Validate(key); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		j.key = key
		j.alg = jose.SignatureAlgorithm(alg)
		return nil
	}
}

// WithECDSAKey sets an ECDSA private key to sign the JWT with
func WithECDSAKey(key *ecdsa.PrivateKey, alg string) Option {
	const op = "WithECDSAKey"
	return func(j *JWT) error {
		if err := ESAlgorithm(alg).Validate(key); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		j.key = key
		j.alg = jose.SignatureAlgorithm(alg)
		return nil
	}
}

// WithSigningKey picks WithRSAKey, WithECDSAKey or WithClientSecret based
// on the key's type. A []byte or string key is an HMAC secret.
func WithSigningKey(key any, alg string) Option {
	const op = "WithSigningKey"
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return WithRSAKey(k, alg)
	case *ecdsa.PrivateKey:
		return WithECDSAKey(k, alg)
	case []byte:
		return WithClientSecret(string(k), alg)
	case string:
		return WithClientSecret(k, alg)
	default:
		return func(*JWT) error {
			return fmt.Errorf("%s: %w %T", op, ErrUnsupportedKeyType, key)
		}
	}
}

// withKey sets an already validated key
func withKey(key any, alg string) Option {
	return func(j *JWT) error {
		j.key = key
		j.alg = jose.SignatureAlgorithm(alg)
		return nil
	}
}

// WithKeyID sets the "kid" header that OIDC providers use to look up the
// public key to check the signed JWT
func WithKeyID(keyID string) Option {
	return func(j *JWT) error {
		if keyID != "" {
			j.headers["kid"] = keyID
		}
		return nil
	}
}

// WithHeaders sets extra JWT headers
func WithHeaders(h map[string]string) Option {
	return func(j *JWT) error {
		for k, v := range h {
			j.headers[k] = v
		}
		return nil
	}
}

// WithIssuer overrides the "iss" claim, which defaults to the client id.
// Some providers expect a team or account id here.
func WithIssuer(iss string) Option {
	return func(j *JWT) error {
		j.issuer = iss
		return nil
	}
}

// WithExpiresIn sets how long a serialized JWT is valid for.
func WithExpiresIn(d time.Duration) Option {
	return func(j *JWT) error {
		j.expiresIn = d
		return nil
	}
}
