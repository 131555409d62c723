// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package clientassertion

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/hashicorp/go-uuid"
)

const (
	// JWTTypeParam is the proper value for client_assertion_type.
	// https://www.rfc-editor.org/rfc/rfc7523.html#section-2.2
	JWTTypeParam = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

	// DefaultExpiresIn is the lifetime of a JWT unless WithExpiresIn is used.
	DefaultExpiresIn = 5 * time.Minute
)

// NewJWTWithRSAKey is NewJWT for an RSA private key, for private_key_jwt
// assertions. Key options in opts are ignored.
func NewJWTWithRSAKey(clientID string, audience []string, alg RSAlgorithm, key *rsa.PrivateKey, opts ...Option) (*JWT, error) {
	const op = "NewJWTWithRSAKey"
	if err := alg.Validate(key); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewJWT(clientID, audience, append([]Option{withKey(key, string(alg))}, opts...)...)
}

// NewJWTWithECDSAKey is NewJWT for an ECDSA private key. The algorithm has
// to match the key's curve.
func NewJWTWithECDSAKey(clientID string, audience []string, alg ESAlgorithm, key *ecdsa.PrivateKey, opts ...Option) (*JWT, error) {
	const op = "NewJWTWithECDSAKey"
	if err := alg.Validate(key); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewJWT(clientID, audience, append([]Option{withKey(key, string(alg))}, opts...)...)
}

// NewJWTWithHMAC is NewJWT for a client secret, for client_secret_jwt
// assertions. See HSAlgorithm.Validate for the minimum secret lengths.
func NewJWTWithHMAC(clientID string, audience []string, alg HSAlgorithm, secret string, opts ...Option) (*JWT, error) {
	const op = "NewJWTWithHMAC"
	if err := alg.Validate(secret); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewJWT(clientID, audience, append([]Option{WithClientSecret(secret, string(alg))}, opts...)...)
}

// NewJWT returns a JWT for clientID addressed to audience. Exactly one of
// WithClientSecret, WithRSAKey, WithECDSAKey or WithSigningKey has to be
// given. Every option error is reported, and the JWT is test signed once
// before it's returned.
func NewJWT(clientID string, audience []string, opts ...Option) (*JWT, error) {
	const op = "NewJWT"
	j := &JWT{
		clientID:  clientID,
		audience:  audience,
		headers:   make(map[string]string),
		expiresIn: DefaultExpiresIn,
		genID:     uuid.GenerateUUID,
		now:       time.Now,
	}

	var errs []error
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(j); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s: %w", op, errors.Join(errs...))
	}
	// Serialize validates first
	if _, err := j.Serialize(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return j, nil
}

// JWT signs client assertions. A JWT is reusable: each Serialize call signs
// a new token.
type JWT struct {
	clientID  string
	issuer    string
	audience  []string
	headers   map[string]string
	expiresIn time.Duration

	alg    jose.SignatureAlgorithm
	key    any // *rsa.PrivateKey or *ecdsa.PrivateKey
	secret string

	genID func() (string, error)
	now   func() time.Time
}

// Serialize returns a newly signed client assertion JWT. Every call produces
// a token with a fresh "jti", "iat" and "exp".
func (j *JWT) Serialize() (string, error) {
	const op = "JWT.Serialize"
	if err := j.validate(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	builder, err := j.builder()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	token, err := builder.Serialize()
	if err != nil {
		return "", fmt.Errorf("%s: failed to serialize token: %w: %w", op, ErrSigning, err)
	}
	return token, nil
}

// validate reports every problem with j. A JWT that wasn't built by NewJWT
// is only checked for its id generator and clock.
func (j *JWT) validate() error {
	const op = "JWT.validate"
	var errs []error
	check := func(failed bool, err error) {
		if failed {
			errs = append(errs, err)
		}
	}
	check(j.genID == nil, ErrMissingFuncIDGenerator)
	check(j.now == nil, ErrMissingFuncNow)
	if len(errs) == 0 {
		check(j.clientID == "", ErrMissingClientID)
		check(len(j.audience) == 0, ErrMissingAudience)
		check(j.alg == "", ErrMissingAlgorithm)
		check(j.key == nil && j.secret == "", ErrMissingKeyOrSecret)
		check(j.key != nil && j.secret != "", ErrBothKeyAndSecret)
		check(j.expiresIn <= 0, ErrInvalidExpiresIn)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", op, errors.Join(errs...))
	}
	return nil
}

func (j *JWT) builder() (jwt.Builder, error) {
	const op = "JWT.builder"
	signer, err := j.signer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	id, err := j.genID()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to generate token id: %w: %w", op, ErrSigning, err)
	}
	return jwt.Signed(signer).Claims(j.claims(id)), nil
}

// signer signs with the secret or the key, validate keeps them exclusive.
func (j *JWT) signer() (jose.Signer, error) {
	const op = "JWT.signer"
	var key any = []byte(j.secret)
	if j.key != nil {
		key = j.key
	}
	opts := (&jose.SignerOptions{}).WithType("JWT")
	for k, v := range j.headers {
		opts = opts.WithHeader(jose.HeaderKey(k), v)
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: j.alg, Key: key}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrCreatingSigner, err)
	}
	return signer, nil
}

func (j *JWT) claims(id string) *jwt.Claims {
	now := j.now().UTC()
	iss := j.clientID
	if j.issuer != "" {
		iss = j.issuer
	}
	return &jwt.Claims{
		Issuer:    iss,
		Subject:   j.clientID,
		Audience:  j.audience,
		Expiry:    jwt.NewNumericDate(now.Add(j.expiresIn)),
		NotBefore: jwt.NewNumericDate(now.Add(-1 * time.Second)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        id,
	}
}

// Serializer is implemented by JWT.
type Serializer interface {
	Serialize() (string, error)
}

var _ Serializer = &JWT{}
