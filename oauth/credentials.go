// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/hashicorp/go-multierror"
)

// ClientSecret is an oauth client secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// ClientAuth is how the client authenticates: a PublicClient has no secret,
// a ConfidentialClient has one.
type ClientAuth interface {
	clientAuth()
}

// PublicClient is a client without a secret.
type PublicClient struct{}

// ConfidentialClient is a client with a secret.
type ConfidentialClient struct {
	Secret ClientSecret
}

func (PublicClient) clientAuth()       {}
func (ConfidentialClient) clientAuth() {}

// SigningKey is a provider specific key used to sign client assertions or
// JWT client secrets.
type SigningKey struct {
	// Key is a *rsa.PrivateKey, *ecdsa.PrivateKey or an HMAC secret
	// ([]byte).
	Key interface{}

	// Alg is the JOSE algorithm, e.g. "ES256".
	Alg string

	// KeyID is sent as the "kid" header when set.
	KeyID string

	// Issuer overrides the "iss" claim, which defaults to the client id.
	Issuer string
}

// Credentials identify the client to one provider.
type Credentials struct {
	ClientID string

	// Client defaults to PublicClient when nil.
	Client ClientAuth

	// RedirectURI is optional for providers that have it registered.
	RedirectURI string

	// Extras holds provider specific values such as a tenant or domain.
	// URLTemplate placeholders are resolved from it.
	Extras map[string]string

	SigningKey *SigningKey
}

// NewCredentials composes credentials for a client.
// Supported options:
//   - WithClientSecret
//   - WithExtras
//   - WithSigningKey
func NewCredentials(clientID, redirectURI string, opt ...Option) (*Credentials, error) {
	const op = "oauth.NewCredentials"
	opts := getCredentialsOpts(opt...)
	c := &Credentials{
		ClientID:    clientID,
		Client:      PublicClient{},
		RedirectURI: redirectURI,
		Extras:      opts.withExtras,
		SigningKey:  opts.withSigningKey,
	}
	if opts.withClientSecret != "" {
		c.Client = ConfidentialClient{Secret: opts.withClientSecret}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid credentials: %w", op, err)
	}
	return c, nil
}

// Validate the credentials.
func (c *Credentials) Validate() error {
	const op = "Credentials.Validate"
	if c == nil {
		return fmt.Errorf("%s: credentials are nil: %w", op, ErrNilParameter)
	}
	var errs *multierror.Error
	if c.ClientID == "" {
		errs = multierror.Append(errs, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if cc, ok := c.Client.(ConfidentialClient); ok && cc.Secret == "" {
		errs = multierror.Append(errs, fmt.Errorf("confidential client secret is empty: %w", ErrInvalidParameter))
	}
	if c.RedirectURI != "" {
		if u, err := url.Parse(c.RedirectURI); err != nil || !u.IsAbs() {
			errs = multierror.Append(errs, fmt.Errorf("redirect uri %q is not an absolute url: %w", c.RedirectURI, ErrInvalidParameter))
		}
	}
	if k := c.SigningKey; k != nil && (k.Key == nil || k.Alg == "") {
		errs = multierror.Append(errs, fmt.Errorf("signing key requires a key and an algorithm: %w", ErrInvalidParameter))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// secret returns the client secret, if the client is confidential.
func (c Credentials) secret() (ClientSecret, bool) {
	if cc, ok := c.Client.(ConfidentialClient); ok && cc.Secret != "" {
		return cc.Secret, true
	}
	return "", false
}

// credentialsOptions is the set of available options for NewCredentials
type credentialsOptions struct {
	withClientSecret ClientSecret
	withExtras       map[string]string
	withSigningKey   *SigningKey
}

func credentialsDefaults() credentialsOptions {
	return credentialsOptions{}
}

func getCredentialsOpts(opt ...Option) credentialsOptions {
	opts := credentialsDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithClientSecret makes the credentials a ConfidentialClient.
func WithClientSecret(secret ClientSecret) Option {
	return func(o interface{}) {
		if o, ok := o.(*credentialsOptions); ok {
			o.withClientSecret = secret
		}
	}
}

// WithExtras provides provider specific credential values.
func WithExtras(extras map[string]string) Option {
	return func(o interface{}) {
		if o, ok := o.(*credentialsOptions); ok {
			o.withExtras = extras
		}
	}
}

// WithSigningKey provides a key for client assertions or JWT client secrets.
func WithSigningKey(k *SigningKey) Option {
	return func(o interface{}) {
		if o, ok := o.(*credentialsOptions); ok {
			o.withSigningKey = k
		}
	}
}
