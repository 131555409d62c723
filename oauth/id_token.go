// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	sdkhttp "github.com/hashicorp/capoauth/sdk/http"
)

// IDToken is an oidc id_token
type IDToken string

// RedactedIDToken is the redacted string or json for an oidc id_token
const RedactedIDToken = "[REDACTED: id_token]"

// String will redact the token
func (t IDToken) String() string {
	return RedactedIDToken
}

// MarshalJSON will redact the token
func (t IDToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIDToken)
}

// supportedAlgs are the signing algorithms accepted when parsing an
// id_token.
var supportedAlgs = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.EdDSA,
}

// Claims decodes the id_token's claims into claims WITHOUT verifying the
// signature. Use an IDTokenVerifier before trusting them.
func (t IDToken) Claims(claims interface{}) error {
	const op = "IDToken.Claims"
	if len(t) == 0 {
		return fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	parsed, err := jwt.ParseSigned(string(t), supportedAlgs)
	if err != nil {
		return fmt.Errorf("%s: unable to parse id_token: %w: %w", op, ErrProtocol, err)
	}
	if err := parsed.UnsafeClaimsWithoutVerification(claims); err != nil {
		return fmt.Errorf("%s: unable to decode claims: %w: %w", op, ErrProtocol, err)
	}
	return nil
}

// IDTokenVerifier verifies id_tokens issued to one client.
type IDTokenVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewIDTokenVerifier discovers the provider's keys through its Issuer and
// returns a verifier for id_tokens issued to the client. Discovery makes an
// http request. Keys are fetched later with a context detached from ctx's
// cancellation.
func (c *Client) NewIDTokenVerifier(ctx context.Context) (*IDTokenVerifier, error) {
	const op = "Client.NewIDTokenVerifier"
	if !c.md.OIDC {
		return nil, fmt.Errorf("%s: %w", op, ErrNotOIDC)
	}
	if c.md.Issuer == "" {
		return nil, fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	}
	oidcCtx := sdkhttp.ClientContext(context.WithoutCancel(ctx), c.httpClient)
	provider, err := oidc.NewProvider(oidcCtx, c.md.Issuer) // makes http req to issuer for discovery
	if err != nil {
		return nil, fmt.Errorf("%s: unable to discover provider: %w: %w", op, ErrTransport, err)
	}
	algs := make([]string, 0, len(supportedAlgs))
	for _, a := range supportedAlgs {
		algs = append(algs, string(a))
	}
	c.logger.Debug("discovered oidc provider", "op", op, "issuer", c.md.Issuer)
	return &IDTokenVerifier{
		verifier: provider.Verifier(&oidc.Config{
			ClientID:             c.creds.ClientID,
			SupportedSigningAlgs: algs,
			Now:                  c.now,
		}),
	}, nil
}

// Verify checks the id_token's signature, issuer, audience, expiry and, when
// nonce isn't empty, its nonce. On success the claims are decoded into
// claims if it isn't nil.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
func (v *IDTokenVerifier) Verify(ctx context.Context, t IDToken, nonce string, claims interface{}) error {
	const op = "IDTokenVerifier.Verify"
	if t == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingIDToken)
	}
	idt, err := v.verifier.Verify(ctx, string(t))
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrIDTokenVerificationFailed, err)
	}
	if nonce != "" && idt.Nonce != nonce {
		return fmt.Errorf("%s: %w", op, ErrInvalidNonce)
	}
	if claims != nil {
		if err := idt.Claims(claims); err != nil {
			return fmt.Errorf("%s: unable to decode claims: %w: %w", op, ErrProtocol, err)
		}
	}
	return nil
}
