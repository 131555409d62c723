// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	// ErrConfiguration is returned when a required capability or parameter
	// is absent. It is always returned before any request is sent.
	ErrConfiguration = errors.New("configuration error")

	// ErrProtocol is returned when a provider responded with an RFC 6749
	// error body. See OAuth2Error.
	ErrProtocol = errors.New("oauth2 protocol error")

	// ErrTransport is returned for network failures, undecodable bodies and
	// unexpected response statuses.
	ErrTransport = errors.New("transport error")
)

var (
	ErrInvalidParameter       = fmt.Errorf("invalid parameter: %w", ErrConfiguration)
	ErrNilParameter           = fmt.Errorf("nil parameter: %w", ErrConfiguration)
	ErrInvalidCACert          = fmt.Errorf("invalid CA certificate: %w", ErrConfiguration)
	ErrPKCEVerifierRequired   = fmt.Errorf("pkce verifier required: %w", ErrConfiguration)
	ErrUnsupportedChallenge   = fmt.Errorf("unsupported pkce challenge method: %w", ErrConfiguration)
	ErrScopeRequired          = fmt.Errorf("scope required: %w", ErrConfiguration)
	ErrClientSecretRequired   = fmt.Errorf("client secret required: %w", ErrConfiguration)
	ErrSigningKeyRequired     = fmt.Errorf("signing key required: %w", ErrConfiguration)
	ErrRefreshNotSupported    = fmt.Errorf("refresh not supported for this provider: %w", ErrConfiguration)
	ErrRevocationNotSupported = fmt.Errorf("revocation not supported for this provider: %w", ErrConfiguration)
	ErrProfileNotSupported    = fmt.Errorf("profile not supported for this provider: %w", ErrConfiguration)
	ErrNotOIDC                = fmt.Errorf("provider is not an oidc provider: %w", ErrConfiguration)
	ErrUnknownProvider        = fmt.Errorf("unknown provider: %w", ErrConfiguration)
	ErrURLPlaceholder         = fmt.Errorf("unresolved url placeholder: %w", ErrConfiguration)

	ErrMissingIDToken            = fmt.Errorf("id_token is missing: %w", ErrProtocol)
	ErrIDTokenVerificationFailed = fmt.Errorf("id_token verification failed: %w", ErrProtocol)
	ErrInvalidNonce              = fmt.Errorf("invalid nonce: %w", ErrProtocol)
)

// OAuth2Error is an RFC 6749 section 5.2 error returned by a token or
// revocation endpoint.
type OAuth2Error struct {
	// Code is the "error" member, e.g. "invalid_grant".
	Code string

	// Description, URI and State are nil when the provider omitted them.
	Description *string
	URI         *string
	State       *string

	// StatusCode is the HTTP status the error was returned with.
	StatusCode int
}

// Error implements the error interface.
func (e *OAuth2Error) Error() string {
	var b strings.Builder
	b.WriteString("oauth2 error")
	if e.Code != "" {
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	if e.Description != nil && *e.Description != "" {
		b.WriteString(": ")
		b.WriteString(*e.Description)
	}
	return b.String()
}

// Is reports whether target is ErrProtocol.
func (e *OAuth2Error) Is(target error) bool {
	return target == ErrProtocol
}

// UnexpectedResponseError is returned when a token or revocation endpoint
// answered with something that is neither a success nor an RFC 6749 error
// body.
type UnexpectedResponseError struct {
	// Reason is a short description, e.g. "unexpected error body".
	Reason string

	StatusCode int
	Status     string

	// Body is the raw response payload, possibly truncated.
	Body []byte
}

// Error implements the error interface.
func (e *UnexpectedResponseError) Error() string {
	msg := strings.TrimSpace(fmt.Sprintf("%s: status %d %s", e.Reason, e.StatusCode, e.Status))
	if len(e.Body) > 0 {
		msg += ": " + string(e.Body)
	}
	return msg
}

// Is reports whether target is ErrTransport.
func (e *UnexpectedResponseError) Is(target error) bool {
	return target == ErrTransport
}

// ProfileError is returned when a profile request fails.
type ProfileError struct {
	StatusCode int
	Status     string
	URL        string

	// JSON holds the decoded body when it was valid JSON; otherwise Text
	// holds the raw body.
	JSON any
	Text string
}

// Error implements the error interface.
func (e *ProfileError) Error() string {
	msg := strings.TrimSpace(fmt.Sprintf("profile request to %s failed: status %d %s", e.URL, e.StatusCode, e.Status))
	switch {
	case e.JSON != nil:
		if b, err := json.Marshal(e.JSON); err == nil {
			msg += ": " + string(b)
		}
	case e.Text != "":
		msg += ": " + e.Text
	}
	return msg
}

// Is reports whether target is ErrTransport.
func (e *ProfileError) Is(target error) bool {
	return target == ErrTransport
}
