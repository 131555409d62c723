// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// AuthPlacement is where client credentials or tokens are attached to a
// request.
type AuthPlacement string

const (
	// AuthNone attaches nothing.
	AuthNone AuthPlacement = ""

	// AuthInHeader uses the Authorization header: Basic for client
	// credentials, Bearer for tokens.
	AuthInHeader AuthPlacement = "header"

	// AuthInBody adds the values to the request body.
	AuthInBody AuthPlacement = "body"

	// AuthInQuery adds the values to the request URL's query.
	AuthInQuery AuthPlacement = "query"
)

func (p AuthPlacement) valid() bool {
	switch p {
	case AuthNone, AuthInHeader, AuthInBody, AuthInQuery:
		return true
	}
	return false
}

// Encoding is a request body encoding.
type Encoding string

const (
	// EncodingForm is application/x-www-form-urlencoded. It's the default.
	EncodingForm Encoding = "form"

	// EncodingJSON is application/json.
	EncodingJSON Encoding = "json"
)

func (e Encoding) valid() bool {
	return e == "" || e == EncodingForm || e == EncodingJSON
}

// ClientAssertion selects how a credential signing key is used at the token
// endpoint.
type ClientAssertion string

const (
	// AssertionNone doesn't use the signing key.
	AssertionNone ClientAssertion = ""

	// AssertionJWTBearer sends client_assertion and client_assertion_type
	// in the body (RFC 7523 private_key_jwt).
	AssertionJWTBearer ClientAssertion = "jwt_bearer"

	// AssertionClientSecret signs a short lived JWT and uses it as the
	// client secret.
	AssertionClientSecret ClientAssertion = "client_secret"
)

// URL is either a static URL or a function of the credentials, for
// providers whose endpoints depend on a tenant or domain. The zero value is
// an empty URL.
type URL struct {
	static string
	fn     func(Credentials) (string, error)
}

// StaticURL returns a URL that always resolves to s.
func StaticURL(s string) URL {
	return URL{static: s}
}

// URLFunc returns a URL resolved by calling fn with the call's credentials.
func URLFunc(fn func(Credentials) (string, error)) URL {
	return URL{fn: fn}
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_.-]+)\}`)

// URLTemplate returns a URL whose {name} placeholders are replaced with the
// credentials' Extras[name]. A template without placeholders is a static URL.
func URLTemplate(tmpl string) URL {
	if !placeholderRe.MatchString(tmpl) {
		return StaticURL(tmpl)
	}
	return URLFunc(func(c Credentials) (string, error) {
		var missing []string
		out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
			name := m[1 : len(m)-1]
			v, ok := c.Extras[name]
			if !ok || v == "" {
				missing = append(missing, name)
				return m
			}
			return v
		})
		if len(missing) > 0 {
			return "", fmt.Errorf("%s: %w", strings.Join(missing, ", "), ErrURLPlaceholder)
		}
		return out, nil
	})
}

// IsZero reports whether the URL is unset.
func (u URL) IsZero() bool {
	return u.static == "" && u.fn == nil
}

// Resolve returns the URL for the given credentials.
func (u URL) Resolve(c Credentials) (string, error) {
	const op = "URL.Resolve"
	if u.fn == nil {
		if u.static == "" {
			return "", fmt.Errorf("%s: url is empty: %w", op, ErrInvalidParameter)
		}
		return u.static, nil
	}
	s, err := u.fn(c)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if s == "" {
		return "", fmt.Errorf("%s: url resolved to an empty string: %w", op, ErrInvalidParameter)
	}
	return s, nil
}

// String returns the static URL, or a marker for credential derived URLs.
func (u URL) String() string {
	if u.fn != nil {
		return "[credential derived url]"
	}
	return u.static
}

// TokenEndpoint describes how the token endpoint is called for the code
// exchange and refresh grants.
type TokenEndpoint struct {
	URL URL

	// AuthIn is where client credentials go. AuthInBody and AuthInHeader
	// are the usual values.
	AuthIn AuthPlacement

	Encoding Encoding

	// Params are static fields added to the code exchange body;
	// RefreshParams to the refresh body.
	Params        map[string]string
	RefreshParams map[string]string

	// Assertion selects how Credentials.SigningKey is used, if at all.
	// AssertionAudience defaults to the resolved token URL.
	Assertion         ClientAssertion
	AssertionAudience string
}

// Revocation describes an RFC 7009 style revocation endpoint.
type Revocation struct {
	URL URL

	// TokenIn is where the token being revoked goes. AuthInHeader sends it
	// as a Bearer token.
	TokenIn AuthPlacement

	// CredentialsIn is where client credentials go. With AuthNone they're
	// omitted, except that a body placed token always carries them.
	CredentialsIn AuthPlacement

	Encoding Encoding

	// TokenParamName defaults to "token".
	TokenParamName string

	Params map[string]string
}

func (r *Revocation) tokenParam() string {
	if r.TokenParamName == "" {
		return "token"
	}
	return r.TokenParamName
}

// ProfileRequest describes how to fetch the user's profile.
type ProfileRequest struct {
	URL URL

	// Method is GET or POST. Defaults to GET.
	Method string

	// AuthIn is AuthInHeader (Bearer, the default) or AuthInQuery
	// (access_token parameter).
	AuthIn AuthPlacement

	Params  map[string]string
	Headers HeaderSource

	// Body, when set on a POST, is sent as JSON.
	Body map[string]any
}

// HeaderSource supplies static profile request headers.
type HeaderSource interface {
	// Header returns the headers in canonical form with empty values
	// dropped.
	Header(Credentials) http.Header
}

// HeaderMap is a HeaderSource backed by a plain map.
type HeaderMap map[string]string

// Header implements HeaderSource.
func (m HeaderMap) Header(Credentials) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		if v != "" {
			h.Set(k, v)
		}
	}
	return h
}

// HeaderPairs is a HeaderSource backed by key/value pairs. Later pairs add
// values to earlier ones with the same key.
type HeaderPairs [][2]string

// Header implements HeaderSource.
func (p HeaderPairs) Header(Credentials) http.Header {
	h := make(http.Header, len(p))
	for _, kv := range p {
		if kv[1] != "" {
			h.Add(kv[0], kv[1])
		}
	}
	return h
}

// HTTPHeader is a HeaderSource backed by an http.Header.
type HTTPHeader http.Header

// Header implements HeaderSource.
func (hh HTTPHeader) Header(Credentials) http.Header {
	h := make(http.Header, len(hh))
	for k, vs := range hh {
		for _, v := range vs {
			if v != "" {
				h.Add(k, v)
			}
		}
	}
	return h
}

// HeaderFunc is a HeaderSource computed from the credentials.
type HeaderFunc func(Credentials) HeaderSource

// Header implements HeaderSource.
func (f HeaderFunc) Header(c Credentials) http.Header {
	src := f(c)
	if src == nil {
		return http.Header{}
	}
	return src.Header(c)
}

// Metadata describes one provider's endpoints and quirks. It's supplied by
// the caller and never modified by this package.
type Metadata struct {
	AuthorizationURL URL

	// AuthorizationParams are static parameters added to every
	// authorization URL. Caller supplied parameters override them.
	AuthorizationParams map[string]string

	Token TokenEndpoint

	// Revocation is nil for providers without token revocation.
	Revocation *Revocation

	// Profile is nil for providers without a profile endpoint.
	Profile *ProfileRequest

	PKCE ChallengeMethod

	// OIDC marks OpenID Connect providers. Issuer is used to discover
	// the keys for id_token verification.
	OIDC   bool
	Issuer string

	Refreshable bool

	// ScopeRequired makes an empty scope a configuration error.
	ScopeRequired bool

	// DefaultScopes are used when the caller gives none.
	DefaultScopes []string

	// ScopeSeparator defaults to a single space.
	ScopeSeparator string
}

func (m *Metadata) scopeSeparator() string {
	if m.ScopeSeparator == "" {
		return " "
	}
	return m.ScopeSeparator
}

// Validate checks the metadata is internally consistent. All problems are
// reported together.
func (m *Metadata) Validate() error {
	const op = "Metadata.Validate"
	if m == nil {
		return fmt.Errorf("%s: metadata is nil: %w", op, ErrNilParameter)
	}
	var errs *multierror.Error
	add := func(format string, a ...interface{}) {
		errs = multierror.Append(errs, fmt.Errorf(format+": %w", append(a, ErrInvalidParameter)...))
	}

	if m.AuthorizationURL.IsZero() {
		add("authorization url is empty")
	}
	if m.Token.URL.IsZero() {
		add("token url is empty")
	}
	switch m.PKCE {
	case "", PKCENone, Plain, S256:
	default:
		add("unsupported pkce method %q", m.PKCE)
	}
	if !m.Token.AuthIn.valid() {
		add("unsupported token auth placement %q", m.Token.AuthIn)
	}
	if !m.Token.Encoding.valid() {
		add("unsupported token encoding %q", m.Token.Encoding)
	}
	switch m.Token.Assertion {
	case AssertionNone, AssertionJWTBearer, AssertionClientSecret:
	default:
		add("unsupported client assertion %q", m.Token.Assertion)
	}
	if m.Token.Assertion == AssertionJWTBearer && m.Token.AuthIn == AuthInHeader {
		add("client assertions are sent in the body, not the %q", m.Token.AuthIn)
	}
	if r := m.Revocation; r != nil {
		if r.URL.IsZero() {
			add("revocation url is empty")
		}
		if !r.TokenIn.valid() || r.TokenIn == AuthNone {
			add("unsupported revocation token placement %q", r.TokenIn)
		}
		if !r.CredentialsIn.valid() {
			add("unsupported revocation credentials placement %q", r.CredentialsIn)
		}
		if r.TokenIn == AuthInHeader && r.CredentialsIn == AuthInHeader {
			add("revocation token and credentials can't both use the authorization header")
		}
		if !r.Encoding.valid() {
			add("unsupported revocation encoding %q", r.Encoding)
		}
	}
	if p := m.Profile; p != nil {
		if p.URL.IsZero() {
			add("profile url is empty")
		}
		switch strings.ToUpper(p.Method) {
		case "", http.MethodGet, http.MethodPost:
		default:
			add("unsupported profile method %q", p.Method)
		}
		switch p.AuthIn {
		case AuthNone, AuthInHeader, AuthInQuery:
		default:
			add("unsupported profile auth placement %q", p.AuthIn)
		}
	}
	if m.OIDC && m.Issuer != "" {
		if u, err := url.Parse(m.Issuer); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
			add("issuer %q is not an http or https url", m.Issuer)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
