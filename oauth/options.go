// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/language"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// authURLOptions is the set of available options for
// Client.CreateAuthorizationURL
type authURLOptions struct {
	withScopes       []string
	withCodeVerifier string
	withSearchParams url.Values
	withNonce        string
	withUILocales    []language.Tag
	withPrompt       string
}

func authURLDefaults() authURLOptions {
	return authURLOptions{}
}

func getAuthURLOpts(opt ...Option) authURLOptions {
	opts := authURLDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// exchangeOptions is the set of available options for
// Client.ValidateAuthorizationCode
type exchangeOptions struct {
	withCodeVerifier string
}

func exchangeDefaults() exchangeOptions {
	return exchangeOptions{}
}

func getExchangeOpts(opt ...Option) exchangeOptions {
	opts := exchangeDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// revokeOptions is the set of available options for Client.RevokeToken
type revokeOptions struct {
	withTokenTypeHint string
}

func revokeDefaults() revokeOptions {
	return revokeOptions{}
}

func getRevokeOpts(opt ...Option) revokeOptions {
	opts := revokeDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides the scopes to request. When none are given the
// provider's default scopes are used.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithCodeVerifier provides the PKCE code_verifier for: authorization URLs
// and code exchanges. It's required when the provider uses PKCE and ignored
// otherwise.
func WithCodeVerifier(verifier string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *authURLOptions:
			v.withCodeVerifier = verifier
		case *exchangeOptions:
			v.withCodeVerifier = verifier
		}
	}
}

// WithSearchParams provides extra authorization URL parameters. They're
// applied last, so they override the provider's static parameters.
func WithSearchParams(params url.Values) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withSearchParams = params
		}
	}
}

// WithNonce provides an OIDC nonce for the authorization URL.
func WithNonce(nonce string) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withNonce = nonce
		}
	}
}

// WithUILocales provides the OIDC ui_locales, in order of preference.
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withUILocales = locales
		}
	}
}

// WithPrompt provides the OIDC prompt parameter, e.g. "consent".
func WithPrompt(prompt string) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withPrompt = prompt
		}
	}
}

// WithTokenTypeHint provides the RFC 7009 token_type_hint for a revocation,
// e.g. "refresh_token".
func WithTokenTypeHint(hint string) Option {
	return func(o interface{}) {
		if o, ok := o.(*revokeOptions); ok {
			o.withTokenTypeHint = hint
		}
	}
}

// clientOptions is the set of available options for NewClient
type clientOptions struct {
	withHTTPClient *http.Client
	withProviderCA string
	withLogger     hclog.Logger
	withUserAgent  string
	withNow        func() time.Time
}

func clientDefaults() clientOptions {
	return clientOptions{
		withUserAgent: DefaultUserAgent,
		withNow:       time.Now,
	}
}

func getClientOpts(opt ...Option) clientOptions {
	opts := clientDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithHTTPClient provides the http client used for every request. It can't
// be combined with WithProviderCA.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withHTTPClient = c
		}
	}
}

// WithProviderCA provides a PEM encoded CA certificate to trust instead of
// the system's CA chain.
func WithProviderCA(caPEM string) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withProviderCA = caPEM
		}
	}
}

// WithLogger provides a logger. Secrets and tokens are never logged.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withLogger = l
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok && ua != "" {
			o.withUserAgent = ua
		}
	}
}

// WithNow provides a time source, used for token expiry and id_token
// verification.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok && now != nil {
			o.withNow = now
		}
	}
}
