// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func Test_getClientOpts(t *testing.T) {
	t.Parallel()
	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		opts := getClientOpts()
		assert.Equal(DefaultUserAgent, opts.withUserAgent)
		assert.NotNil(opts.withNow)
		assert.Nil(opts.withHTTPClient)
		assert.Nil(opts.withLogger)
		assert.Empty(opts.withProviderCA)
	})
	t.Run("overrides", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		logger := hclog.NewNullLogger()
		opts := getClientOpts(
			WithHTTPClient(http.DefaultClient),
			WithProviderCA("pem"),
			WithLogger(logger),
			WithUserAgent("my-app/1.0"),
			WithNow(func() time.Time { return now }),
			nil,
		)
		assert.Same(http.DefaultClient, opts.withHTTPClient)
		assert.Equal("pem", opts.withProviderCA)
		assert.Equal(logger, opts.withLogger)
		assert.Equal("my-app/1.0", opts.withUserAgent)
		assert.Equal(now, opts.withNow())
	})
	t.Run("empty-values-ignored", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		opts := getClientOpts(WithUserAgent(""), WithNow(nil))
		assert.Equal(DefaultUserAgent, opts.withUserAgent)
		assert.NotNil(opts.withNow)
	})
}

func Test_getAuthURLOpts(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal(authURLOptions{}, getAuthURLOpts())

	params := url.Values{"login_hint": {"alice"}}
	opts := getAuthURLOpts(
		WithScopes("openid", "email"),
		WithCodeVerifier("verifier"),
		WithSearchParams(params),
		WithNonce("nonce"),
		WithUILocales(language.French),
		WithPrompt("consent"),
		// not an authorization URL option
		WithTokenTypeHint("refresh_token"),
	)
	assert.Equal(authURLOptions{
		withScopes:       []string{"openid", "email"},
		withCodeVerifier: "verifier",
		withSearchParams: params,
		withNonce:        "nonce",
		withUILocales:    []language.Tag{language.French},
		withPrompt:       "consent",
	}, opts)
}

func Test_getExchangeOpts(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal(exchangeOptions{}, getExchangeOpts())
	assert.Equal(exchangeOptions{withCodeVerifier: "verifier"}, getExchangeOpts(WithCodeVerifier("verifier"), WithNonce("ignored")))
}

func Test_getRevokeOpts(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal(revokeOptions{}, getRevokeOpts())
	assert.Equal(revokeOptions{withTokenTypeHint: "access_token"}, getRevokeOpts(WithTokenTypeHint("access_token"), WithScopes("x")))
}
