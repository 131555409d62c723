// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/capoauth/oauth/clientassertion"
	"github.com/hashicorp/capoauth/oauth/internal/strutils"
	sdkhttp "github.com/hashicorp/capoauth/sdk/http"
	"github.com/hashicorp/go-hclog"
)

// Client drives the authorization code flow, token refresh, token revocation
// and profile requests for one provider and one set of credentials.
//
// A Client holds no per request state and is safe for concurrent use. Every
// call derives its request from the Metadata, the Credentials and the call's
// arguments alone.
type Client struct {
	md         *Metadata
	creds      Credentials
	httpClient *http.Client
	logger     hclog.Logger
	userAgent  string
	now        func() time.Time
}

// NewClient creates a Client. The metadata must not be modified afterwards.
//
// Supported options:
//   - WithHTTPClient
//   - WithProviderCA
//   - WithLogger
//   - WithUserAgent
//   - WithNow
func NewClient(md *Metadata, creds *Credentials, opt ...Option) (*Client, error) {
	const op = "oauth.NewClient"
	if err := md.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid metadata: %w", op, err)
	}
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid credentials: %w", op, err)
	}
	if md.Token.Assertion != AssertionNone && creds.SigningKey == nil {
		return nil, fmt.Errorf("%s: %s client assertion: %w", op, md.Token.Assertion, ErrSigningKeyRequired)
	}

	opts := getClientOpts(opt...)
	if opts.withHTTPClient != nil && opts.withProviderCA != "" {
		return nil, fmt.Errorf("%s: http client and provider CA are mutually exclusive: %w", op, ErrInvalidParameter)
	}
	httpClient := opts.withHTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = sdkhttp.NewClient(opts.withProviderCA)
		if err != nil {
			if errors.Is(err, sdkhttp.ErrInvalidCertificatePem) {
				return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidCACert, err)
			}
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}
	logger := opts.withLogger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	c := &Client{
		md:         md,
		creds:      *creds,
		httpClient: httpClient,
		logger:     logger,
		userAgent:  opts.withUserAgent,
		now:        opts.withNow,
	}
	if c.creds.Client == nil {
		c.creds.Client = PublicClient{}
	}
	return c, nil
}

// Metadata returns the provider metadata the client was created with.
func (c *Client) Metadata() *Metadata {
	return c.md
}

// CreateAuthorizationURL returns the URL to redirect the user to. It does no
// I/O. The caller is responsible for persisting state (and the code verifier
// when the provider uses PKCE) until the callback.
//
// Supported options:
//   - WithScopes
//   - WithCodeVerifier (required when the provider uses PKCE)
//   - WithSearchParams
//   - WithNonce (oidc providers)
//   - WithUILocales (oidc providers)
//   - WithPrompt
func (c *Client) CreateAuthorizationURL(state string, opt ...Option) (*url.URL, error) {
	const op = "Client.CreateAuthorizationURL"
	if state == "" {
		return nil, fmt.Errorf("%s: state is empty: %w", op, ErrInvalidParameter)
	}
	opts := getAuthURLOpts(opt...)

	raw, err := c.md.AuthorizationURL.Resolve(c.creds)
	if err != nil {
		return nil, fmt.Errorf("%s: authorization url: %w", op, err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: authorization url is invalid: %w: %w", op, ErrInvalidParameter, err)
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.creds.ClientID)
	if c.creds.RedirectURI != "" {
		q.Set("redirect_uri", c.creds.RedirectURI)
	}
	q.Set("state", state)

	scopes := opts.withScopes
	if len(scopes) == 0 {
		scopes = c.md.DefaultScopes
	}
	scopes = strutils.RemoveDuplicatesStable(scopes, false)
	switch {
	case len(scopes) > 0:
		q.Set("scope", strings.Join(scopes, c.md.scopeSeparator()))
	case c.md.ScopeRequired:
		return nil, fmt.Errorf("%s: %w", op, ErrScopeRequired)
	}

	if c.md.PKCE.Enabled() {
		if opts.withCodeVerifier == "" {
			return nil, fmt.Errorf("%s: %w", op, ErrPKCEVerifierRequired)
		}
		challenge, err := CreateCodeChallenge(c.md.PKCE, opts.withCodeVerifier)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		q.Set("code_challenge_method", string(c.md.PKCE))
		q.Set("code_challenge", challenge)
	}

	if c.md.OIDC {
		if opts.withNonce != "" {
			q.Set("nonce", opts.withNonce)
		}
		if len(opts.withUILocales) > 0 {
			locales := make([]string, 0, len(opts.withUILocales))
			for _, l := range opts.withUILocales {
				locales = append(locales, l.String())
			}
			q.Set("ui_locales", strings.Join(locales, " "))
		}
	}
	if opts.withPrompt != "" {
		q.Set("prompt", opts.withPrompt)
	}

	mergeParams(q, c.md.AuthorizationParams)
	for k, vs := range opts.withSearchParams {
		q[k] = append([]string(nil), vs...)
	}
	u.RawQuery = q.Encode()
	return u, nil
}

// ValidateAuthorizationCode exchanges an authorization code for tokens. The
// response is returned as decoded; use IsTokenResponse on its Raw field to
// check its shape.
//
// Supported options:
//   - WithCodeVerifier (required when the provider uses PKCE)
func (c *Client) ValidateAuthorizationCode(ctx context.Context, code string, opt ...Option) (*TokenResponse, error) {
	const op = "Client.ValidateAuthorizationCode"
	if code == "" {
		return nil, fmt.Errorf("%s: code is empty: %w", op, ErrInvalidParameter)
	}
	opts := getExchangeOpts(opt...)
	if c.md.PKCE.Enabled() && opts.withCodeVerifier == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrPKCEVerifierRequired)
	}

	body := url.Values{}
	mergeParams(body, c.md.Token.Params)
	body.Set("grant_type", "authorization_code")
	body.Set("code", code)
	if c.creds.RedirectURI != "" {
		body.Set("redirect_uri", c.creds.RedirectURI)
	}
	if c.md.PKCE.Enabled() {
		body.Set("code_verifier", opts.withCodeVerifier)
	}

	tk, err := c.tokenRequest(ctx, op, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tk, nil
}

// RefreshAccessToken uses a refresh token to get a new access token. It
// returns ErrRefreshNotSupported, without any I/O, when the provider doesn't
// support the refresh grant.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken RefreshToken) (*TokenResponse, error) {
	const op = "Client.RefreshAccessToken"
	if !c.md.Refreshable {
		return nil, fmt.Errorf("%s: %w", op, ErrRefreshNotSupported)
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("%s: refresh token is empty: %w", op, ErrInvalidParameter)
	}

	body := url.Values{}
	mergeParams(body, c.md.Token.RefreshParams)
	body.Set("grant_type", "refresh_token")
	body.Set("refresh_token", string(refreshToken))

	tk, err := c.tokenRequest(ctx, op, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tk, nil
}

// RevokeToken revokes an access or refresh token. Where the token and the
// client credentials go is decided by the provider's Revocation metadata.
//
// Supported options:
//   - WithTokenTypeHint
func (c *Client) RevokeToken(ctx context.Context, token string, opt ...Option) error {
	const op = "Client.RevokeToken"
	r := c.md.Revocation
	if r == nil {
		return fmt.Errorf("%s: %w", op, ErrRevocationNotSupported)
	}
	if token == "" {
		return fmt.Errorf("%s: token is empty: %w", op, ErrInvalidParameter)
	}
	opts := getRevokeOpts(opt...)

	raw, err := r.URL.Resolve(c.creds)
	if err != nil {
		return fmt.Errorf("%s: revocation url: %w", op, err)
	}

	body := url.Values{}
	mergeParams(body, r.Params)
	if opts.withTokenTypeHint != "" {
		body.Set("token_type_hint", opts.withTokenTypeHint)
	}

	d := requestDescriptor{
		url:      raw,
		body:     body,
		authIn:   r.CredentialsIn,
		encoding: r.Encoding,
		clientID: c.creds.ClientID,
		client:   c.creds.Client,
	}
	switch r.TokenIn {
	case AuthInHeader:
		d.headers = http.Header{"Authorization": []string{"Bearer " + token}}
	case AuthInQuery:
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: revocation url is invalid: %w: %w", op, ErrInvalidParameter, err)
		}
		q := u.Query()
		q.Set(r.tokenParam(), token)
		u.RawQuery = q.Encode()
		d.url = u.String()
	default:
		body.Set(r.tokenParam(), token)
		if d.authIn == AuthNone {
			d.authIn = AuthInBody
		}
	}

	req, err := newRequest(ctx, d, c.userAgent)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.send(op, req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer drainBody(resp)
	if isSuccess(resp.StatusCode) {
		return nil
	}
	respBody, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("%s: unable to read response: %w: %w", op, ErrTransport, err)
	}
	return fmt.Errorf("%s: %w", op, tokenEndpointError(resp, respBody))
}

// FetchUserProfile requests the user's profile with an access token. The
// decoded JSON is returned as is; its shape is provider specific.
func (c *Client) FetchUserProfile(ctx context.Context, accessToken string) (any, error) {
	const op = "Client.FetchUserProfile"
	p := c.md.Profile
	if p == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrProfileNotSupported)
	}
	if accessToken == "" {
		return nil, fmt.Errorf("%s: access token is empty: %w", op, ErrInvalidParameter)
	}

	raw, err := p.URL.Resolve(c.creds)
	if err != nil {
		return nil, fmt.Errorf("%s: profile url: %w", op, err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: profile url is invalid: %w: %w", op, ErrInvalidParameter, err)
	}
	q := u.Query()
	mergeParams(q, p.Params)
	if p.AuthIn == AuthInQuery {
		q.Set("access_token", accessToken)
	}
	u.RawQuery = q.Encode()

	method := strings.ToUpper(p.Method)
	if method == "" {
		method = http.MethodGet
	}
	var reqBody []byte
	if method == http.MethodPost && p.Body != nil {
		if reqBody, err = json.Marshal(p.Body); err != nil {
			return nil, fmt.Errorf("%s: unable to encode profile body: %w: %w", op, ErrInvalidParameter, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w: %w", op, ErrInvalidParameter, err)
	}
	if p.Headers != nil {
		for k, vs := range p.Headers.Header(c.creds) {
			req.Header[k] = vs
		}
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", contentTypeJSON)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if p.AuthIn != AuthInQuery {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.send(op, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer drainBody(resp)
	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response: %w: %w", op, ErrTransport, err)
	}
	if !isSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("%s: %w", op, profileError(resp, redactURL(req.URL), body))
	}
	var profile any
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%s: %w", op, undecodableBodyError(resp, body, err))
	}
	return profile, nil
}

// tokenRequest posts body to the token endpoint and decodes the response.
func (c *Client) tokenRequest(ctx context.Context, op string, body url.Values) (*TokenResponse, error) {
	tokenURL, err := c.md.Token.URL.Resolve(c.creds)
	if err != nil {
		return nil, fmt.Errorf("token url: %w", err)
	}
	d := requestDescriptor{
		url:      tokenURL,
		body:     body,
		authIn:   c.md.Token.AuthIn,
		encoding: c.md.Token.Encoding,
		clientID: c.creds.ClientID,
		client:   c.creds.Client,
	}
	if err := c.applyAssertion(&d, body, tokenURL); err != nil {
		return nil, err
	}

	req, err := newRequest(ctx, d, c.userAgent)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(op, req)
	if err != nil {
		return nil, err
	}
	defer drainBody(resp)
	respBody, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("unable to read response: %w: %w", ErrTransport, err)
	}
	if !isSuccess(resp.StatusCode) {
		return nil, tokenEndpointError(resp, respBody)
	}
	tk, err := decodeTokenResponse(respBody)
	if err != nil {
		return nil, undecodableBodyError(resp, respBody, err)
	}
	return tk, nil
}

// applyAssertion uses the credentials' signing key as the token endpoint's
// metadata asks.
func (c *Client) applyAssertion(d *requestDescriptor, body url.Values, tokenURL string) error {
	if c.md.Token.Assertion == AssertionNone {
		return nil
	}
	audience := c.md.Token.AssertionAudience
	if audience == "" {
		audience = tokenURL
	}
	assertion, err := c.signAssertion(audience)
	if err != nil {
		return err
	}
	switch c.md.Token.Assertion {
	case AssertionJWTBearer:
		body.Set("client_assertion_type", clientassertion.JWTTypeParam)
		body.Set("client_assertion", assertion)
		d.client = PublicClient{}
	case AssertionClientSecret:
		d.client = ConfidentialClient{Secret: ClientSecret(assertion)}
	}
	return nil
}

func (c *Client) signAssertion(audience string) (string, error) {
	const op = "Client.signAssertion"
	k := c.creds.SigningKey
	if k == nil {
		return "", fmt.Errorf("%s: %w", op, ErrSigningKeyRequired)
	}
	j, err := clientassertion.NewJWT(c.creds.ClientID, []string{audience},
		clientassertion.WithSigningKey(k.Key, k.Alg),
		clientassertion.WithKeyID(k.KeyID),
		clientassertion.WithIssuer(k.Issuer),
	)
	if err != nil {
		return "", fmt.Errorf("%s: unable to create client assertion: %w: %w", op, ErrInvalidParameter, err)
	}
	s, err := j.Serialize()
	if err != nil {
		return "", fmt.Errorf("%s: unable to sign client assertion: %w: %w", op, ErrInvalidParameter, err)
	}
	return s, nil
}

// send executes req. Transport failures, including a canceled context, are
// returned wrapped with ErrTransport.
func (c *Client) send(op string, req *http.Request) (*http.Response, error) {
	c.logger.Debug("sending request", "op", op, "method", req.Method, "url", redactURL(req.URL))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "error", err)
		return nil, fmt.Errorf("request failed: %w: %w", ErrTransport, err)
	}
	c.logger.Trace("received response", "op", op, "status", resp.StatusCode)
	return resp, nil
}

// redactURL drops the query, which may carry tokens or client secrets.
func redactURL(u *url.URL) string {
	r := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	return r.String()
}
