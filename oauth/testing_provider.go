// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"bytes"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	sdkhttp "github.com/hashicorp/capoauth/sdk/http"
	"github.com/stretchr/testify/require"
)

// TestProvider is a local https server that plays the part of an oauth2 and
// oidc provider, which makes writing tests much easier. It records every
// request it receives so tests can assert on the wire shape of a request.
//
// Endpoints:
//   - /.well-known/openid-configuration
//   - /.well-known/jwks.json
//   - /authorize
//   - /token (authorization_code and refresh_token grants)
//   - /revoke
//   - /profile (echoes the access token it was sent)
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string
	client     *http.Client

	jwks *jose.JSONWebKeySet

	mu                   sync.Mutex
	clientID             string
	clientSecret         string
	expectedAuthCode     string
	expectedCodeVerifier string
	expectedNonce        string
	replySubject         string
	replyExpiry          time.Duration
	replyProfile         map[string]interface{}
	customClaims         map[string]interface{}
	omitIDToken          bool
	tokenReply           *testReply
	revokeReply          *testReply
	profileReply         *testReply
	requests             []TestRequest

	ecdsaPublicKey  string
	ecdsaPrivateKey string

	t *testing.T
}

// TestRequest is a request received by a TestProvider.
type TestRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte

	// Form is the parsed body, whether it was form or json encoded.
	Form url.Values
}

type testReply struct {
	status int
	body   string
}

// testProviderOptions is the set of available options for StartTestProvider
type testProviderOptions struct {
	withPort int
}

func testProviderDefaults() testProviderOptions {
	return testProviderOptions{}
}

func getTestProviderOpts(opt ...Option) testProviderOptions {
	opts := testProviderDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithTestPort provides a port for the TestProvider. The default is a
// random free port.
func WithTestPort(port int) Option {
	return func(o interface{}) {
		if o, ok := o.(*testProviderOptions); ok {
			o.withPort = port
		}
	}
}

// StartTestProvider creates and starts a disposable TestProvider which is
// stopped when the test completes.
//
// Supported options:
//   - WithTestPort
func StartTestProvider(t *testing.T, opt ...Option) *TestProvider {
	t.Helper()
	require := require.New(t)
	opts := getTestProviderOpts(opt...)

	p := &TestProvider{
		replySubject: "alice@example.com",
		replyExpiry:  5 * time.Minute,
		replyProfile: map[string]interface{}{
			"name":  "Alice",
			"color": "red",
		},
		t: t,
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)
	p.jwks = testJWKS(t, p.ecdsaPublicKey)

	if opts.withPort != 0 {
		p.httpServer = httptestNewUnstartedServerWithPort(t, p, opts.withPort)
	} else {
		p.httpServer = httptest.NewUnstartedServer(p)
	}
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	cert := p.httpServer.Certificate()

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	p.client, err = sdkhttp.NewClient(p.caCert)
	require.NoError(err)

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns an http client that trusts the test provider.
func (p *TestProvider) HTTPClient() *http.Client { return p.client }

// SigningKeys returns the test provider's pem-encoded keys used to sign JWTs.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.ecdsaPublicKey, p.ecdsaPrivateKey
}

// Metadata returns metadata for the test provider: an oidc provider using
// S256 PKCE, body client authentication, body placed revocation and a
// bearer authenticated profile. A new value is returned on every call so
// tests can adjust it.
func (p *TestProvider) Metadata() *Metadata {
	return &Metadata{
		AuthorizationURL: StaticURL(p.Addr() + "/authorize"),
		Token: TokenEndpoint{
			URL:    StaticURL(p.Addr() + "/token"),
			AuthIn: AuthInBody,
		},
		Revocation: &Revocation{
			URL:     StaticURL(p.Addr() + "/revoke"),
			TokenIn: AuthInBody,
		},
		Profile: &ProfileRequest{
			URL:    StaticURL(p.Addr() + "/profile"),
			AuthIn: AuthInHeader,
		},
		PKCE:          S256,
		OIDC:          true,
		Issuer:        p.Addr(),
		Refreshable:   true,
		DefaultScopes: []string{"openid"},
	}
}

// SetClientCreds configures the client credentials the /token endpoint
// requires. With an empty secret client authentication isn't checked.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// ClientCreds returns the configured client credentials.
func (p *TestProvider) ClientCreds() (clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientID, p.clientSecret
}

// SetExpectedAuthCode configures the auth code returned from /authorize and
// the only code /token accepts.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetExpectedCodeVerifier configures the code_verifier /token requires.
func (p *TestProvider) SetExpectedCodeVerifier(verifier string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedCodeVerifier = verifier
}

// SetExpectedAuthNonce configures the nonce claim of issued id_tokens.
func (p *TestProvider) SetExpectedAuthNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedNonce = nonce
}

// SetExpectedExpiry configures the expires_in of issued tokens.
func (p *TestProvider) SetExpectedExpiry(exp time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyExpiry = exp
}

// SetCustomClaims lets you set claims to return in issued id_tokens.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetProfile configures the profile returned by /profile. The access token
// is always added to it as "access_token".
func (p *TestProvider) SetProfile(profile map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyProfile = profile
}

// OmitIDTokens makes /token leave out the id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// SetTokenReply makes /token answer every request with status and body. A
// zero status restores the default behavior.
func (p *TestProvider) SetTokenReply(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenReply = newTestReply(status, body)
}

// SetRevokeReply makes /revoke answer with status and body. By default it
// answers 200 with an empty body.
func (p *TestProvider) SetRevokeReply(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revokeReply = newTestReply(status, body)
}

// SetProfileReply makes /profile answer with status and body. A zero status
// restores the default behavior.
func (p *TestProvider) SetProfileReply(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profileReply = newTestReply(status, body)
}

func newTestReply(status int, body string) *testReply {
	if status == 0 {
		return nil
	}
	return &testReply{status: status, body: body}
}

// Requests returns the requests received so far, oldest first.
func (p *TestProvider) Requests() []TestRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]TestRequest(nil), p.requests...)
}

// LastRequest returns the most recent request, or nil if there's none.
func (p *TestProvider) LastRequest() *TestRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	r := p.requests[len(p.requests)-1]
	return &r
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeReply(w http.ResponseWriter, r *testReply) {
	if json.Valid([]byte(r.body)) {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain")
	}
	w.WriteHeader(r.status)
	_, _ = w.Write([]byte(r.body))
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()

	redirectURI := qv.Get("redirect_uri") +
		"?state=" + url.QueryEscape(qv.Get("state")) +
		"&error=" + url.QueryEscape(errorCode)

	if errorMessage != "" {
		redirectURI += "&error_description=" + url.QueryEscape(errorMessage)
	}

	http.Redirect(w, req, redirectURI, http.StatusFound)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.t.Helper()

	rec := recordRequest(req)
	p.requests = append(p.requests, rec)

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		reply := struct {
			Issuer             string `json:"issuer"`
			AuthEndpoint       string `json:"authorization_endpoint"`
			TokenEndpoint      string `json:"token_endpoint"`
			JWKSURI            string `json:"jwks_uri"`
			UserinfoEndpoint   string `json:"userinfo_endpoint"`
			RevocationEndpoint string `json:"revocation_endpoint"`
		}{
			Issuer:             p.Addr(),
			AuthEndpoint:       p.Addr() + "/authorize",
			TokenEndpoint:      p.Addr() + "/token",
			JWKSURI:            p.Addr() + "/.well-known/jwks.json",
			UserinfoEndpoint:   p.Addr() + "/profile",
			RevocationEndpoint: p.Addr() + "/revoke",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = p.writeJSON(w, &reply)

	case "/.well-known/jwks.json":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = p.writeJSON(w, p.jwks)

	case "/authorize":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		switch {
		case qv.Get("response_type") != "code":
			p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
			return
		case qv.Get("state") == "":
			p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
			return
		case qv.Get("redirect_uri") == "":
			w.WriteHeader(http.StatusBadRequest)
			return
		case p.expectedAuthCode == "":
			p.writeAuthErrorResponse(w, req, "access_denied", "")
			return
		}
		redirectURI := qv.Get("redirect_uri") +
			"?state=" + url.QueryEscape(qv.Get("state")) +
			"&code=" + url.QueryEscape(p.expectedAuthCode)
		http.Redirect(w, req, redirectURI, http.StatusFound)

	case "/token":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if p.tokenReply != nil {
			p.writeReply(w, p.tokenReply)
			return
		}
		p.serveToken(w, req, rec)

	case "/revoke":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if p.revokeReply != nil {
			p.writeReply(w, p.revokeReply)
			return
		}
		w.WriteHeader(http.StatusOK)

	case "/profile":
		if p.profileReply != nil {
			p.writeReply(w, p.profileReply)
			return
		}
		token := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
		if token == "" || strings.HasPrefix(token, "Basic ") {
			token = req.URL.Query().Get("access_token")
		}
		if token == "" {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_token", "missing access token")
			return
		}
		reply := make(map[string]interface{}, len(p.replyProfile)+2)
		for k, v := range p.replyProfile {
			reply[k] = v
		}
		reply["sub"] = p.replySubject
		reply["access_token"] = token
		w.Header().Set("Content-Type", "application/json")
		_ = p.writeJSON(w, reply)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *TestProvider) serveToken(w http.ResponseWriter, req *http.Request, rec TestRequest) {
	form := rec.Form
	if p.clientSecret != "" {
		id, secret, ok := req.BasicAuth()
		if !ok {
			id, secret = form.Get("client_id"), form.Get("client_secret")
		}
		if secret == "" {
			id, secret = req.URL.Query().Get("client_id"), req.URL.Query().Get("client_secret")
		}
		if id != p.clientID || secret != p.clientSecret {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
			return
		}
	}

	includeIDToken := false
	switch form.Get("grant_type") {
	case "authorization_code":
		switch {
		case p.expectedAuthCode != "" && form.Get("code") != p.expectedAuthCode:
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unexpected auth code")
			return
		case p.expectedCodeVerifier != "" && form.Get("code_verifier") != p.expectedCodeVerifier:
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "invalid code_verifier")
			return
		}
		includeIDToken = !p.omitIDToken
	case "refresh_token":
		if form.Get("refresh_token") == "" {
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "missing refresh_token")
			return
		}
	default:
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "unsupported_grant_type", "bad grant_type")
		return
	}

	reply := struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		IDToken      string `json:"id_token,omitempty"`
	}{
		AccessToken:  MustRandomToken(),
		TokenType:    "Bearer",
		RefreshToken: MustRandomToken(),
		ExpiresIn:    int64(p.replyExpiry / time.Second),
	}
	if includeIDToken {
		aud := p.clientID
		if aud == "" {
			aud = form.Get("client_id")
		}
		now := time.Now()
		stdClaims := jwt.Claims{
			Subject:   p.replySubject,
			Issuer:    p.Addr(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			Expiry:    jwt.NewNumericDate(now.Add(p.replyExpiry)),
			Audience:  jwt.Audience{aud},
		}
		privateClaims := map[string]interface{}{}
		for k, v := range p.customClaims {
			privateClaims[k] = v
		}
		if p.expectedNonce != "" {
			privateClaims["nonce"] = p.expectedNonce
		}
		reply.IDToken = TestSignJWT(p.t, p.ecdsaPrivateKey, stdClaims, privateClaims)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = p.writeJSON(w, &reply)
}

// recordRequest reads the request's body and parses it as json or form
// values based on its content type.
func recordRequest(req *http.Request) TestRequest {
	body, _ := io.ReadAll(req.Body)
	rec := TestRequest{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		Header: req.Header.Clone(),
		Body:   body,
		Form:   url.Values{},
	}
	if strings.HasPrefix(req.Header.Get("Content-Type"), contentTypeJSON) {
		var m map[string]interface{}
		if err := json.Unmarshal(body, &m); err == nil {
			for k, v := range m {
				switch v := v.(type) {
				case string:
					rec.Form.Set(k, v)
				case []interface{}:
					for _, e := range v {
						rec.Form.Add(k, fmt.Sprint(e))
					}
				default:
					rec.Form.Set(k, fmt.Sprint(v))
				}
			}
		}
		return rec
	}
	if f, err := url.ParseQuery(string(body)); err == nil {
		rec.Form = f
	}
	return rec
}

// testJWKS converts a pem-encoded public key into JWKS data suitable for a
// verification endpoint response
func testJWKS(t *testing.T, pubKey string) *jose.JSONWebKeySet {
	t.Helper()
	require := require.New(t)

	block, _ := pem.Decode([]byte(pubKey))
	require.NotNil(block)

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(err)

	return &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       pub,
				Algorithm: string(jose.ES256),
				Use:       "sig",
			},
		},
	}
}

// httptestNewUnstartedServerWithPort is roughly the same as
// httptest.NewUnstartedServer() but allows the caller to explicitly choose the
// port if desired.
func httptestNewUnstartedServerWithPort(t *testing.T, handler http.Handler, port int) *httptest.Server {
	t.Helper()
	require := require.New(t)
	require.NotEmpty(port)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	l, err := net.Listen("tcp", addr)
	require.NoError(err)

	return &httptest.Server{
		Listener: l,
		Config:   &http.Server{Handler: handler},
	}
}
