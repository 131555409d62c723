// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_newRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	confidential := ConfidentialClient{Secret: "s3cr3t"}

	tests := []struct {
		name       string
		d          requestDescriptor
		userAgent  string
		wantURL    string
		wantCT     string
		wantAuth   string
		wantBody   url.Values
		wantJSON   map[string]interface{}
		wantErrIs  error
		wantHeader http.Header
	}{
		{
			name: "form-body-auth-confidential",
			d: requestDescriptor{
				url:      "https://example.com/token",
				body:     map[string]string{"grant_type": "authorization_code", "code": "c"},
				authIn:   AuthInBody,
				clientID: "client",
				client:   confidential,
			},
			wantURL: "https://example.com/token",
			wantCT:  contentTypeForm,
			wantBody: url.Values{
				"grant_type":    {"authorization_code"},
				"code":          {"c"},
				"client_id":     {"client"},
				"client_secret": {"s3cr3t"},
			},
		},
		{
			name: "form-body-auth-public",
			d: requestDescriptor{
				url:      "https://example.com/token",
				body:     [][2]string{{"grant_type", "refresh_token"}, {"refresh_token", "r"}},
				authIn:   AuthInBody,
				clientID: "client",
				client:   PublicClient{},
			},
			wantURL: "https://example.com/token",
			wantCT:  contentTypeForm,
			wantBody: url.Values{
				"grant_type":    {"refresh_token"},
				"refresh_token": {"r"},
				"client_id":     {"client"},
			},
		},
		{
			name: "form-header-auth",
			d: requestDescriptor{
				url:      "https://example.com/token",
				body:     "grant_type=authorization_code&code=c",
				authIn:   AuthInHeader,
				clientID: "client",
				client:   confidential,
			},
			wantURL:  "https://example.com/token",
			wantCT:   contentTypeForm,
			wantAuth: "Basic Y2xpZW50OnMzY3IzdA==",
			wantBody: url.Values{
				"grant_type": {"authorization_code"},
				"code":       {"c"},
			},
		},
		{
			name: "header-auth-requires-secret",
			d: requestDescriptor{
				url:      "https://example.com/token",
				authIn:   AuthInHeader,
				clientID: "client",
				client:   PublicClient{},
			},
			wantErrIs: ErrClientSecretRequired,
		},
		{
			name: "header-auth-nil-client",
			d: requestDescriptor{
				url:      "https://example.com/token",
				authIn:   AuthInHeader,
				clientID: "client",
			},
			wantErrIs: ErrClientSecretRequired,
		},
		{
			name: "query-auth",
			d: requestDescriptor{
				url:      "https://example.com/revoke?v=2",
				body:     url.Values{"token": {"t"}},
				authIn:   AuthInQuery,
				clientID: "client",
				client:   confidential,
			},
			wantURL: "https://example.com/revoke?client_id=client&client_secret=s3cr3t&v=2",
			wantCT:  contentTypeForm,
			wantBody: url.Values{
				"token": {"t"},
			},
		},
		{
			name: "no-auth",
			d: requestDescriptor{
				url:      "https://example.com/revoke",
				body:     url.Values{"token": {"t"}},
				clientID: "client",
				client:   confidential,
				headers:  http.Header{"Authorization": {"Bearer t"}},
			},
			wantURL:  "https://example.com/revoke",
			wantCT:   contentTypeForm,
			wantAuth: "Bearer t",
			wantBody: url.Values{
				"token": {"t"},
			},
		},
		{
			name: "json-body-auth",
			d: requestDescriptor{
				url:      "https://example.com/token",
				body:     url.Values{"grant_type": {"authorization_code"}, "scope": {"a", "b"}},
				authIn:   AuthInBody,
				encoding: EncodingJSON,
				clientID: "client",
				client:   confidential,
			},
			wantURL: "https://example.com/token",
			wantCT:  contentTypeJSON,
			wantJSON: map[string]interface{}{
				"grant_type":    "authorization_code",
				"scope":         []interface{}{"a", "b"},
				"client_id":     "client",
				"client_secret": "s3cr3t",
			},
		},
		{
			name: "custom-user-agent-and-headers",
			d: requestDescriptor{
				url:      "https://example.com/token",
				clientID: "client",
				headers:  http.Header{"X-Request-Id": {"1"}},
			},
			userAgent:  "my-app/1.0",
			wantURL:    "https://example.com/token",
			wantCT:     contentTypeForm,
			wantBody:   url.Values{},
			wantHeader: http.Header{"X-Request-Id": {"1"}, "User-Agent": {"my-app/1.0"}},
		},
		{
			name: "unsupported-body",
			d: requestDescriptor{
				url:  "https://example.com/token",
				body: 42,
			},
			wantErrIs: ErrInvalidParameter,
		},
		{
			name: "invalid-url",
			d: requestDescriptor{
				url: "://example.com",
			},
			wantErrIs: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			req, err := newRequest(ctx, tt.d, tt.userAgent)
			if tt.wantErrIs != nil {
				require.Error(err)
				assert.Nil(req)
				assert.ErrorIs(err, tt.wantErrIs)
				assert.ErrorIs(err, ErrConfiguration)
				return
			}
			require.NoError(err)
			assert.Equal(http.MethodPost, req.Method)
			assert.Equal(tt.wantURL, req.URL.String())
			assert.Equal(tt.wantCT, req.Header.Get("Content-Type"))
			assert.Equal(contentTypeJSON, req.Header.Get("Accept"))
			assert.Equal(tt.wantAuth, req.Header.Get("Authorization"))
			if tt.userAgent == "" {
				assert.Equal(DefaultUserAgent, req.Header.Get("User-Agent"))
			}
			for k := range tt.wantHeader {
				assert.Equal(tt.wantHeader.Get(k), req.Header.Get(k))
			}

			body, err := io.ReadAll(req.Body)
			require.NoError(err)
			if tt.wantJSON != nil {
				var got map[string]interface{}
				require.NoError(json.Unmarshal(body, &got))
				assert.Equal(tt.wantJSON, got)
				return
			}
			got, err := url.ParseQuery(string(body))
			require.NoError(err)
			assert.Equal(tt.wantBody, got)
		})
	}
}

func Test_normalizeBody(t *testing.T) {
	t.Parallel()
	want := url.Values{"a": {"1"}, "b": {"2", "3"}}
	tests := []struct {
		name      string
		body      interface{}
		want      url.Values
		wantErrIs error
	}{
		{name: "nil", body: nil, want: url.Values{}},
		{name: "values", body: url.Values{"a": {"1"}, "b": {"2", "3"}}, want: want},
		{name: "pairs", body: [][2]string{{"a", "1"}, {"b", "2"}, {"b", "3"}}, want: want},
		{name: "query-string", body: "a=1&b=2&b=3", want: want},
		{name: "query-string-with-prefix", body: "?a=1&b=2&b=3", want: want},
		{name: "map", body: map[string]string{"a": "1"}, want: url.Values{"a": {"1"}}},
		{name: "bad-query-string", body: "a=%zz", wantErrIs: ErrInvalidParameter},
		{name: "unsupported", body: []string{"a"}, wantErrIs: ErrInvalidParameter},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := normalizeBody(tt.body)
			if tt.wantErrIs != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantErrIs)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
	t.Run("copies-values", func(t *testing.T) {
		t.Parallel()
		in := url.Values{"a": {"1"}}
		got, err := normalizeBody(in)
		require.NoError(t, err)
		got.Set("a", "2")
		got.Set("b", "3")
		assert.Equal(t, url.Values{"a": {"1"}}, in)
	})
}
