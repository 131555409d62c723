// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func strPtr(s string) *string { return &s }

func Test_tokenEndpointError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		status     int
		body       string
		wantOAuth  *OAuth2Error
		wantReason string
	}{
		{
			name:   "invalid-grant",
			status: http.StatusBadRequest,
			body:   `{"error":"invalid_grant","error_description":"bad code"}`,
			wantOAuth: &OAuth2Error{
				Code:        "invalid_grant",
				Description: strPtr("bad code"),
				StatusCode:  http.StatusBadRequest,
			},
		},
		{
			name:   "all-fields-401",
			status: http.StatusUnauthorized,
			body:   `{"error":"invalid_client","error_description":"d","error_uri":"https://example.com/e","state":"s"}`,
			wantOAuth: &OAuth2Error{
				Code:        "invalid_client",
				Description: strPtr("d"),
				URI:         strPtr("https://example.com/e"),
				State:       strPtr("s"),
				StatusCode:  http.StatusUnauthorized,
			},
		},
		{
			name:   "non-string-optional-fields",
			status: http.StatusBadRequest,
			body:   `{"error":"invalid_request","error_description":42}`,
			wantOAuth: &OAuth2Error{
				Code:       "invalid_request",
				StatusCode: http.StatusBadRequest,
			},
		},
		{
			name:       "not-json",
			status:     http.StatusBadRequest,
			body:       `<html>bad request</html>`,
			wantReason: reasonUnexpectedBody,
		},
		{
			name:       "json-null",
			status:     http.StatusBadRequest,
			body:       `null`,
			wantReason: reasonUnexpectedBody,
		},
		{
			name:   "missing-error-member",
			status: http.StatusUnauthorized,
			body:   `{"message":"Bad credentials"}`,
			wantOAuth: &OAuth2Error{
				StatusCode: http.StatusUnauthorized,
			},
		},
		{
			name:   "non-string-error-member",
			status: http.StatusBadRequest,
			body:   `{"error":7,"error_description":"d"}`,
			wantOAuth: &OAuth2Error{
				Description: strPtr("d"),
				StatusCode:  http.StatusBadRequest,
			},
		},
		{
			name:       "json-array",
			status:     http.StatusBadRequest,
			body:       `[{"error":"invalid_grant"}]`,
			wantReason: reasonUnexpectedBody,
		},
		{
			name:       "server-error",
			status:     http.StatusInternalServerError,
			body:       `{"error":"server_error"}`,
			wantReason: reasonUnexpectedStatus,
		},
		{
			name:       "forbidden",
			status:     http.StatusForbidden,
			wantReason: reasonUnexpectedStatus,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			err := tokenEndpointError(testResponse(tt.status, tt.body), []byte(tt.body))
			require.Error(err)
			if tt.wantOAuth != nil {
				var oauthErr *OAuth2Error
				require.ErrorAs(err, &oauthErr)
				assert.Equal(tt.wantOAuth, oauthErr)
				assert.ErrorIs(err, ErrProtocol)
				assert.NotErrorIs(err, ErrTransport)
				return
			}
			var respErr *UnexpectedResponseError
			require.ErrorAs(err, &respErr)
			assert.Equal(tt.wantReason, respErr.Reason)
			assert.Equal(tt.status, respErr.StatusCode)
			assert.Equal(http.StatusText(tt.status), respErr.Status)
			assert.Equal(tt.body, string(respErr.Body))
			assert.ErrorIs(err, ErrTransport)
			assert.NotErrorIs(err, ErrProtocol)
		})
	}
}

func Test_undecodableBodyError(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	cause := errors.New("invalid character")
	err := undecodableBodyError(testResponse(http.StatusOK, "oops"), []byte("oops"), cause)
	var respErr *UnexpectedResponseError
	assert.ErrorAs(err, &respErr)
	assert.Equal(reasonUnexpectedBody, respErr.Reason)
	assert.Equal(http.StatusOK, respErr.StatusCode)
	assert.ErrorIs(err, ErrTransport)
	assert.ErrorIs(err, cause)
}

func Test_profileError(t *testing.T) {
	t.Parallel()
	const u = "https://api.example.com/me"
	tests := []struct {
		name     string
		status   int
		body     string
		wantJSON any
		wantText string
	}{
		{
			name:     "json",
			status:   http.StatusUnauthorized,
			body:     `{"message":"Bad credentials"}`,
			wantJSON: map[string]any{"message": "Bad credentials"},
		},
		{
			name:     "text",
			status:   http.StatusBadGateway,
			body:     "upstream unavailable",
			wantText: "upstream unavailable",
		},
		{
			name:   "empty",
			status: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			err := profileError(testResponse(tt.status, tt.body), u, []byte(tt.body))
			var pErr *ProfileError
			require.ErrorAs(err, &pErr)
			assert.Equal(tt.status, pErr.StatusCode)
			assert.Equal(http.StatusText(tt.status), pErr.Status)
			assert.Equal(u, pErr.URL)
			assert.Equal(tt.wantJSON, pErr.JSON)
			assert.Equal(tt.wantText, pErr.Text)
			assert.ErrorIs(err, ErrTransport)
			assert.Contains(err.Error(), u)
		})
	}
}

func Test_statusText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		code   int
		status string
		want   string
	}{
		{name: "code-prefixed", code: 418, status: "418 Teapot Time", want: "Teapot Time"},
		{name: "no-prefix", code: http.StatusBadGateway, status: "Bad Gateway", want: "Bad Gateway"},
		{name: "no-prefix-multi-word", code: 500, status: "Internal Server Error", want: "Internal Server Error"},
		{name: "other-code-prefix", code: 502, status: "503 Service Unavailable", want: "503 Service Unavailable"},
		{name: "code-only", code: http.StatusNotFound, status: "404", want: "Not Found"},
		{name: "empty", code: http.StatusNotFound, want: "Not Found"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusText(&http.Response{StatusCode: tt.code, Status: tt.status}))
		})
	}
}

// A transport may report a Status without the numeric code.
func TestClient_RefreshAccessToken_statusWithoutCode(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	hc := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Status:     "Bad Gateway",
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil
	})}
	md := testMetadata()
	md.Refreshable = true
	c := testClient(t, md, testCreds(t), WithHTTPClient(hc))
	_, err := c.RefreshAccessToken(context.Background(), "the-refresh-token")
	require.Error(err)
	var respErr *UnexpectedResponseError
	require.ErrorAs(err, &respErr)
	assert.Equal(http.StatusBadGateway, respErr.StatusCode)
	assert.Equal("Bad Gateway", respErr.Status)
	assert.ErrorIs(err, ErrTransport)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
