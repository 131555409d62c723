// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestClient_TokenSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid-token-is-reused", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		c := testClient(t, tp.Metadata(), testCreds(t), WithHTTPClient(tp.HTTPClient()))
		src := c.TokenSource(ctx, &TokenResponse{
			AccessToken:  "access",
			TokenType:    "Bearer",
			RefreshToken: "refresh",
			ExpiresIn:    3600,
		})
		tk, err := src.Token()
		require.NoError(err)
		assert.Equal("access", tk.AccessToken)
		assert.Equal("refresh", tk.RefreshToken)
		assert.Empty(tp.Requests())
	})

	t.Run("expired-token-is-refreshed", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		// tokens issued an hour ago
		past := func() time.Time { return time.Now().Add(-time.Hour) }
		c := testClient(t, tp.Metadata(), testCreds(t), WithHTTPClient(tp.HTTPClient()), WithNow(past))
		src := c.TokenSource(ctx, &TokenResponse{
			AccessToken:  "access",
			RefreshToken: "refresh-1",
			ExpiresIn:    60,
		})

		tk, err := src.Token()
		require.NoError(err)
		assert.NotEqual("access", tk.AccessToken)
		assert.NotEqual("refresh-1", tk.RefreshToken)
		reqs := tp.Requests()
		require.Len(reqs, 1)
		assert.Equal("refresh_token", reqs[0].Form.Get("grant_type"))
		assert.Equal("refresh-1", reqs[0].Form.Get("refresh_token"))

		// the rotated refresh token is used next
		rotated := tk.RefreshToken
		_, err = src.Token()
		require.NoError(err)
		reqs = tp.Requests()
		require.Len(reqs, 2)
		assert.Equal(rotated, reqs[1].Form.Get("refresh_token"))
	})

	t.Run("refresh-token-kept-when-not-rotated", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetTokenReply(http.StatusOK, `{"access_token":"abc","token_type":"Bearer","expires_in":3600}`)
		c := testClient(t, tp.Metadata(), testCreds(t), WithHTTPClient(tp.HTTPClient()))
		// no access token yet
		src := c.TokenSource(ctx, &TokenResponse{RefreshToken: "refresh"})
		tk, err := src.Token()
		require.NoError(err)
		assert.Equal("abc", tk.AccessToken)
		assert.Equal("refresh", tk.RefreshToken)
		assert.Equal("Bearer", tk.Extra("token_type"))
	})

	t.Run("no-refresh-token", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		c := testClient(t, testMetadata(), testCreds(t))
		src := c.TokenSource(ctx, nil)
		_, err := src.Token()
		assert.ErrorIs(err, ErrInvalidParameter)
	})

	t.Run("refresh-error", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetTokenReply(http.StatusBadRequest, `{"error":"invalid_grant"}`)
		c := testClient(t, tp.Metadata(), testCreds(t), WithHTTPClient(tp.HTTPClient()))
		_, err := c.TokenSource(ctx, &TokenResponse{RefreshToken: "refresh"}).Token()
		require.Error(err)
		var oauthErr *OAuth2Error
		require.ErrorAs(err, &oauthErr)
		assert.Equal("invalid_grant", oauthErr.Code)
	})

	t.Run("oauth2-client", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		c := testClient(t, tp.Metadata(), testCreds(t), WithHTTPClient(tp.HTTPClient()))
		src := c.TokenSource(ctx, &TokenResponse{AccessToken: "access", TokenType: "Bearer", ExpiresIn: 3600})

		hc := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, tp.HTTPClient()), src)
		resp, err := hc.Get(tp.Addr() + "/profile")
		require.NoError(err)
		defer resp.Body.Close()
		require.Equal(http.StatusOK, resp.StatusCode)
		var profile map[string]interface{}
		require.NoError(json.NewDecoder(resp.Body).Decode(&profile))
		assert.Equal("access", profile["access_token"])
	})
}
