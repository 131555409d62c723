// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// TokenSource returns an oauth2.TokenSource that returns t's access token
// until it expires, then refreshes it with RefreshAccessToken. ctx is used
// for every refresh request. A provider that rotates refresh tokens has the
// newest one used for the next refresh.
//
// The returned source can be used with oauth2.NewClient.
func (c *Client) TokenSource(ctx context.Context, t *TokenResponse) oauth2.TokenSource {
	var (
		initial *oauth2.Token
		rt      RefreshToken
	)
	if t != nil {
		initial = t.Token(c.now())
		rt = t.RefreshToken
	}
	return oauth2.ReuseTokenSource(initial, &refreshingSource{
		ctx:          ctx,
		client:       c,
		refreshToken: rt,
	})
}

type refreshingSource struct {
	ctx    context.Context
	client *Client

	mu           sync.Mutex
	refreshToken RefreshToken
}

// Token implements oauth2.TokenSource.
func (s *refreshingSource) Token() (*oauth2.Token, error) {
	const op = "refreshingSource.Token"
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshToken == "" {
		return nil, fmt.Errorf("%s: token expired and there's no refresh token: %w", op, ErrInvalidParameter)
	}
	tr, err := s.client.RefreshAccessToken(s.ctx, s.refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tr.RefreshToken != "" {
		s.refreshToken = tr.RefreshToken
	}
	tk := tr.Token(s.client.now())
	if tk.RefreshToken == "" {
		tk.RefreshToken = string(s.refreshToken)
	}
	return tk, nil
}
