// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Version is sent in the User-Agent header.
const Version = "0.1.0"

// DefaultUserAgent is the User-Agent sent with every request unless
// WithUserAgent is used.
const DefaultUserAgent = "capoauth/" + Version

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

// requestDescriptor is everything needed to build one token or revocation
// request. It's built per call and discarded.
type requestDescriptor struct {
	url string

	// body is a url.Values, map[string]string, [][2]string or an encoded
	// query string.
	body interface{}

	authIn   AuthPlacement
	encoding Encoding
	headers  http.Header

	clientID string
	client   ClientAuth
}

// newRequest builds the POST request described by d. Client credentials are
// placed per d.authIn: Basic auth for AuthInHeader (which requires a
// secret), client_id/client_secret fields for AuthInBody and query
// parameters for AuthInQuery.
func newRequest(ctx context.Context, d requestDescriptor, userAgent string) (*http.Request, error) {
	const op = "oauth.newRequest"
	secret, hasSecret := Credentials{Client: d.client}.secret()
	if d.authIn == AuthInHeader && !hasSecret {
		return nil, fmt.Errorf("%s: header client authentication: %w", op, ErrClientSecretRequired)
	}

	u, err := url.Parse(d.url)
	if err != nil {
		return nil, fmt.Errorf("%s: url %q is invalid: %w: %w", op, d.url, ErrInvalidParameter, err)
	}
	values, err := normalizeBody(d.body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch d.authIn {
	case AuthInBody:
		values.Set("client_id", d.clientID)
		if hasSecret {
			values.Set("client_secret", string(secret))
		}
	case AuthInQuery:
		q := u.Query()
		q.Set("client_id", d.clientID)
		if hasSecret {
			q.Set("client_secret", string(secret))
		}
		u.RawQuery = q.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch d.encoding {
	case EncodingJSON:
		b, err := json.Marshal(valuesToJSON(values))
		if err != nil {
			return nil, fmt.Errorf("%s: unable to encode json body: %w", op, err)
		}
		body, contentType = bytes.NewReader(b), contentTypeJSON
	default:
		body, contentType = strings.NewReader(values.Encode()), contentTypeForm
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w: %w", op, ErrInvalidParameter, err)
	}
	for k, vs := range d.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentTypeJSON)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	if d.authIn == AuthInHeader {
		req.Header.Set("Authorization", BasicAuthHeader(d.clientID, string(secret)))
	}
	return req, nil
}

// normalizeBody converts the supported body shapes into a fresh url.Values.
func normalizeBody(body interface{}) (url.Values, error) {
	const op = "oauth.normalizeBody"
	values := url.Values{}
	switch b := body.(type) {
	case nil:
	case url.Values:
		for k, vs := range b {
			values[k] = append([]string(nil), vs...)
		}
	case map[string]string:
		for k, v := range b {
			values.Set(k, v)
		}
	case [][2]string:
		for _, kv := range b {
			values.Add(kv[0], kv[1])
		}
	case string:
		parsed, err := url.ParseQuery(strings.TrimPrefix(b, "?"))
		if err != nil {
			return nil, fmt.Errorf("%s: body is not a valid query string: %w: %w", op, ErrInvalidParameter, err)
		}
		values = parsed
	default:
		return nil, fmt.Errorf("%s: unsupported body type %T: %w", op, body, ErrInvalidParameter)
	}
	return values, nil
}

// valuesToJSON flattens single valued fields to strings and keeps multi
// valued fields as arrays.
func valuesToJSON(values url.Values) map[string]interface{} {
	m := make(map[string]interface{}, len(values))
	for k, vs := range values {
		switch len(vs) {
		case 0:
		case 1:
			m[k] = vs[0]
		default:
			m[k] = vs
		}
	}
	return m
}

// mergeParams sets every key of params on values.
func mergeParams(values url.Values, params map[string]string) {
	for k, v := range params {
		values.Set(k, v)
	}
}
