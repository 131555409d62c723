// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// maxResponseSize bounds how much of any response body is read.
const maxResponseSize = 1 << 20

const (
	reasonUnexpectedBody   = "unexpected error body"
	reasonUnexpectedStatus = "unexpected response status"
)

func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}

// drainBody discards what's left of the body so the connection can be
// reused, then closes it.
func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
	_ = resp.Body.Close()
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// tokenEndpointError converts a failed token or revocation response into a
// *OAuth2Error when the provider sent an RFC 6749 error body, and into an
// *UnexpectedResponseError otherwise.
func tokenEndpointError(resp *http.Response, body []byte) error {
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized:
		if e, ok := parseOAuth2Error(body); ok {
			e.StatusCode = resp.StatusCode
			return e
		}
		return &UnexpectedResponseError{
			Reason:     reasonUnexpectedBody,
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Body:       body,
		}
	default:
		return &UnexpectedResponseError{
			Reason:     reasonUnexpectedStatus,
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Body:       body,
		}
	}
}

// parseOAuth2Error accepts any non-null JSON object. Code is empty when the
// "error" member is missing or not a string; optional members that are
// missing or not strings are left nil.
func parseOAuth2Error(body []byte) (*OAuth2Error, bool) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, false
	}
	code, _ := raw["error"].(string)
	opt := func(k string) *string {
		if s, ok := raw[k].(string); ok {
			return &s
		}
		return nil
	}
	return &OAuth2Error{
		Code:        code,
		Description: opt("error_description"),
		URI:         opt("error_uri"),
		State:       opt("state"),
	}, true
}

// undecodableBodyError is returned for a success status whose body isn't a
// token response.
func undecodableBodyError(resp *http.Response, body []byte, err error) error {
	return fmt.Errorf("%w: %w", &UnexpectedResponseError{
		Reason:     reasonUnexpectedBody,
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
		Body:       body,
	}, err)
}

// profileError wraps a failed profile response, preferring a JSON body over
// the raw text.
func profileError(resp *http.Response, requestURL string, body []byte) error {
	e := &ProfileError{
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
		URL:        requestURL,
	}
	if len(body) == 0 {
		return e
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err == nil {
		e.JSON = v
		return e
	}
	e.Text = string(body)
	return e
}

// statusText returns the reason phrase, e.g. "Bad Request". resp.Status is
// usually "400 Bad Request" but transports may leave off the code.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "))
	if text == "" || text == strconv.Itoa(resp.StatusCode) {
		return http.StatusText(resp.StatusCode)
	}
	return text
}
