// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package providers

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/hashicorp/capoauth/oauth"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// maxDocumentSize bounds how much of a reader Load consumes.
const maxDocumentSize = 1 << 20

// document is the top level of a metadata table.
type document struct {
	Providers map[string]*entry `yaml:"providers"`
}

type entry struct {
	AuthorizationURL    string            `yaml:"authorization_url"`
	AuthorizationParams map[string]string `yaml:"authorization_params"`
	Token               tokenEntry        `yaml:"token"`
	Revocation          *revocationEntry  `yaml:"revocation"`
	Profile             *profileEntry     `yaml:"profile"`
	PKCE                string            `yaml:"pkce"`
	OIDC                bool              `yaml:"oidc"`
	Issuer              string            `yaml:"issuer"`
	Refreshable         bool              `yaml:"refreshable"`
	ScopeRequired       bool              `yaml:"scope_required"`
	DefaultScopes       []string          `yaml:"default_scopes"`
	ScopeSeparator      string            `yaml:"scope_separator"`
}

type tokenEntry struct {
	URL               string            `yaml:"url"`
	AuthIn            string            `yaml:"auth_in"`
	Encoding          string            `yaml:"encoding"`
	Params            map[string]string `yaml:"params"`
	RefreshParams     map[string]string `yaml:"refresh_params"`
	Assertion         string            `yaml:"assertion"`
	AssertionAudience string            `yaml:"assertion_audience"`
}

type revocationEntry struct {
	URL            string            `yaml:"url"`
	TokenIn        string            `yaml:"token_in"`
	CredentialsIn  string            `yaml:"credentials_in"`
	Encoding       string            `yaml:"encoding"`
	TokenParamName string            `yaml:"token_param_name"`
	Params         map[string]string `yaml:"params"`
}

type profileEntry struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	AuthIn  string            `yaml:"auth_in"`
	Params  map[string]string `yaml:"params"`
	Headers map[string]string `yaml:"headers"`
	Body    map[string]any    `yaml:"body"`
}

// Load reads a YAML metadata table and returns it as a registry. Every entry
// is validated and all problems are reported together. URLs may contain
// {name} placeholders which are resolved from the credentials' Extras at
// call time.
//
// A table looks like:
//
//	providers:
//	  github:
//	    authorization_url: https://github.com/login/oauth/authorize
//	    token:
//	      url: https://github.com/login/oauth/access_token
//	      auth_in: body
//	    profile:
//	      url: https://api.github.com/user
//	    pkce: none
//	    default_scopes: [read:user]
func Load(r io.Reader) (oauth.Registry, error) {
	const op = "providers.Load"
	if r == nil {
		return nil, fmt.Errorf("%s: reader is nil: %w", op, oauth.ErrNilParameter)
	}
	dec := yaml.NewDecoder(io.LimitReader(r, maxDocumentSize))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: document is empty: %w", op, oauth.ErrInvalidParameter)
		}
		return nil, fmt.Errorf("%s: unable to decode: %w: %w", op, oauth.ErrInvalidParameter, err)
	}

	names := make([]string, 0, len(doc.Providers))
	for name := range doc.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs *multierror.Error
	reg := make(oauth.Registry, len(names))
	for _, name := range names {
		e := doc.Providers[name]
		switch {
		case name == "":
			errs = multierror.Append(errs, fmt.Errorf("provider name is empty: %w", oauth.ErrInvalidParameter))
			continue
		case e == nil:
			errs = multierror.Append(errs, fmt.Errorf("%s: entry is empty: %w", name, oauth.ErrInvalidParameter))
			continue
		}
		md := e.metadata()
		if err := md.Validate(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		reg[oauth.ProviderID(name)] = md
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reg, nil
}

// LoadFile is Load for the file at path.
func LoadFile(path string) (oauth.Registry, error) {
	const op = "providers.LoadFile"
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()
	reg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, path, err)
	}
	return reg, nil
}

func (e *entry) metadata() *oauth.Metadata {
	md := &oauth.Metadata{
		AuthorizationURL:    oauth.URLTemplate(e.AuthorizationURL),
		AuthorizationParams: e.AuthorizationParams,
		Token: oauth.TokenEndpoint{
			URL:               oauth.URLTemplate(e.Token.URL),
			AuthIn:            oauth.AuthPlacement(e.Token.AuthIn),
			Encoding:          oauth.Encoding(e.Token.Encoding),
			Params:            e.Token.Params,
			RefreshParams:     e.Token.RefreshParams,
			Assertion:         oauth.ClientAssertion(e.Token.Assertion),
			AssertionAudience: e.Token.AssertionAudience,
		},
		PKCE:           oauth.ChallengeMethod(e.PKCE),
		OIDC:           e.OIDC,
		Issuer:         e.Issuer,
		Refreshable:    e.Refreshable,
		ScopeRequired:  e.ScopeRequired,
		DefaultScopes:  e.DefaultScopes,
		ScopeSeparator: e.ScopeSeparator,
	}
	if r := e.Revocation; r != nil {
		md.Revocation = &oauth.Revocation{
			URL:            oauth.URLTemplate(r.URL),
			TokenIn:        oauth.AuthPlacement(r.TokenIn),
			CredentialsIn:  oauth.AuthPlacement(r.CredentialsIn),
			Encoding:       oauth.Encoding(r.Encoding),
			TokenParamName: r.TokenParamName,
			Params:         r.Params,
		}
	}
	if p := e.Profile; p != nil {
		md.Profile = &oauth.ProfileRequest{
			URL:    oauth.URLTemplate(p.URL),
			Method: p.Method,
			AuthIn: oauth.AuthPlacement(p.AuthIn),
			Params: p.Params,
			Body:   p.Body,
		}
		if len(p.Headers) > 0 {
			md.Profile.Headers = oauth.HeaderMap(p.Headers)
		}
	}
	return md
}
