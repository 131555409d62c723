// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"fmt"
	"sort"
)

// ProviderID identifies a provider within a Registry. Lookups are exact;
// "github" and "GitHub" are different providers.
type ProviderID string

// Registry is a metadata table keyed by provider. It's configuration data
// supplied by the caller, see the providers package for loading one.
type Registry map[ProviderID]*Metadata

// Lookup returns the metadata for id.
func (r Registry) Lookup(id ProviderID) (*Metadata, bool) {
	md, ok := r[id]
	return md, ok && md != nil
}

// IDs returns the registered providers, sorted.
func (r Registry) IDs() []ProviderID {
	ids := make([]ProviderID, 0, len(r))
	for id, md := range r {
		if md != nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ParseProviderID returns s as a ProviderID if it's registered.
func ParseProviderID(s string, r Registry) (ProviderID, error) {
	const op = "oauth.ParseProviderID"
	id := ProviderID(s)
	if _, ok := r.Lookup(id); !ok {
		return "", fmt.Errorf("%s: %q: %w", op, s, ErrUnknownProvider)
	}
	return id, nil
}

// Each predicate is false for providers missing from the registry.

// IsPKCE reports whether the provider uses PKCE.
func IsPKCE(id ProviderID, r Registry) bool {
	md, ok := r.Lookup(id)
	return ok && md.PKCE.Enabled()
}

// IsRefreshable reports whether the provider supports the refresh_token grant.
func IsRefreshable(id ProviderID, r Registry) bool {
	md, ok := r.Lookup(id)
	return ok && md.Refreshable
}

// IsRevocable reports whether the provider has a revocation endpoint.
func IsRevocable(id ProviderID, r Registry) bool {
	md, ok := r.Lookup(id)
	return ok && md.Revocation != nil
}

// IsOIDC reports whether the provider is an OpenID Connect provider.
func IsOIDC(id ProviderID, r Registry) bool {
	md, ok := r.Lookup(id)
	return ok && md.OIDC
}

// RequiresScope reports whether the provider rejects an empty scope.
func RequiresScope(id ProviderID, r Registry) bool {
	md, ok := r.Lookup(id)
	return ok && md.ScopeRequired
}
