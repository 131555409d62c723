// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package oauth is a provider agnostic OAuth 2.0 / OIDC client engine.

Given Metadata describing a provider's endpoints and quirks, and the
Credentials of a client registered with it, a Client drives the
authorization code grant (with optional PKCE), token refresh, token
revocation and profile requests. Provider differences (where client
credentials go, how bodies are encoded, where a revoked token is placed,
whether scope is mandatory) are all data in the Metadata; there are no
per provider branches in the engine.

Primary types provided by the package

* Metadata: the declarative description of one provider. Endpoint URLs are
either static or derived from the Credentials (see URLTemplate).

* Credentials: a client id, a PublicClient or ConfidentialClient, an
optional redirect URI and provider specific extras such as a tenant or a
signing key.

* Client: exposes CreateAuthorizationURL, ValidateAuthorizationCode,
RefreshAccessToken, RevokeToken and FetchUserProfile for one Metadata and
Credentials pair.

* TokenResponse: a decoded token endpoint response.

* Registry: a table of Metadata keyed by ProviderID, with the IsPKCE,
IsRefreshable, IsRevocable, IsOIDC and RequiresScope predicates. See the
providers package for loading one from YAML.

Errors

Every error matches one of ErrConfiguration, ErrProtocol or ErrTransport
with errors.Is. Configuration errors are returned before any request is
sent. Protocol errors are *OAuth2Error values, and transport errors that
carry a response are *UnexpectedResponseError or *ProfileError values.

The engine is stateless. Callers persist the state and PKCE code verifier
between CreateAuthorizationURL and ValidateAuthorizationCode; see NewState
and NewCodeVerifier.
*/
package oauth
