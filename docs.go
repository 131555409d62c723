// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// capoauth is a provider agnostic OAuth 2.0 and OIDC client engine. A single
// metadata schema describes each provider's endpoints and quirks, and one
// engine derives every request from it.
//
// See the oauth package.
package capoauth
