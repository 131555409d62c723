// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package providers loads provider metadata tables, kept as YAML data
// rather than code, into an oauth.Registry.
package providers
