// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package clientassertion signs JWTs with a private key or client secret for
// use as an RFC 7523 client_assertion (private_key_jwt, client_secret_jwt),
// or as a short lived client secret for providers that want one in place of
// a static secret.
//
// Example usage:
//
//	j, err := clientassertion.NewJWTWithRSAKey("client-id", []string{"audience"},
//		clientassertion.RS256, rsaPrivateKey,
//		clientassertion.WithKeyID("jwks-key-id-or-x5t-etc"),
//	)
//	jwtString, err := j.Serialize()
package clientassertion
