// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

// TestGenerateKeys returns a new pem-encoded ECDSA P-256 key pair.
func TestGenerateKeys(t *testing.T) (pub, priv string) {
	t.Helper()
	require := require.New(t)
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(err)

	privDER, err := x509.MarshalECPrivateKey(k)
	require.NoError(err)
	pubDER, err := x509.MarshalPKIXPublicKey(k.Public())
	require.NoError(err)

	pub = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	priv = string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privDER}))
	return pub, priv
}

// TestParsePrivateKey parses a pem-encoded ECDSA private key, such as the
// one returned by TestGenerateKeys.
func TestParsePrivateKey(t *testing.T, ecdsaPrivKeyPEM string) *ecdsa.PrivateKey {
	t.Helper()
	require := require.New(t)
	block, _ := pem.Decode([]byte(ecdsaPrivKeyPEM))
	require.NotNil(block)
	key, err := x509.ParseECPrivateKey(block.Bytes)
	require.NoError(err)
	return key
}

// TestSigningKey returns an ES256 credential signing key for client
// assertions, identified by keyID.
func TestSigningKey(t *testing.T, keyID string) *SigningKey {
	t.Helper()
	_, priv := TestGenerateKeys(t)
	return &SigningKey{
		Key:   TestParsePrivateKey(t, priv),
		Alg:   string(jose.ES256),
		KeyID: keyID,
	}
}

// TestSignJWT signs claims, plus any privateClaims, as an ES256 JWT with the
// pem-encoded ECDSA key. The TestProvider uses it to mint id_tokens.
func TestSignJWT(t *testing.T, ecdsaPrivKeyPEM string, claims jwt.Claims, privateClaims interface{}) string {
	t.Helper()
	require := require.New(t)
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: TestParsePrivateKey(t, ecdsaPrivKeyPEM)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(err)

	b := jwt.Signed(sig).Claims(claims)
	if privateClaims != nil {
		b = b.Claims(privateClaims)
	}
	raw, err := b.Serialize()
	require.NoError(err)
	return raw
}
