// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package clientassertion

import (
	"crypto/elliptic"
	"crypto/rsa"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHSAlgorithm_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		alg     HSAlgorithm
		secret  string
		wantErr error
	}{
		{alg: HS256, secret: strings.Repeat("a", 32)},
		{alg: HS384, secret: strings.Repeat("a", 48)},
		{alg: HS512, secret: strings.Repeat("a", 64)},
		{alg: HS256, secret: strings.Repeat("a", 31), wantErr: ErrInvalidSecretLength},
		{alg: HS384, secret: strings.Repeat("a", 47), wantErr: ErrInvalidSecretLength},
		{alg: HS512, secret: strings.Repeat("a", 63), wantErr: ErrInvalidSecretLength},
		{alg: HS256, wantErr: ErrInvalidSecretLength},
		{alg: "HS1", secret: strings.Repeat("a", 64), wantErr: ErrUnsupportedAlgorithm},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.alg), func(t *testing.T) {
			t.Parallel()
			err := tt.alg.Validate(tt.secret)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRSAlgorithm_Validate(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	key := testRSAKey(t)
	for _, a := range []RSAlgorithm{RS256, RS384, RS512} {
		assert.NoError(a.Validate(key), a)
	}
	assert.ErrorIs(RS256.Validate(nil), ErrNilPrivateKey)
	assert.ErrorIs(RSAlgorithm("ES256").Validate(key), ErrUnsupportedAlgorithm)
	assert.Error(RS256.Validate(&rsa.PrivateKey{}))
}

func TestESAlgorithm_Validate(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	p256 := testECDSAKey(t, elliptic.P256())
	p384 := testECDSAKey(t, elliptic.P384())
	p521 := testECDSAKey(t, elliptic.P521())

	assert.NoError(ES256.Validate(p256))
	assert.NoError(ES384.Validate(p384))
	assert.NoError(ES512.Validate(p521))

	assert.ErrorIs(ES256.Validate(p384), ErrUnsupportedAlgorithm)
	assert.ErrorIs(ES512.Validate(p256), ErrUnsupportedAlgorithm)
	assert.ErrorIs(ESAlgorithm("RS256").Validate(p256), ErrUnsupportedAlgorithm)
	assert.ErrorIs(ES256.Validate(nil), ErrNilPrivateKey)
}
