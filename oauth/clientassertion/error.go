// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package clientassertion

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAssertion is the root of every error caused by how a JWT
	// was configured: a missing claim, a bad key or an unusable algorithm.
	ErrInvalidAssertion = errors.New("invalid client assertion")

	// ErrSigning is the root of every error raised while signing a JWT that
	// was otherwise valid.
	ErrSigning = errors.New("client assertion signing failed")

	ErrMissingClientID    = fmt.Errorf("missing client ID: %w", ErrInvalidAssertion)
	ErrMissingAudience    = fmt.Errorf("missing audience: %w", ErrInvalidAssertion)
	ErrMissingAlgorithm   = fmt.Errorf("missing signing algorithm: %w", ErrInvalidAssertion)
	ErrMissingKeyOrSecret = fmt.Errorf("missing private key or client secret: %w", ErrInvalidAssertion)
	ErrBothKeyAndSecret   = fmt.Errorf("both private key and client secret provided: %w", ErrInvalidAssertion)
	ErrInvalidExpiresIn   = fmt.Errorf("expires in must be greater than zero: %w", ErrInvalidAssertion)

	// A JWT built with &JWT{} instead of NewJWT has no id generator or clock.
	ErrMissingFuncIDGenerator = fmt.Errorf("missing id generator, use NewJWT: %w", ErrInvalidAssertion)
	ErrMissingFuncNow         = fmt.Errorf("missing now func, use NewJWT: %w", ErrInvalidAssertion)

	ErrUnsupportedAlgorithm = fmt.Errorf("unsupported algorithm: %w", ErrInvalidAssertion)
	ErrInvalidSecretLength  = fmt.Errorf("invalid secret length for algorithm: %w", ErrInvalidAssertion)
	ErrNilPrivateKey        = fmt.Errorf("nil private key: %w", ErrInvalidAssertion)
	ErrUnsupportedKeyType   = fmt.Errorf("unsupported key type: %w", ErrInvalidAssertion)

	ErrCreatingSigner = fmt.Errorf("unable to create jwt signer: %w", ErrSigning)
)
