package domain

import (
	"github.com/allisson/pseudonyms/internal/errors"
)

// ErrSignatureInvalid indicates an audit event whose signature does not verify.
var ErrSignatureInvalid = errors.Wrap(errors.ErrInvalidInput, "audit event signature is invalid")
