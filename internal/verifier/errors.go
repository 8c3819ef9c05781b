package verifier

import "errors"

// ErrInvalidValue is returned when a proof or challenge is malformed —
// wrong length, or an x value wider than k bits.
var ErrInvalidValue = errors.New("verifier: invalid value")
