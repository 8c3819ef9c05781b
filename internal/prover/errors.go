package prover

import "errors"

// ErrNoMatch is returned internally when a reconstructed pair of values
// fails the matching relation in both orderings — a corrupt plot file or
// a bug in park reconstruction, never an expected outcome for a
// genuinely produced plot.
var ErrNoMatch = errors.New("prover: reconstructed pair does not match in either order")
