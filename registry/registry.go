// Package registry implements the first-match-wins provider selection
// described in spec §4.4: the Package and Service endpoints each try a
// fixed, ordered list of candidate providers and pick the first whose
// availability predicate holds for the current host. The Command endpoint
// has a single provider (command.Spawn) and does not go through Select.
//
// It is grounded on the shape repeated across the original source's three
// provider::mod.rs factory() functions (command/providers/mod.rs,
// package/providers/mod.rs, service/providers/mod.rs) — each an
// if/else-if chain over Provider::available() — collapsed here into one
// generic helper so the Package and Service endpoints share a single,
// tested selection algorithm instead of re-deriving it per endpoint.
package registry

import "github.com/petehayes102/hostagent/hosterrors"

// Candidate pairs a provider's availability predicate with its factory.
// Available is called in list order; the first true wins.
type Candidate[T any] struct {
	Name      string
	Available func() bool
	New       func() T
}

// Select returns the provider built by the first candidate whose
// Available predicate holds, or a hosterrors.ProviderUnavailable error
// naming endpoint if none match.
func Select[T any](endpoint string, candidates []Candidate[T]) (T, error) {
	for _, c := range candidates {
		if c.Available() {
			return c.New(), nil
		}
	}
	var zero T
	return zero, hosterrors.NewProviderUnavailable(endpoint)
}
