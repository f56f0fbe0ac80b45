// Package opid assigns each executing operation a random identifier
// carried through its context, so event subscribers can correlate the
// start and finish of the same operation.
package opid

import (
	"context"
	"math/rand/v2"
)

// key is the context key for the operation ID.
type key struct{}

// NewContext returns a copy of parent with a new random operation ID
// stored. It also returns the generated ID.
func NewContext(parent context.Context) (context.Context, int64) {
	id := rand.Int64()
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the operation ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(key{})
	id, ok := v.(int64)
	return id, ok
}
