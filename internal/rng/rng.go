// Package rng provides the deterministic pseudo-random generator used by all
// planners. Every stream is built from an explicit Seed; nothing in this
// module draws from ambient randomness.
package rng

import (
	"errors"
	"math"
)

// ErrEmptyInput is returned by Pick when the input slice is empty.
var ErrEmptyInput = errors.New("empty input")

const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619

	// zeroStateSeed replaces a zero seed so the stream never starts degenerate.
	zeroStateSeed uint32 = 0x6D2B79F5

	mulberryIncrement uint32 = 0x6D2B79F5
)

// Rand is a mulberry32 generator. Not safe for concurrent use: each planning
// unit owns its own instance.
type Rand struct {
	state uint32
}

// New creates a generator for seed.
func New(seed Seed) *Rand {
	var state uint32
	if seed.isString {
		state = uint32(Hash32(seed.str))
	} else {
		state = uint32(seed.num)
	}
	if state == 0 {
		state = zeroStateSeed
	}
	return &Rand{state: state}
}

// NewInt is shorthand for New(IntSeed(n)).
func NewInt(n int64) *Rand {
	return New(IntSeed(n))
}

// NewString is shorthand for New(StringSeed(s)).
func NewString(s string) *Rand {
	return New(StringSeed(s))
}

// Next returns the next float in [0, 1).
func (r *Rand) Next() float64 {
	r.state += mulberryIncrement
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Int returns an integer in [min, max] inclusive; min is returned when
// max < min.
func (r *Rand) Int(min, max int) int {
	if max < min {
		return min
	}
	return min + int(math.Floor(r.Next()*float64(max-min+1)))
}

// Bool returns true with probability pTrue.
func (r *Rand) Bool(pTrue float64) bool {
	return r.Next() < pTrue
}

// Pick returns a uniformly chosen element of items.
func Pick[T any](r *Rand, items []T) (T, error) {
	if len(items) == 0 {
		var zero T
		return zero, ErrEmptyInput
	}
	return items[r.Int(0, len(items)-1)], nil
}

// Shuffle returns a Fisher-Yates shuffled copy of items. The input is not
// modified.
func Shuffle[T any](r *Rand, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := r.Int(0, i)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Hash32 is FNV-1a over the bytes of s, folded to a signed 32-bit integer.
func Hash32(s string) int32 {
	h := fnvOffsetBasis
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return int32(h)
}
