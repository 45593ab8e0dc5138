package rng

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Seed is either an integer or a string. String seeds are hashed with
// Hash32 when a generator is built from them.
type Seed struct {
	num      int64
	str      string
	isString bool
}

// IntSeed returns an integer seed.
func IntSeed(n int64) Seed {
	return Seed{num: n}
}

// StringSeed returns a string seed.
func StringSeed(s string) Seed {
	return Seed{str: s, isString: true}
}

// IsString reports whether the seed was given as a string.
func (s Seed) IsString() bool {
	return s.isString
}

// String renders the seed for logs and derivation keys.
func (s Seed) String() string {
	if s.isString {
		return s.str
	}
	return strconv.FormatInt(s.num, 10)
}

// Derive returns the seed of a sub-stream identified by key, e.g. one
// stream per region keyed by region id.
func Derive(seed Seed, key string) Seed {
	return StringSeed(seed.String() + ":" + key)
}

// UnmarshalYAML accepts `seed: 42` as an integer seed and any other scalar
// as a string seed.
func (s *Seed) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("seed must be a scalar, got yaml kind %d", node.Kind)
	}
	if node.ShortTag() == "!!int" {
		n, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("parsing integer seed %q: %w", node.Value, err)
		}
		*s = IntSeed(n)
		return nil
	}
	*s = StringSeed(node.Value)
	return nil
}

// MarshalYAML keeps integer seeds numeric.
func (s Seed) MarshalYAML() (any, error) {
	if s.isString {
		return s.str, nil
	}
	return s.num, nil
}
