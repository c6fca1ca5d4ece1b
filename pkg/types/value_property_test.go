package types

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_NumericCompare checks that Int and Float compare on the
// widened value regardless of which variant holds it.
func TestProperty_NumericCompare(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Compare is antisymmetric for Int/Float", prop.ForAll(
		func(a int64, b float64) bool {
			ab, ok1 := Compare(Int(a), Float(b))
			ba, ok2 := Compare(Float(b), Int(a))
			return ok1 && ok2 && ab == -ba
		},
		gen.Int64Range(-1<<40, 1<<40),
		gen.Float64Range(-1e12, 1e12),
	))

	properties.Property("AsFloat widens Int without loss in range", prop.ForAll(
		func(a int64) bool {
			f, ok := AsFloat(Int(a))
			return ok && int64(f) == a
		},
		gen.Int64Range(-1<<52, 1<<52),
	))

	properties.Property("kind names parse back to the same kind", prop.ForAll(
		func(code uint32) bool {
			k := Kind(code)
			parsed, err := ParseKind(k.String())
			return err == nil && parsed == k
		},
		gen.UInt32Range(1, 4),
	))

	properties.TestingRun(t)
}
