package domain_test

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/sszkp-labs/sszkp/domain"
	"github.com/sszkp-labs/sszkp/errs"
)

func TestNew_PowerOfTwoAndRootOfUnity(t *testing.T) {
	for _, rows := range []uint64{0, 1, 2, 3, 4, 5, 1000, 1024, 1025} {
		d, err := domain.New(rows)
		require.NoError(t, err, "rows=%d", rows)
		require.True(t, d.N&(d.N-1) == 0, "N must be a power of two, got %d", d.N)
		require.GreaterOrEqual(t, d.N, rows)

		var lhs fr.Element
		lhs.Exp(d.Omega, new(big.Int).SetUint64(d.N))
		require.True(t, lhs.IsOne())

		if d.N >= 2 {
			var half fr.Element
			half.Exp(d.Omega, new(big.Int).SetUint64(d.N/2))
			require.False(t, half.IsOne())
		}
	}
}

func TestNew_ZeroC(t *testing.T) {
	var zero fr.Element
	_, err := domain.New(8, domain.WithVanishingConstant(zero))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.InvalidDomain))
}

func TestNew_CosetC(t *testing.T) {
	var seven fr.Element
	seven.SetUint64(7)
	d, err := domain.New(8, domain.WithVanishingConstant(seven))
	require.NoError(t, err)
	require.True(t, d.C.Equal(&seven))
}

func TestDigest_Stable(t *testing.T) {
	d1, err := domain.New(16)
	require.NoError(t, err)
	d2, err := domain.New(16)
	require.NoError(t, err)
	require.Equal(t, d1.Digest(), d2.Digest())

	d3, err := domain.New(32)
	require.NoError(t, err)
	require.NotEqual(t, d1.Digest(), d3.Digest())
}

// Property 7: domain correctness for any N in a wide range.
func TestProperty_DomainCorrectness(t *testing.T) {
	props := gopter.NewProperties(nil)

	props.Property("omega has exact order N for arbitrary row counts", prop.ForAll(
		func(rows uint64) bool {
			d, err := domain.New(rows)
			if err != nil {
				return false
			}
			var lhs fr.Element
			lhs.Exp(d.Omega, new(big.Int).SetUint64(d.N))
			if !lhs.IsOne() {
				return false
			}
			if d.N < 2 {
				return true
			}
			var half fr.Element
			half.Exp(d.Omega, new(big.Int).SetUint64(d.N/2))
			return !half.IsOne()
		},
		gen.UInt64Range(1, 1<<16),
	))

	props.TestingRun(t)
}
