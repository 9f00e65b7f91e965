package prover

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/sszkp-labs/sszkp/air"
	"github.com/sszkp-labs/sszkp/domain"
	"github.com/sszkp-labs/sszkp/errs"
)

// buildGrandProduct computes the Lagrange-basis evaluations (over H)
// of the PLONK permutation grand product Z, generalizing the
// three-column L/R/O identity to k arbitrary columns:
//
//	Z(1) = 1
//	Z(ω^{i+1}) = Z(ω^i) · Π_c (w_c(ω^i) + β·id_c(ω^i) + γ)
//	                     / Π_c (w_c(ω^i) + β·σ_c(ω^i) + γ)
//
// grounded on gnark's computePermutationPolynomials/buildPermutation
// (backend/plonk/bls12-377/setup.go) paired with the standard PLONK
// grand-product recurrence.
func buildGrandProduct(d *domain.Domain, spec *air.Spec, columns [][]fr.Element, beta, gamma fr.Element) ([]fr.Element, error) {
	n := int(d.N)
	k := spec.K

	support := air.IdentitySupport(d, k)
	sigmaPolys := air.PermutationPolynomials(spec, d)

	z := make([]fr.Element, n)
	z[0].SetOne()
	for i := 0; i < n-1; i++ {
		var num, den fr.Element
		num.SetOne()
		den.SetOne()
		for c := 0; c < k; c++ {
			var idTerm fr.Element
			idTerm.Mul(&beta, &support[uint64(c)*d.N+uint64(i)])
			idTerm.Add(&idTerm, &columns[c][i])
			idTerm.Add(&idTerm, &gamma)
			num.Mul(&num, &idTerm)

			var sigmaTerm fr.Element
			sigmaTerm.Mul(&beta, &sigmaPolys[c][i])
			sigmaTerm.Add(&sigmaTerm, &columns[c][i])
			sigmaTerm.Add(&sigmaTerm, &gamma)
			den.Mul(&den, &sigmaTerm)
		}
		if den.IsZero() {
			return nil, errs.New(errs.ConstraintUnsatisfied, "permutation grand product: zero denominator")
		}
		var inv, ratio fr.Element
		inv.Inverse(&den)
		ratio.Mul(&num, &inv)
		z[i+1].Mul(&z[i], &ratio)
	}
	return z, nil
}
