package prover

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"

	"github.com/sszkp-labs/sszkp/air"
	"github.com/sszkp-labs/sszkp/domain"
	"github.com/sszkp-labs/sszkp/errs"
	"github.com/sszkp-labs/sszkp/pcs"
)

// blowup is the extended-coset size factor used to evaluate the
// composed constraint polynomial T away from H, where Z_H is
// invertible (spec §4.5 P3: "evaluations on an extended coset
// (blowup ≥ 2·deg(T)/N)"). Chosen generously for the gate shapes this
// package's Evaluator contract admits.
const blowup = 4

// cosetEvaluate evaluates the polynomial given by coeffs (length <=
// ext.Cardinality, zero-padded) at every point g·ω_ext^j for j in
// [0, ext.Cardinality), via the standard "multiply by powers of the
// coset shift, then run a plain FFT" trick — avoids depending on a
// coset-specific FFT option name.
func cosetEvaluate(ext *fft.Domain, coeffs []fr.Element) []fr.Element {
	size := int(ext.Cardinality)
	a := make([]fr.Element, size)
	copy(a, coeffs)
	var shift fr.Element
	shift.SetOne()
	for i := 0; i < size; i++ {
		a[i].Mul(&a[i], &shift)
		shift.Mul(&shift, &ext.FrMultiplicativeGen)
	}
	ext.FFT(a, fft.DIF)
	fft.BitReverse(a)
	return a
}

// cosetInterpolate is cosetEvaluate's inverse: given evaluations on
// the coset support, recovers the size-ext.Cardinality coefficient
// vector.
func cosetInterpolate(ext *fft.Domain, evals []fr.Element) []fr.Element {
	size := int(ext.Cardinality)
	a := make([]fr.Element, size)
	copy(a, evals)
	ext.FFTInverse(a, fft.DIF)
	fft.BitReverse(a)

	var shiftInv, cur fr.Element
	shiftInv.Inverse(&ext.FrMultiplicativeGen)
	cur.SetOne()
	for i := 0; i < size; i++ {
		a[i].Mul(&a[i], &cur)
		cur.Mul(&cur, &shiftInv)
	}
	return a
}

// cosetPoints returns g·ω_ext^j for j in [0, ext.Cardinality), the
// actual field points cosetEvaluate's output slots correspond to.
func cosetPoints(ext *fft.Domain) []fr.Element {
	size := int(ext.Cardinality)
	pts := make([]fr.Element, size)
	pts[0].Set(&ext.FrMultiplicativeGen)
	for j := 1; j < size; j++ {
		pts[j].Mul(&pts[j-1], &ext.Generator)
	}
	return pts
}

// toCoset inverse-DFTs a length-N evaluation-basis column to
// coefficients, zero-pads to the extended domain size, and evaluates
// it on the coset.
func toCoset(d *domain.Domain, ext *fft.Domain, col []fr.Element) ([]fr.Element, error) {
	coeffs, err := pcs.ToCoefficients(pcs.Evaluation, col, d)
	if err != nil {
		return nil, err
	}
	padded := make([]fr.Element, ext.Cardinality)
	copy(padded, coeffs)
	return cosetEvaluate(ext, padded), nil
}

// buildQuotient computes Q = T / Z_H on an extended coset and returns
// its coefficients truncated to N terms (spec §4.5 P3). Truncating to
// N coefficients keeps the proof's single-Q-commitment shape (spec
// §3's data model); see DESIGN.md for the accompanying degree-bound
// note.
func buildQuotient(d *domain.Domain, spec *air.Spec, evaluator air.Evaluator, columns [][]fr.Element, z []fr.Element, beta, gamma, alpha fr.Element) ([]fr.Element, error) {
	n := d.N
	extN := blowup * n
	ext := fft.NewDomain(extN)
	points := cosetPoints(ext)

	k := spec.K
	wireCosets := make([][]fr.Element, k)
	for c := 0; c < k; c++ {
		cs, err := toCoset(d, ext, columns[c])
		if err != nil {
			return nil, err
		}
		wireCosets[c] = cs
	}

	selectorCosets := make([][]fr.Element, len(spec.Selectors))
	for i, sel := range spec.Selectors {
		cs, err := toCoset(d, ext, sel)
		if err != nil {
			return nil, err
		}
		selectorCosets[i] = cs
	}

	hasPerm := spec.HasPermutation() && z != nil
	var zCoset []fr.Element
	var idCosets, sigmaCosets [][]fr.Element
	var l1Coset []fr.Element
	if hasPerm {
		var err error
		zCoset, err = toCoset(d, ext, z)
		if err != nil {
			return nil, err
		}
		support := air.IdentitySupport(d, k)
		sigmaPolys := air.PermutationPolynomials(spec, d)
		idCosets = make([][]fr.Element, k)
		sigmaCosets = make([][]fr.Element, k)
		for c := 0; c < k; c++ {
			idCol := support[uint64(c)*n : uint64(c)*n+n]
			cs, err := toCoset(d, ext, idCol)
			if err != nil {
				return nil, err
			}
			idCosets[c] = cs

			cs2, err := toCoset(d, ext, sigmaPolys[c])
			if err != nil {
				return nil, err
			}
			sigmaCosets[c] = cs2
		}

		e0 := make([]fr.Element, n)
		e0[0].SetOne()
		var err2 error
		l1Coset, err2 = toCoset(d, ext, e0)
		if err2 != nil {
			return nil, err2
		}
	}

	var alpha2, alpha3 fr.Element
	alpha2.Square(&alpha)
	alpha3.Mul(&alpha2, &alpha)

	tEvals := make([]fr.Element, extN)
	for j := uint64(0); j < extN; j++ {
		nextJ := (j + uint64(blowup)) % extN

		cur := make([]fr.Element, k)
		next := make([]fr.Element, k)
		for c := 0; c < k; c++ {
			cur[c] = wireCosets[c][j]
			next[c] = wireCosets[c][nextJ]
		}
		sel := make([]fr.Element, len(selectorCosets))
		for i := range selectorCosets {
			sel[i] = selectorCosets[i][j]
		}

		res := evaluator(air.Window{Cur: cur, Next: next, Selectors: sel})

		t := res.Gates
		if hasPerm {
			// permutation_constraint = Z(ωX)·Π(w_c+β·σ_c+γ) − Z(X)·Π(w_c+β·id_c+γ)
			var numProd, denProd fr.Element
			numProd.SetOne()
			denProd.SetOne()
			for c := 0; c < k; c++ {
				var idTerm fr.Element
				idTerm.Mul(&beta, &idCosets[c][j])
				idTerm.Add(&idTerm, &cur[c])
				idTerm.Add(&idTerm, &gamma)
				numProd.Mul(&numProd, &idTerm)

				var sigmaTerm fr.Element
				sigmaTerm.Mul(&beta, &sigmaCosets[c][j])
				sigmaTerm.Add(&sigmaTerm, &cur[c])
				sigmaTerm.Add(&sigmaTerm, &gamma)
				denProd.Mul(&denProd, &sigmaTerm)
			}
			var lhs, rhs, permTerm fr.Element
			lhs.Mul(&zCoset[nextJ], &denProd)
			rhs.Mul(&zCoset[j], &numProd)
			permTerm.Sub(&lhs, &rhs)

			var scaledPerm fr.Element
			scaledPerm.Mul(&alpha, &permTerm)
			t.Add(&t, &scaledPerm)

			// Z(1) = 1, enforced via L1·(Z-1), weighted by α³.
			var zMinusOne, l1Term fr.Element
			zMinusOne.Sub(&zCoset[j], new(fr.Element).SetOne())
			l1Term.Mul(&l1Coset[j], &zMinusOne)
			l1Term.Mul(&l1Term, &alpha3)
			t.Add(&t, &l1Term)
		}

		var scaledBoundary fr.Element
		scaledBoundary.Mul(&alpha2, &res.Boundary)
		t.Add(&t, &scaledBoundary)

		tEvals[j] = t
	}

	nBig := new(big.Int).SetUint64(n)
	zhInv := make([]fr.Element, extN)
	for j := uint64(0); j < extN; j++ {
		var zh fr.Element
		zh.Exp(points[j], nBig)
		zh.Sub(&zh, &d.C)
		if zh.IsZero() {
			return nil, errs.New(errs.ConstraintUnsatisfied, "vanishing polynomial evaluates to zero on the extended coset")
		}
		zhInv[j].Inverse(&zh)
	}
	for j := uint64(0); j < extN; j++ {
		tEvals[j].Mul(&tEvals[j], &zhInv[j])
	}

	qCoeffs := cosetInterpolate(ext, tEvals)
	return qCoeffs[:n], nil
}
