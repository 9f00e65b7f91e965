// Package verifier implements the verify-side scheduler of spec §4.6:
// parse the on-wire proof, check its shape, replay the Fiat-Shamir
// transcript in lockstep with the prover, recompute the expected
// evaluation of the composed constraint polynomial at ζ, and finish
// with one batched KZG pairing check.
package verifier

import (
	"context"
	"hash"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/blake2b"

	"github.com/sszkp-labs/sszkp/air"
	"github.com/sszkp-labs/sszkp/domain"
	"github.com/sszkp-labs/sszkp/errs"
	"github.com/sszkp-labs/sszkp/internal/log"
	"github.com/sszkp-labs/sszkp/pcs"
	"github.com/sszkp-labs/sszkp/proof"
	"github.com/sszkp-labs/sszkp/transcript"
)

// Phase mirrors spec §4.8: Parsed → ShapeOk → ReplayedTranscript →
// BatchedPairingOk → Accepted. Any failure yields a Reject(reason)
// error, never a panic — unlike the prover/transcript state machines,
// these transitions are all data-driven.
type Phase int

const (
	PhaseParsed Phase = iota
	PhaseShapeOk
	PhaseReplayedTranscript
	PhaseBatchedPairingOk
	PhaseAccepted
)

// Verifier borrows an AIR, domain, and PCS params for exactly one
// verify call, mirroring prover.Prover.
type Verifier struct {
	Domain    *domain.Domain
	Air       *air.Spec
	Pcs       *pcs.Params
	Evaluator air.Evaluator

	// HashFactory mirrors prover.Prover.HashFactory; must match the
	// hash the proof was produced with.
	HashFactory func() hash.Hash

	phase      Phase
	sigmaCoeff [][]fr.Element
}

// New builds a Verifier over d/a/p.
func New(d *domain.Domain, a *air.Spec, p *pcs.Params) *Verifier {
	return &Verifier{Domain: d, Air: a, Pcs: p, Evaluator: air.Zero}
}

func (v *Verifier) hashFunc() hash.Hash {
	if v.HashFactory != nil {
		return v.HashFactory()
	}
	h, _ := blake2b.New256(nil)
	return h
}

// Verify reads a proof container from r and runs the full verify
// pipeline, returning nil only on full acceptance.
func (v *Verifier) Verify(ctx context.Context, r io.Reader) error {
	pf, err := proof.Read(r)
	if err != nil {
		return err
	}
	return v.VerifyProof(ctx, pf)
}

// VerifyProof runs the pipeline over an already-parsed Proof.
func (v *Verifier) VerifyProof(ctx context.Context, pf *proof.Proof) error {
	logger := log.Logger()
	v.phase = PhaseParsed

	if err := pf.Validate(); err != nil {
		return err
	}
	if pf.Header.K != uint32(v.Air.K) {
		return errs.New(errs.ProofShapeMismatch, "proof k does not match this AIR")
	}
	if pf.Header.DomainN != v.Domain.N || !pf.Header.DomainOmega.Equal(&v.Domain.Omega) || !pf.Header.ZhC.Equal(&v.Domain.C) {
		return errs.New(errs.ProofShapeMismatch, "proof domain does not match this verifier's domain")
	}
	if pf.Header.BasisWires != byte(v.Pcs.Basis) {
		return errs.New(errs.ProofShapeMismatch, "proof wire basis does not match this verifier's PCS params")
	}
	if v.Air.HasPermutation() != (pf.ZComm != nil) {
		return errs.New(errs.ProofShapeMismatch, "proof permutation presence does not match this AIR")
	}
	// Whenever a permutation argument is present, Q(X) was built
	// against the true Z(ωX) (buildQuotient always steps the grand
	// product forward), so a proof carrying Z but not its shifted
	// opening could never have been soundly constructed.
	if (pf.ZComm != nil) && !pf.ShiftedZ() {
		return errs.New(errs.ProofShapeMismatch, "proof with a permutation argument must carry a shifted-Z opening")
	}
	v.phase = PhaseShapeOk

	if v.Pcs.Srs == nil || !v.Pcs.Srs.Ready() {
		return errs.New(errs.SrsNotLoaded, "SRS not loaded")
	}
	if pf.Header.SrsG1Digest != v.Pcs.Srs.G1Digest() || pf.Header.SrsG2Digest != v.Pcs.Srs.G2Digest() {
		return errs.New(errs.SrsMismatch, "proof was produced against a different SRS")
	}

	tr := transcript.New(v.hashFunc())
	tr.AbsorbPublicHeader(v.Domain.Digest(), uint32(v.Air.K), v.Air.SelectorsDigest(), v.Pcs.Srs.G1Digest(), v.Pcs.Srs.G2Digest(), byte(v.Pcs.Basis))
	tr.AbsorbWireCommitments(pf.WireComms)

	var beta, gamma fr.Element
	if v.Air.HasPermutation() {
		beta, gamma = tr.SqueezeBetaGamma()
		tr.AbsorbZ(*pf.ZComm)
	} else {
		tr.SkipPermutation()
	}
	alpha := tr.SqueezeAlpha()
	tr.AbsorbQ(pf.QComm)
	zeta := tr.SqueezeZeta()
	batchV := tr.SqueezeV()

	k := v.Air.K
	expectedPoints := make([]fr.Element, 0, k+3)
	for c := 0; c < k; c++ {
		expectedPoints = append(expectedPoints, zeta)
	}
	if v.Air.HasPermutation() {
		expectedPoints = append(expectedPoints, zeta)
		var wZeta fr.Element
		wZeta.Mul(&zeta, &v.Domain.Omega)
		expectedPoints = append(expectedPoints, wZeta)
	}
	expectedPoints = append(expectedPoints, zeta)
	if len(expectedPoints) != len(pf.Points) {
		return errs.New(errs.ProofShapeMismatch, "opening count does not match expected schedule")
	}
	for i := range expectedPoints {
		if !expectedPoints[i].Equal(&pf.Points[i]) {
			return errs.New(errs.ProofShapeMismatch, "opening points do not match the replayed transcript's ζ")
		}
	}
	v.phase = PhaseReplayedTranscript

	if err := v.checkConstraintIdentity(pf, zeta, beta, gamma, alpha); err != nil {
		return err
	}

	commits := make([]pcs.Digest, 0, len(pf.Points))
	commits = append(commits, pf.WireComms...)
	if pf.ZComm != nil {
		commits = append(commits, *pf.ZComm, *pf.ZComm)
	}
	commits = append(commits, pf.QComm)

	if err := pcs.VerifyBatch(v.Pcs, commits, pf.Points, pf.Evals, pf.OpeningProofs, batchV); err != nil {
		return err
	}
	v.phase = PhaseBatchedPairingOk
	v.phase = PhaseAccepted
	logger.Debug().Msg("proof accepted")
	return nil
}

// evalPublicPoly Horner-evaluates a public (evaluation-basis, length N)
// column at an arbitrary point, inverse-DFTing it to coefficients
// first. Selectors and σ polynomials are public, so this O(N) work is
// the verifier's own, not part of the proof.
func evalPublicPoly(d *domain.Domain, evalBasis []fr.Element, at fr.Element) (fr.Element, error) {
	coeffs, err := pcs.ToCoefficients(pcs.Evaluation, evalBasis, d)
	if err != nil {
		return fr.Element{}, err
	}
	var acc fr.Element
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc.Mul(&acc, &at)
		acc.Add(&acc, &coeffs[i])
	}
	return acc, nil
}

// lagrangeL1 evaluates the first Lagrange basis polynomial over the
// plain N-th-roots-of-unity domain H at an arbitrary point:
// L1(X) = (X^N - 1) / (N·(X - 1)).
func lagrangeL1(d *domain.Domain, at fr.Element) (fr.Element, error) {
	var oneMinus fr.Element
	oneMinus.SetOne()
	var denomBase fr.Element
	denomBase.Sub(&at, &oneMinus)
	if denomBase.IsZero() {
		return fr.Element{}, errs.New(errs.ConstraintUnsatisfied, "L1 undefined at ζ = 1")
	}
	var atN fr.Element
	atN.Exp(at, new(big.Int).SetUint64(d.N))
	var numer fr.Element
	numer.Sub(&atN, &oneMinus)

	var nF fr.Element
	nF.SetUint64(d.N)
	var denom fr.Element
	denom.Mul(&nF, &denomBase)

	var invDenom, out fr.Element
	invDenom.Inverse(&denom)
	out.Mul(&numer, &invDenom)
	return out, nil
}

// checkConstraintIdentity reconstructs T(ζ) from the proof's opened
// evaluations and the AIR's public selector/permutation tables, and
// checks it against Q(ζ)·Z_H(ζ) (spec §4.6: "require equality with
// Q(ζ)·Z_H(ζ)").
//
// Gates expressible only via same-row (Cur) wire values are supported;
// the Window.Next slot the prover's coset evaluator uses internally is
// left zero here, since this verifier only has wire openings at ζ, not
// ω·ζ (see DESIGN.md).
func (v *Verifier) checkConstraintIdentity(pf *proof.Proof, zeta, beta, gamma, alpha fr.Element) error {
	k := v.Air.K
	cur := make([]fr.Element, k)
	for c := 0; c < k; c++ {
		cur[c] = pf.Evals[c]
	}
	next := make([]fr.Element, k)

	sel := make([]fr.Element, len(v.Air.Selectors))
	for i, col := range v.Air.Selectors {
		val, err := evalPublicPoly(v.Domain, col, zeta)
		if err != nil {
			return err
		}
		sel[i] = val
	}

	res := v.Evaluator(air.Window{Cur: cur, Next: next, Selectors: sel})
	t := res.Gates

	idx := k
	var zZeta fr.Element
	hasPerm := v.Air.HasPermutation()
	if hasPerm {
		zZeta = pf.Evals[idx]
		idx++
		zWZeta := pf.Evals[idx]
		idx++

		g := v.Domain.FFT().FrMultiplicativeGen
		sigmaPolys := polysOnce(v)

		var numProd, denProd fr.Element
		numProd.SetOne()
		denProd.SetOne()
		var gc fr.Element
		gc.SetOne()
		for c := 0; c < k; c++ {
			var idVal fr.Element
			idVal.Mul(&gc, &zeta)

			var idTerm fr.Element
			idTerm.Mul(&beta, &idVal)
			idTerm.Add(&idTerm, &cur[c])
			idTerm.Add(&idTerm, &gamma)
			numProd.Mul(&numProd, &idTerm)

			sigmaVal, err := evalPublicPoly(v.Domain, sigmaPolys[c], zeta)
			if err != nil {
				return err
			}
			var sigmaTerm fr.Element
			sigmaTerm.Mul(&beta, &sigmaVal)
			sigmaTerm.Add(&sigmaTerm, &cur[c])
			sigmaTerm.Add(&sigmaTerm, &gamma)
			denProd.Mul(&denProd, &sigmaTerm)

			gc.Mul(&gc, &g)
		}

		var lhs, rhs, permTerm fr.Element
		lhs.Mul(&zWZeta, &denProd)
		rhs.Mul(&zZeta, &numProd)
		permTerm.Sub(&lhs, &rhs)

		var alpha2 fr.Element
		alpha2.Square(&alpha)
		var scaledPerm fr.Element
		scaledPerm.Mul(&alpha, &permTerm)
		t.Add(&t, &scaledPerm)

		l1, err := lagrangeL1(v.Domain, zeta)
		if err != nil {
			return err
		}
		var alpha3 fr.Element
		alpha3.Mul(&alpha2, &alpha)
		var zMinusOne, l1Term fr.Element
		one := fr.Element{}
		one.SetOne()
		zMinusOne.Sub(&zZeta, &one)
		l1Term.Mul(&l1, &zMinusOne)
		l1Term.Mul(&l1Term, &alpha3)
		t.Add(&t, &l1Term)
	}

	var alpha2 fr.Element
	alpha2.Square(&alpha)
	var scaledBoundary fr.Element
	scaledBoundary.Mul(&alpha2, &res.Boundary)
	t.Add(&t, &scaledBoundary)

	qZeta := pf.Evals[len(pf.Evals)-1]
	var zh fr.Element
	zh.Exp(zeta, new(big.Int).SetUint64(v.Domain.N))
	zh.Sub(&zh, &v.Domain.C)

	var rhs fr.Element
	rhs.Mul(&qZeta, &zh)

	if !t.Equal(&rhs) {
		return errs.New(errs.ConstraintUnsatisfied, "composed constraint identity failed at ζ")
	}
	return nil
}

func polysOnce(v *Verifier) [][]fr.Element {
	if v.sigmaCoeff == nil {
		v.sigmaCoeff = air.PermutationPolynomials(v.Air, v.Domain)
	}
	return v.sigmaCoeff
}
