package pcs

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/polynomial"
	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"

	"github.com/sszkp-labs/sszkp/domain"
	"github.com/sszkp-labs/sszkp/errs"
)

// Basis is the representation a wire/auxiliary polynomial is handed
// to the PCS in: raw coefficients, or point-evaluations on H.
type Basis uint8

const (
	Coefficient Basis = 0
	Evaluation  Basis = 1
)

// Params bundles everything the PCS needs to commit/open/verify: the
// maximum supported degree, the basis convention for caller-supplied
// polynomials, the domain (needed to invert Evaluation-basis input to
// coefficients), and the SRS handle.
type Params struct {
	MaxDegree uint64
	Basis     Basis
	Domain    *domain.Domain
	Srs       *Handle
}

// Digest is a single KZG commitment.
type Digest = bn254.G1Affine

// OpeningProof mirrors gnark-crypto's kzg.OpeningProof: the quotient
// commitment H = [(f(X)-f(ζ))/(X-ζ)]G1, the evaluation point, and the
// claimed value.
type OpeningProof struct {
	H            bn254.G1Affine
	Point        fr.Element
	ClaimedValue fr.Element
}

// ToCoefficients returns poly as canonical-basis coefficients,
// inverse-DFTing out of Evaluation basis when required (spec §4.2:
// "the implementation may ... perform an inverse DFT to coefficients;
// the observable output must be identical for semantically equal
// polynomials"). Exported so callers that need raw coefficients (e.g.
// the prover's quotient construction) don't have to duplicate this
// conversion.
func ToCoefficients(basis Basis, poly []fr.Element, d *domain.Domain) ([]fr.Element, error) {
	return toCoefficients(basis, poly, d)
}

func toCoefficients(basis Basis, poly []fr.Element, d *domain.Domain) ([]fr.Element, error) {
	if basis == Coefficient {
		out := make([]fr.Element, len(poly))
		copy(out, poly)
		return out, nil
	}
	if d == nil {
		return nil, errs.New(errs.EncodingError, "evaluation basis requires a domain for inverse DFT")
	}
	coeffs := make([]fr.Element, len(poly))
	copy(coeffs, poly)
	d.FFT().FFTInverse(coeffs, fft.DIF)
	fft.BitReverse(coeffs)
	return coeffs, nil
}

func checkDegree(params *Params, n int) error {
	if n == 0 || uint64(n) > params.MaxDegree+1 {
		return errs.New(errs.DegreeTooLarge, "polynomial larger than SRS or empty")
	}
	if params.Srs == nil || !params.Srs.Ready() {
		return errs.New(errs.SrsNotLoaded, "SRS not loaded")
	}
	if params.Srs.MaxDegree() < int64(params.MaxDegree) {
		return errs.New(errs.DegreeTooLarge, "SRS shorter than max_degree+1")
	}
	return nil
}

// Commit implements commit(basis, poly) -> G1.
func Commit(params *Params, poly []fr.Element) (Digest, error) {
	if err := checkDegree(params, len(poly)); err != nil {
		return Digest{}, err
	}
	coeffs, err := toCoefficients(params.Basis, poly, params.Domain)
	if err != nil {
		return Digest{}, err
	}
	c, err := kzg.Commit(polynomial.Polynomial(coeffs), params.Srs.raw())
	if err != nil {
		return Digest{}, errs.New(errs.EncodingError, err.Error())
	}
	return c, nil
}

// Open implements open(poly, ζ) -> (value, proof).
func Open(params *Params, poly []fr.Element, zeta fr.Element) (OpeningProof, error) {
	if err := checkDegree(params, len(poly)); err != nil {
		return OpeningProof{}, err
	}
	coeffs, err := toCoefficients(params.Basis, poly, params.Domain)
	if err != nil {
		return OpeningProof{}, err
	}
	raw, err := kzg.Open(polynomial.Polynomial(coeffs), &zeta, params.Domain.FFT(), params.Srs.raw())
	if err != nil {
		return OpeningProof{}, errs.New(errs.EncodingError, err.Error())
	}
	return OpeningProof{H: raw.H, Point: raw.Point, ClaimedValue: raw.ClaimedValue}, nil
}

// BatchOpen implements batch_open(polys, ζ) -> (values, proofs):
// every polynomial gets its own individual KZG opening at the same
// point, order preserved (spec §3's shape invariant requires exactly
// one opening proof per opened value, so openings here are NOT folded
// into a single proof the way gnark-crypto's BatchOpenSinglePoint
// does — each poly is opened independently).
func BatchOpen(params *Params, polys [][]fr.Element, zeta fr.Element) ([]fr.Element, []Digest, error) {
	values := make([]fr.Element, len(polys))
	proofs := make([]Digest, len(polys))
	for i, p := range polys {
		op, err := Open(params, p, zeta)
		if err != nil {
			return nil, nil, err
		}
		values[i] = op.ClaimedValue
		proofs[i] = op.H
	}
	return values, proofs, nil
}

// Verify implements the single-opening pairing check of spec §4.2:
// e(proof, [τ]G2 − ζ·G2) · e(commit − value·G1, −G2) = 1.
func Verify(params *Params, commit Digest, zeta, value fr.Element, proof Digest) error {
	if params.Srs == nil || !params.Srs.Ready() {
		return errs.New(errs.SrsNotLoaded, "SRS not loaded")
	}
	op := kzg.OpeningProof{H: proof, Point: zeta, ClaimedValue: value}
	if err := kzg.Verify(&commit, &op, params.Srs.raw()); err != nil {
		return errs.New(errs.OpeningCheckFailed, err.Error())
	}
	return nil
}

// VerifyBatch combines many (commit, point, value, proof) tuples into
// a single pairing check using powers of a transcript-derived
// challenge v, the deterministic analogue of gnark-crypto's
// BatchVerifyMultiPoints (which samples its folding factors with
// SetRandom — unusable here since prover and verifier must agree on
// v bit-for-bit). Points need not all be equal (shifted-Z openings at
// ω·ζ live alongside openings at ζ in the same batch).
func VerifyBatch(params *Params, commits []Digest, points, values []fr.Element, proofs []Digest, v fr.Element) error {
	n := len(commits)
	if n != len(points) || n != len(values) || n != len(proofs) {
		return errs.New(errs.ProofShapeMismatch, "batched verify: mismatched slice lengths")
	}
	if n == 0 {
		return nil
	}
	if params.Srs == nil || !params.Srs.Ready() {
		return errs.New(errs.SrsNotLoaded, "SRS not loaded")
	}
	if n == 1 {
		return Verify(params, commits[0], points[0], values[0], proofs[0])
	}

	powers := make([]fr.Element, n)
	powers[0].SetOne()
	for i := 1; i < n; i++ {
		powers[i].Mul(&powers[i-1], &v)
	}

	// combinedLHS = Σ v^i (commit_i - value_i·G1) + Σ v^i·point_i·proof_i
	// combinedRHS = -Σ v^i·proof_i
	// check: e(combinedLHS, G2[0]) · e(combinedRHS, G2[1]) == 1
	srs := params.Srs.raw()

	_, _, genG1, _ := bn254.Generators()
	shiftedCommits := make([]bn254.G1Affine, n)
	for i := 0; i < n; i++ {
		var valBig big.Int
		values[i].BigInt(&valBig)
		var valG1 bn254.G1Affine
		valG1.ScalarMultiplication(&genG1, &valBig)

		var tmp, valJac bn254.G1Jac
		tmp.FromAffine(&commits[i])
		valJac.FromAffine(&valG1)
		tmp.SubAssign(&valJac)
		shiftedCommits[i].FromJacobian(&tmp)
	}

	var combinedLHS bn254.G1Affine
	mexpConf := ecc.MultiExpConfig{}
	if _, err := combinedLHS.MultiExp(shiftedCommits, powers, mexpConf); err != nil {
		return errs.New(errs.PairingCheckFailed, err.Error())
	}

	pointFactors := make([]fr.Element, n)
	for i := 0; i < n; i++ {
		pointFactors[i].Mul(&powers[i], &points[i])
	}
	var pointedProofs bn254.G1Affine
	if _, err := pointedProofs.MultiExp(proofs, pointFactors, mexpConf); err != nil {
		return errs.New(errs.PairingCheckFailed, err.Error())
	}
	combinedLHS.Add(&combinedLHS, &pointedProofs)

	var combinedProofs bn254.G1Affine
	if _, err := combinedProofs.MultiExp(proofs, powers, mexpConf); err != nil {
		return errs.New(errs.PairingCheckFailed, err.Error())
	}
	combinedProofs.Neg(&combinedProofs)

	ok, err := bn254.PairingCheck(
		[]bn254.G1Affine{combinedLHS, combinedProofs},
		[]bn254.G2Affine{srs.G2[0], srs.G2[1]},
	)
	if err != nil {
		return errs.New(errs.PairingCheckFailed, err.Error())
	}
	if !ok {
		return errs.New(errs.PairingCheckFailed, "batched pairing check failed")
	}
	return nil
}

