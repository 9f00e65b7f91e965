// Package air holds the arithmetic constraint system side of spec
// §3-4.7: an AirSpec (wire count, selector columns, optional
// copy-constraint permutation tables) plus the pure per-row-window
// Evaluator the prover runs on the extended coset to build the
// composed constraint polynomial T.
package air

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/sszkp-labs/sszkp/domain"
	"github.com/sszkp-labs/sszkp/internal/digest"
)

// Spec is the AIR specification of spec §3: k wire columns, an
// ordered list of public selector columns (each length N), and
// optional id/σ permutation tables for the copy-constraint argument.
// A Spec is immutable for the life of a prove/verify call.
type Spec struct {
	K          int
	Selectors  [][]fr.Element // each len N; public, part of the verification digest
	IDTable    []uint64       // len k*N, or nil if no permutation argument
	SigmaTable []uint64       // len k*N, or nil if no permutation argument
}

// HasPermutation reports whether this AIR carries a copy-constraint
// permutation argument (P2 in the prover schedule).
func (s *Spec) HasPermutation() bool {
	return len(s.SigmaTable) > 0
}

// SelectorsDigest hashes the selector columns in column order, for
// binding into the transcript header (spec §4.3 step 1).
func (s *Spec) SelectorsDigest() [32]byte {
	parts := make([][]byte, 0, len(s.Selectors))
	for _, col := range s.Selectors {
		for _, v := range col {
			b := v.Bytes()
			parts = append(parts, append([]byte{}, b[:]...))
		}
	}
	return digest.Sum("sszkp-selectors-v2", parts...)
}

// CellRef identifies a single (column, row) cell of the witness
// table, flattened as pos = col*N + row for permutation bookkeeping.
type CellRef struct {
	Col int
	Row uint64
}

// ClassNone marks a position with no copy constraint: it stays a
// fixed point of the identity permutation.
const ClassNone = ^uint64(0)

// BuildPermutationTables builds the σ (and trivial id) tables for the
// copy-constraint grand-product argument, generalizing gnark's
// buildPermutation (backend/plonk/bls12-377/setup.go) from the fixed
// three-column L∥R∥O layout to k arbitrary columns. classOf assigns
// every flattened position a shared equivalence-class tag (e.g. a
// variable ID in the caller's trace); positions with the same tag
// must take equal witness values and are linked into one cycle of σ,
// same as gnark's two-pass "last seen position" construction.
func BuildPermutationTables(n uint64, k int, classOf []uint64) (id, sigma []uint64) {
	size := uint64(k) * n
	sigma = make([]uint64, size)
	for i := range sigma {
		sigma[i] = uint64(i)
	}

	lastSeen := make(map[uint64]uint64, size)
	linked := make([]bool, size)
	for i := uint64(0); i < size; i++ {
		tag := classOf[i]
		if tag == ClassNone {
			continue
		}
		if prev, ok := lastSeen[tag]; ok {
			sigma[i] = prev
			linked[i] = true
		}
		lastSeen[tag] = i
	}
	// Close each cycle: the first-encountered position of a tag (left
	// unlinked above) wraps around to the tag's last-encountered
	// position, so following σ repeatedly visits every tied cell and
	// returns to the start.
	for i := uint64(0); i < size; i++ {
		tag := classOf[i]
		if tag == ClassNone || linked[i] {
			continue
		}
		sigma[i] = lastSeen[tag]
	}

	id = make([]uint64, size)
	for i := range id {
		id[i] = uint64(i)
	}
	return id, sigma
}

// IdentitySupport returns the support the permutation acts on: k
// cosets of H, ⟨ω⟩ ∥ g·⟨ω⟩ ∥ g²·⟨ω⟩ ∥ ... ∥ g^(k-1)·⟨ω⟩, generalizing
// gnark's getSupportPermutation (which fixes k=3 via
// FrMultiplicativeGen and its square) to arbitrary k.
func IdentitySupport(d *domain.Domain, k int) []fr.Element {
	n := d.N
	res := make([]fr.Element, uint64(k)*n)
	g := d.FFT().FrMultiplicativeGen

	var coset fr.Element
	coset.SetOne()
	for c := 0; c < k; c++ {
		base := uint64(c) * n
		res[base].Set(&coset)
		for i := uint64(1); i < n; i++ {
			res[base+i].Mul(&res[base+i-1], &d.Omega)
		}
		coset.Mul(&coset, &g)
	}
	return res
}

// PermutationPolynomials returns, per column, the Lagrange-basis
// evaluations of σ's target support — s_c[i] = support[sigma[c*N+i]]
// — mirroring gnark's computePermutationPolynomials.
func PermutationPolynomials(spec *Spec, d *domain.Domain) [][]fr.Element {
	n := int(d.N)
	support := IdentitySupport(d, spec.K)
	out := make([][]fr.Element, spec.K)
	for c := 0; c < spec.K; c++ {
		col := make([]fr.Element, n)
		for i := 0; i < n; i++ {
			col[i].Set(&support[spec.SigmaTable[uint64(c)*d.N+uint64(i)]])
		}
		out[c] = col
	}
	return out
}

// Window is the per-index input to an Evaluator: current and next-row
// values for each wire column, and the selector values at the same
// index (spec §4.7).
type Window struct {
	Cur       []fr.Element
	Next      []fr.Element
	Selectors []fr.Element
}

// GateResult is the contribution of the composed constraint's two
// named terms at one index: the plain gate identity, and any boundary
// condition (e.g. "row 0 must equal public input X"). The prover
// combines these with α-powers per spec §4.5 P3.
type GateResult struct {
	Gates    fr.Element
	Boundary fr.Element
}

// Evaluator is a pure, branch-free function of one row window (spec
// §4.7: "must be branch-free on field values"). It must not allocate
// per call in hot loops and must not depend on anything but w.
type Evaluator func(w Window) GateResult

// Zero is the trivial evaluator: every row window contributes zero to
// both constraint terms, so any witness is "satisfying". Used for
// AIRs that only exercise the commitment/opening machinery without a
// real constraint system (e.g. scenario S1's plain cubic witness).
func Zero(w Window) GateResult {
	return GateResult{}
}
