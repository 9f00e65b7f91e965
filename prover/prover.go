// Package prover implements the streaming prover scheduler of spec
// §4.5: P1 commits wire columns gathered in one blocked restreamer
// pass (all k columns of length N are held in memory), P2
// optionally builds the permutation grand product, P3 builds the
// quotient on an extended coset, and P4 produces batched KZG
// openings — grounded in famouswizard-gnark's fflonk Prove pipeline
// (backend/fflonk/bn254/prove.go), generalized from a fixed circuit
// compiler's L/R/O wires to an arbitrary-k streamed AIR.
package prover

import (
	"context"
	"fmt"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/sszkp-labs/sszkp/air"
	"github.com/sszkp-labs/sszkp/domain"
	"github.com/sszkp-labs/sszkp/errs"
	"github.com/sszkp-labs/sszkp/internal/log"
	"github.com/sszkp-labs/sszkp/pcs"
	"github.com/sszkp-labs/sszkp/proof"
	"github.com/sszkp-labs/sszkp/stream"
	"github.com/sszkp-labs/sszkp/transcript"
)

// Phase mirrors the prover state machine of spec §4.8: Init →
// CommittedWires → CommittedZ? → CommittedQ → OpenedAtZeta →
// Serialized.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseCommittedWires
	PhaseCommittedZ
	PhaseCommittedQ
	PhaseOpenedAtZeta
	PhaseSerialized
)

// Prover borrows an AIR, a domain, and PCS params for exactly one
// prove call; the Restreamer it streams from is borrowed too (spec
// §9's "no cyclic ownership").
type Prover struct {
	Domain    *domain.Domain
	Air       *air.Spec
	Pcs       *pcs.Params
	Evaluator air.Evaluator

	// BlockSize overrides the √N-derived default (spec §4.5); 0 means
	// "use the default".
	BlockSize int
	// HashFactory builds the transcript's hash; defaults to
	// blake2b/256 if nil.
	HashFactory func() hash.Hash

	phase Phase
}

// New builds a Prover over d/a/p. The caller must set Evaluator
// before calling Prove; Zero is a valid evaluator for AIRs with no
// real gate constraints.
func New(d *domain.Domain, a *air.Spec, p *pcs.Params) *Prover {
	return &Prover{Domain: d, Air: a, Pcs: p, Evaluator: air.Zero}
}

func (pr *Prover) hashFunc() hash.Hash {
	if pr.HashFactory != nil {
		return pr.HashFactory()
	}
	h, _ := blake2b.New256(nil)
	return h
}

func (pr *Prover) blockSize() int {
	if pr.BlockSize > 0 {
		return pr.BlockSize
	}
	return stream.ClampBlockSize(pr.Domain.N)
}

// Prove runs the full non-interactive protocol over w and returns a
// validated Proof.
func (pr *Prover) Prove(ctx context.Context, w stream.Restreamer) (*proof.Proof, error) {
	logger := log.Logger()
	if pr.Domain == nil || pr.Air == nil || pr.Pcs == nil {
		return nil, errs.New(errs.DomainBuild, "prover: domain, air, and pcs params are required")
	}
	if pr.Pcs.Srs == nil || !pr.Pcs.Srs.Ready() {
		return nil, errs.New(errs.SrsMissing, "prover: SRS not loaded")
	}
	k := pr.Air.K

	if rowCount, exact := w.RowCount(); exact && rowCount > pr.Domain.N {
		return nil, errs.New(errs.RowShape, fmt.Sprintf("witness has %d rows, larger than domain size %d", rowCount, pr.Domain.N))
	}

	columns := make([][]fr.Element, k)
	for c := range columns {
		columns[c] = make([]fr.Element, pr.Domain.N)
	}

	var rowsSeen uint64
	err := w.ForEachBlock(pr.blockSize(), func(rows []stream.Row) error {
		for _, row := range rows {
			if rowsSeen >= pr.Domain.N {
				return errs.New(errs.RowShape, fmt.Sprintf("witness has more than %d rows", pr.Domain.N))
			}
			if len(row) != k {
				return errs.New(errs.RowShape, fmt.Sprintf("row %d: expected %d columns, got %d", rowsSeen, k, len(row)))
			}
			for c := 0; c < k; c++ {
				columns[c][rowsSeen].Set(&row[c])
			}
			rowsSeen++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expected, exact := w.RowCount(); exact && rowsSeen != expected {
		return nil, errs.New(errs.WitnessExhaustedEarly, fmt.Sprintf("restreamer reported %d rows, delivered %d", expected, rowsSeen))
	}
	logger.Debug().Uint64("rows", rowsSeen).Int("k", k).Msg("witness streamed")

	pr.phase = PhaseInit

	// P1 — commit wires, one goroutine per column (spec §4.5 P1).
	wireComms := make([]bn254.G1Affine, k)
	g, _ := errgroup.WithContext(ctx)
	for c := 0; c < k; c++ {
		c := c
		g.Go(func() error {
			commit, err := pcs.Commit(pr.Pcs, columns[c])
			if err != nil {
				return err
			}
			wireComms[c] = commit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	pr.phase = PhaseCommittedWires

	tr := transcript.New(pr.hashFunc())
	tr.AbsorbPublicHeader(pr.Domain.Digest(), uint32(k), pr.Air.SelectorsDigest(), pr.Pcs.Srs.G1Digest(), pr.Pcs.Srs.G2Digest(), byte(pr.Pcs.Basis))
	tr.AbsorbWireCommitments(wireComms)

	var zComm *bn254.G1Affine
	var zPoly []fr.Element
	var beta, gamma fr.Element
	if pr.Air.HasPermutation() {
		beta, gamma = tr.SqueezeBetaGamma()
		zPoly, err = buildGrandProduct(pr.Domain, pr.Air, columns, beta, gamma)
		if err != nil {
			return nil, err
		}
		c, err := pcs.Commit(pr.Pcs, zPoly)
		if err != nil {
			return nil, err
		}
		zComm = &c
		tr.AbsorbZ(c)
		pr.phase = PhaseCommittedZ
	} else {
		tr.SkipPermutation()
	}

	alpha := tr.SqueezeAlpha()

	qCoeffs, err := buildQuotient(pr.Domain, pr.Air, pr.Evaluator, columns, zPoly, beta, gamma, alpha)
	if err != nil {
		return nil, err
	}
	qParams := &pcs.Params{MaxDegree: pr.Pcs.MaxDegree, Basis: pcs.Coefficient, Domain: pr.Domain, Srs: pr.Pcs.Srs}
	qComm, err := pcs.Commit(qParams, qCoeffs)
	if err != nil {
		return nil, err
	}
	tr.AbsorbQ(qComm)
	pr.phase = PhaseCommittedQ

	zeta := tr.SqueezeZeta()
	_ = tr.SqueezeV() // the verifier re-derives v itself; the prover need not store it

	polys := make([][]fr.Element, 0, k+3)
	points := make([]fr.Element, 0, k+3)
	for c := 0; c < k; c++ {
		polys = append(polys, columns[c])
		points = append(points, zeta)
	}
	if zComm != nil {
		polys = append(polys, zPoly)
		points = append(points, zeta)

		// Q(X) was built against the true Z(ωX) (buildQuotient always
		// steps the grand product forward), so the opening schedule
		// must always include it whenever a permutation argument is
		// present — there is no correct "unshifted" variant once Z
		// exists.
		var wZeta fr.Element
		wZeta.Mul(&zeta, &pr.Domain.Omega)
		polys = append(polys, zPoly)
		points = append(points, wZeta)
	}
	polys = append(polys, qCoeffs)
	points = append(points, zeta)

	evals := make([]fr.Element, len(polys))
	openingProofs := make([]bn254.G1Affine, len(polys))
	for i, p := range polys {
		var openParams *pcs.Params
		if i >= len(polys)-1 {
			openParams = qParams
		} else {
			openParams = pr.Pcs
		}
		op, err := pcs.Open(openParams, p, points[i])
		if err != nil {
			return nil, err
		}
		evals[i] = op.ClaimedValue
		openingProofs[i] = op.H
	}
	pr.phase = PhaseOpenedAtZeta

	pf := &proof.Proof{
		Header: proof.Header{
			DomainN:     pr.Domain.N,
			DomainOmega: pr.Domain.Omega,
			ZhC:         pr.Domain.C,
			K:           uint32(k),
			BasisWires:  byte(pr.Pcs.Basis),
			SrsG1Digest: pr.Pcs.Srs.G1Digest(),
			SrsG2Digest: pr.Pcs.Srs.G2Digest(),
		},
		WireComms:     wireComms,
		ZComm:         zComm,
		QComm:         qComm,
		Points:        points,
		Evals:         evals,
		OpeningProofs: openingProofs,
	}
	if err := pf.Validate(); err != nil {
		return nil, err
	}
	pr.phase = PhaseSerialized
	return pf, nil
}
