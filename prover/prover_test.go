package prover_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/sszkp-labs/sszkp/air"
	"github.com/sszkp-labs/sszkp/domain"
	"github.com/sszkp-labs/sszkp/pcs"
	"github.com/sszkp-labs/sszkp/prover"
	"github.com/sszkp-labs/sszkp/stream"
)

// toyG1SRS builds an insecure but well-formed powers-of-tau SRS for
// tests: τ is a small fixed scalar, never a real trusted setup.
func toyG1SRS(maxDegree uint64, tau fr.Element) []bn254.G1Affine {
	_, _, g1Gen, _ := bn254.Generators()
	out := make([]bn254.G1Affine, maxDegree+1)
	var cur fr.Element
	cur.SetOne()
	for i := uint64(0); i <= maxDegree; i++ {
		curBig := new(big.Int)
		cur.BigInt(curBig)
		out[i].ScalarMultiplication(&g1Gen, curBig)
		cur.Mul(&cur, &tau)
	}
	return out
}

func toyG2SRS(tau fr.Element) [2]bn254.G2Affine {
	_, _, _, g2Gen := bn254.Generators()
	var out [2]bn254.G2Affine
	out[0] = g2Gen
	tauBig := new(big.Int)
	tau.BigInt(tauBig)
	out[1].ScalarMultiplication(&g2Gen, tauBig)
	return out
}

func newToyHandle(maxDegree uint64) *pcs.Handle {
	var tau fr.Element
	tau.SetUint64(12345)
	h := pcs.NewHandle()
	h.LoadG1(toyG1SRS(maxDegree, tau))
	h.LoadG2(toyG2SRS(tau))
	return h
}

func TestProver_Prove_PlainCubicWitness_NoPermutation(t *testing.T) {
	const rows = 16
	d, err := domain.New(rows)
	require.NoError(t, err)

	witnessRows := make([]stream.Row, rows)
	for i := 0; i < rows; i++ {
		var a, b, c fr.Element
		a.SetUint64(uint64(i + 1))
		b.Square(&a)
		c.Mul(&b, &a)
		witnessRows[i] = stream.Row{a, b, c}
	}
	rs := stream.NewInMemory(witnessRows)

	spec := &air.Spec{K: 3}
	params := &pcs.Params{
		MaxDegree: d.N - 1,
		Basis:     pcs.Evaluation,
		Domain:    d,
		Srs:       newToyHandle(d.N - 1),
	}

	p := prover.New(d, spec, params)
	pf, err := p.Prove(context.Background(), rs)
	require.NoError(t, err)
	require.Equal(t, d.N, pf.Header.DomainN)
	require.Equal(t, uint32(3), pf.Header.K)
	require.Len(t, pf.WireComms, 3)
	require.Nil(t, pf.ZComm)
	require.NoError(t, pf.Validate())
}

func TestProver_Prove_RejectsOversizedWitness(t *testing.T) {
	const rows = 8
	d, err := domain.New(rows)
	require.NoError(t, err)

	witnessRows := make([]stream.Row, rows+1)
	for i := range witnessRows {
		var v fr.Element
		v.SetUint64(uint64(i))
		witnessRows[i] = stream.Row{v}
	}
	rs := stream.NewInMemory(witnessRows)

	spec := &air.Spec{K: 1}
	params := &pcs.Params{
		MaxDegree: d.N - 1,
		Basis:     pcs.Evaluation,
		Domain:    d,
		Srs:       newToyHandle(d.N - 1),
	}

	p := prover.New(d, spec, params)
	_, err = p.Prove(context.Background(), rs)
	require.Error(t, err)
}
