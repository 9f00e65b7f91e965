// Package pcs implements the polynomial commitment scheme contract of
// spec §4.2: commit, open, batch_open and verify against a KZG-style
// SRS over bn254, grounded directly on gnark-crypto's kzg package
// (see mimoo-gnark-crypto's ecc/bls12-377/fr/kzg/kzg.go, whose API
// shape — a unified SRS{G1,G2}, Commit/Open/Verify/
// BatchVerifyMultiPoints free functions — this package mirrors for
// bn254).
package pcs

import (
	"encoding/binary"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"

	"github.com/sszkp-labs/sszkp/errs"
	"github.com/sszkp-labs/sszkp/internal/digest"
)

// Handle is the process-wide, single-writer/many-reader SRS: loaded
// once at startup (per spec §5's "Re-architecture of ambient mutable
// SRS" design note) and then only ever read. It is an explicit value
// the host constructs and passes to Prover/Verifier, not a package
// singleton.
type Handle struct {
	srs      kzg.SRS
	g1Digest [32]byte
	g2Digest [32]byte
	g1Ready  bool
	g2Ready  bool
}

// NewHandle returns an empty, unloaded SRS handle.
func NewHandle() *Handle {
	return &Handle{}
}

// LoadG1 installs the G1 powers-of-τ slice ([τ^i]G1 for i in
// [0,len-1]) and derives its digest.
func (h *Handle) LoadG1(points []bn254.G1Affine) {
	h.srs.G1 = points
	h.g1Digest = digestG1(points)
	h.g1Ready = true
}

// LoadG2 installs the two G2 elements ([1]G2, [τ]G2) and derives
// their digest.
func (h *Handle) LoadG2(g2 [2]bn254.G2Affine) {
	h.srs.G2 = g2
	h.g2Digest = digestG2(g2)
	h.g2Ready = true
}

// Ready reports whether both G1 and G2 SRS material have been loaded.
func (h *Handle) Ready() bool { return h.g1Ready && h.g2Ready }

// G1Digest returns the 32-byte digest of the loaded G1 SRS.
func (h *Handle) G1Digest() [32]byte { return h.g1Digest }

// G2Digest returns the 32-byte digest of the loaded G2 SRS.
func (h *Handle) G2Digest() [32]byte { return h.g2Digest }

// MaxDegree returns the largest polynomial degree this SRS can
// commit to (len(G1) - 1), or -1 if G1 is unloaded.
func (h *Handle) MaxDegree() int64 {
	if !h.g1Ready {
		return -1
	}
	return int64(len(h.srs.G1)) - 1
}

func (h *Handle) raw() *kzg.SRS { return &h.srs }

func digestG1(points []bn254.G1Affine) [32]byte {
	parts := make([][]byte, len(points))
	for i := range points {
		b := points[i].Bytes()
		parts[i] = b[:]
	}
	return digest.Sum("sszkp-srs-g1-v2", parts...)
}

func digestG2(points [2]bn254.G2Affine) [32]byte {
	b0 := points[0].Bytes()
	b1 := points[1].Bytes()
	return digest.Sum("sszkp-srs-g2-v2", b0[:], b1[:])
}

// ReadG1 parses the G1 SRS file format of spec §6: a u64 big-endian
// count followed by that many canonical-compressed G1 points.
func ReadG1(r io.Reader) ([]bn254.G1Affine, error) {
	var nBuf [8]byte
	if _, err := io.ReadFull(r, nBuf[:]); err != nil {
		return nil, errs.New(errs.EncodingError, "read G1 SRS length prefix: "+err.Error())
	}
	n := binary.BigEndian.Uint64(nBuf[:])
	out := make([]bn254.G1Affine, n)
	buf := make([]byte, bn254.SizeOfG1AffineCompressed)
	for i := uint64(0); i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errs.New(errs.EncodingError, "read G1 SRS point: "+err.Error())
		}
		if _, err := out[i].SetBytes(buf); err != nil {
			return nil, errs.New(errs.EncodingError, "decode G1 SRS point: "+err.Error())
		}
	}
	return out, nil
}

// ReadG2 parses the G2 SRS file format of spec §6, accepting either
// [[1]G2, [τ]G2] or just [[τ]G2].
func ReadG2(r io.Reader) ([2]bn254.G2Affine, error) {
	var out [2]bn254.G2Affine
	var nBuf [8]byte
	if _, err := io.ReadFull(r, nBuf[:]); err != nil {
		return out, errs.New(errs.EncodingError, "read G2 SRS length prefix: "+err.Error())
	}
	n := binary.BigEndian.Uint64(nBuf[:])
	if n == 0 {
		return out, errs.New(errs.EncodingError, "G2 SRS file must contain at least one element")
	}
	buf := make([]byte, bn254.SizeOfG2AffineCompressed)
	pts := make([]bn254.G2Affine, n)
	for i := uint64(0); i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return out, errs.New(errs.EncodingError, "read G2 SRS point: "+err.Error())
		}
		if _, err := pts[i].SetBytes(buf); err != nil {
			return out, errs.New(errs.EncodingError, "decode G2 SRS point: "+err.Error())
		}
	}
	if n >= 2 {
		out[0], out[1] = pts[0], pts[1]
	} else {
		_, _, _, g2Gen := bn254.Generators()
		out[0] = g2Gen // [1]G2 is the G2 generator
		out[1] = pts[0]
	}
	return out, nil
}
