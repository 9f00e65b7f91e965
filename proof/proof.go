// Package proof implements the versioned binary proof container of
// spec §3/§4.6: an 8-byte magic, a big-endian u16 version, and a
// canonical-compressed encoding of the Proof record (header, wire
// commitments, optional Z commitment, Q commitment, opening points,
// opened values, and opening proofs).
package proof

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/sszkp-labs/sszkp/errs"
)

// Magic is the 8-byte container tag, "SSZKPv2\0".
var Magic = [8]byte{'S', 'S', 'Z', 'K', 'P', 'v', '2', 0}

// Version is the only protocol version this package emits or accepts.
const Version uint16 = 2

// Header binds a proof to exactly one Domain, AIR shape, and SRS
// (spec §3's Proof record header field).
type Header struct {
	DomainN     uint64
	DomainOmega fr.Element
	ZhC         fr.Element
	K           uint32
	BasisWires  byte
	SrsG1Digest [32]byte
	SrsG2Digest [32]byte
}

// Proof is the in-memory record spec §3 describes. Points, Evals, and
// OpeningProofs are parallel arrays: entry i is "polynomial P opened
// at Points[i] equals Evals[i], attested by OpeningProofs[i]", in the
// exact order wires[0..k], then Z (if present), then Z@ω·ζ (if
// shifted openings are enabled), then Q (spec §4.5 P4).
type Proof struct {
	Header        Header
	WireComms     []bn254.G1Affine
	ZComm         *bn254.G1Affine
	QComm         bn254.G1Affine
	Points        []fr.Element
	Evals         []fr.Element
	OpeningProofs []bn254.G1Affine
}

// ShiftedZ reports whether this proof carries a second Z opening at
// ω·ζ, inferred from its shape rather than a header bit: without
// shifted openings there are exactly k+[Z?]+1 entries: wires,
// optionally Z, then Q. With shifted openings there is one more,
// Z@ω·ζ, immediately after Z. The prover and verifier always include
// this second opening whenever Z is present at all — a permutation
// argument without it can never verify (the quotient is built against
// the true Z(ωX) regardless), so this method exists for shape
// validation and wire-format generality, not as an independent choice.
func (p *Proof) ShiftedZ() bool {
	hasZ := p.ZComm != nil
	base := int(p.Header.K)
	if hasZ {
		base++
	}
	base++ // Q
	extra := len(p.OpeningProofs) - base
	if extra == 1 && hasZ {
		return true
	}
	return false
}

// Validate enforces the shape invariant of spec §3: |evals| =
// |opening_proofs| match the expected count derived from k, whether Z
// is present, and whether shifted-Z openings are present.
func (p *Proof) Validate() error {
	k := int(p.Header.K)
	if len(p.WireComms) != k {
		return errs.New(errs.ProofShapeMismatch, fmt.Sprintf("expected %d wire commitments, got %d", k, len(p.WireComms)))
	}
	if len(p.Points) != len(p.Evals) || len(p.Evals) != len(p.OpeningProofs) {
		return errs.New(errs.ProofShapeMismatch, "points/evals/opening_proofs length mismatch")
	}
	expected := k
	if p.ZComm != nil {
		expected++ // Z@ζ
		if p.ShiftedZ() {
			expected++ // Z@ωζ
		}
	}
	expected++ // Q@ζ
	if len(p.OpeningProofs) != expected {
		return errs.New(errs.ProofShapeMismatch, fmt.Sprintf("expected %d openings, got %d", expected, len(p.OpeningProofs)))
	}
	return nil
}

func writeAll(w io.Writer, bufs ...[]byte) error {
	for _, b := range bufs {
		if _, err := w.Write(b); err != nil {
			return errs.New(errs.EncodingError, "write proof: "+err.Error())
		}
	}
	return nil
}

func u64(x uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], x)
	return b[:]
}

func u32(x uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], x)
	return b[:]
}

// Write serializes p into the on-wire container format: magic,
// version, then the canonical-compressed payload.
func Write(w io.Writer, p *Proof) error {
	if err := p.Validate(); err != nil {
		return err
	}
	var versionBuf [2]byte
	binary.BigEndian.PutUint16(versionBuf[:], Version)
	if err := writeAll(w, Magic[:], versionBuf[:]); err != nil {
		return err
	}

	h := p.Header
	omegaBytes := h.DomainOmega.Bytes()
	zhcBytes := h.ZhC.Bytes()
	if err := writeAll(w,
		u64(h.DomainN),
		omegaBytes[:],
		zhcBytes[:],
		u32(h.K),
		[]byte{h.BasisWires},
		h.SrsG1Digest[:],
		h.SrsG2Digest[:],
	); err != nil {
		return err
	}

	if err := writeAll(w, u32(uint32(len(p.WireComms)))); err != nil {
		return err
	}
	for _, c := range p.WireComms {
		b := c.Bytes()
		if err := writeAll(w, b[:]); err != nil {
			return err
		}
	}

	hasZ := byte(0)
	if p.ZComm != nil {
		hasZ = 1
	}
	if err := writeAll(w, []byte{hasZ}); err != nil {
		return err
	}
	if p.ZComm != nil {
		b := p.ZComm.Bytes()
		if err := writeAll(w, b[:]); err != nil {
			return err
		}
	}

	qBytes := p.QComm.Bytes()
	if err := writeAll(w, qBytes[:]); err != nil {
		return err
	}

	if err := writeAll(w, u32(uint32(len(p.Points)))); err != nil {
		return err
	}
	for i := range p.Points {
		pb := p.Points[i].Bytes()
		eb := p.Evals[i].Bytes()
		ob := p.OpeningProofs[i].Bytes()
		if err := writeAll(w, pb[:], eb[:], ob[:]); err != nil {
			return err
		}
	}
	return nil
}

func readExact(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errs.New(errs.EncodingError, "read proof: "+err.Error())
	}
	return buf, nil
}

// Read parses the on-wire container format, rejecting bad magic or
// an unsupported version before touching any group elements.
func Read(r io.Reader) (*Proof, error) {
	magicBuf, err := readExact(r, 8)
	if err != nil {
		return nil, err
	}
	for i := range Magic {
		if magicBuf[i] != Magic[i] {
			return nil, errs.New(errs.BadMagic, "proof container: bad magic")
		}
	}
	versionBuf, err := readExact(r, 2)
	if err != nil {
		return nil, err
	}
	version := binary.BigEndian.Uint16(versionBuf)
	if version != Version {
		return nil, errs.New(errs.UnsupportedVersion, fmt.Sprintf("proof container: unsupported version %d", version))
	}

	var p Proof
	nBuf, err := readExact(r, 8)
	if err != nil {
		return nil, err
	}
	p.Header.DomainN = binary.BigEndian.Uint64(nBuf)

	omegaBuf, err := readExact(r, fr.Bytes)
	if err != nil {
		return nil, err
	}
	p.Header.DomainOmega.SetBytes(omegaBuf)

	zhcBuf, err := readExact(r, fr.Bytes)
	if err != nil {
		return nil, err
	}
	p.Header.ZhC.SetBytes(zhcBuf)

	kBuf, err := readExact(r, 4)
	if err != nil {
		return nil, err
	}
	p.Header.K = binary.BigEndian.Uint32(kBuf)

	basisBuf, err := readExact(r, 1)
	if err != nil {
		return nil, err
	}
	p.Header.BasisWires = basisBuf[0]

	g1DigestBuf, err := readExact(r, 32)
	if err != nil {
		return nil, err
	}
	copy(p.Header.SrsG1Digest[:], g1DigestBuf)

	g2DigestBuf, err := readExact(r, 32)
	if err != nil {
		return nil, err
	}
	copy(p.Header.SrsG2Digest[:], g2DigestBuf)

	numWiresBuf, err := readExact(r, 4)
	if err != nil {
		return nil, err
	}
	numWires := binary.BigEndian.Uint32(numWiresBuf)
	p.WireComms = make([]bn254.G1Affine, numWires)
	for i := range p.WireComms {
		cb, err := readExact(r, bn254.SizeOfG1AffineCompressed)
		if err != nil {
			return nil, err
		}
		if _, err := p.WireComms[i].SetBytes(cb); err != nil {
			return nil, errs.New(errs.EncodingError, "decode wire commitment: "+err.Error())
		}
	}

	hasZBuf, err := readExact(r, 1)
	if err != nil {
		return nil, err
	}
	if hasZBuf[0] > 1 {
		return nil, errs.New(errs.EncodingError, "invalid Z presence tag")
	}
	if hasZBuf[0] == 1 {
		zb, err := readExact(r, bn254.SizeOfG1AffineCompressed)
		if err != nil {
			return nil, err
		}
		var z bn254.G1Affine
		if _, err := z.SetBytes(zb); err != nil {
			return nil, errs.New(errs.EncodingError, "decode Z commitment: "+err.Error())
		}
		p.ZComm = &z
	}

	qb, err := readExact(r, bn254.SizeOfG1AffineCompressed)
	if err != nil {
		return nil, err
	}
	if _, err := p.QComm.SetBytes(qb); err != nil {
		return nil, errs.New(errs.EncodingError, "decode Q commitment: "+err.Error())
	}

	numOpenBuf, err := readExact(r, 4)
	if err != nil {
		return nil, err
	}
	numOpen := binary.BigEndian.Uint32(numOpenBuf)
	p.Points = make([]fr.Element, numOpen)
	p.Evals = make([]fr.Element, numOpen)
	p.OpeningProofs = make([]bn254.G1Affine, numOpen)
	for i := uint32(0); i < numOpen; i++ {
		pb, err := readExact(r, fr.Bytes)
		if err != nil {
			return nil, err
		}
		p.Points[i].SetBytes(pb)

		eb, err := readExact(r, fr.Bytes)
		if err != nil {
			return nil, err
		}
		p.Evals[i].SetBytes(eb)

		ob, err := readExact(r, bn254.SizeOfG1AffineCompressed)
		if err != nil {
			return nil, err
		}
		if _, err := p.OpeningProofs[i].SetBytes(ob); err != nil {
			return nil, errs.New(errs.EncodingError, "decode opening proof: "+err.Error())
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
