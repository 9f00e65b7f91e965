// Package transcript implements the Fiat-Shamir transcript of spec
// §4.3: a strictly ordered absorb/squeeze state machine wrapping
// gnark-crypto's fiat-shamir transcript (the same primitive
// famouswizard-gnark's fflonk prover and mimoo-gnark-crypto's kzg
// package use — fiatshamir.NewTranscript / Bind / ComputeChallenge).
package transcript

import (
	"encoding/binary"
	"hash"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"
	"golang.org/x/crypto/blake2b"
)

// Phase enumerates the transcript state machine of spec §4.8. Each
// method below both requires the transcript to be in the phase it
// documents and advances it to the next; calling a method out of
// order is a programmer error and panics (spec §7: "Calling squeeze
// before all required absorbs have occurred is a programmer error and
// must panic").
type Phase int

const (
	PhaseInit Phase = iota
	PhaseHeaderAbsorbed
	PhaseWiresAbsorbed
	PhaseBetaGammaSqueezed
	PhaseZAbsorbed
	PhaseAlphaSqueezed
	PhaseQAbsorbed
	PhaseZetaSqueezed
	PhaseVSqueezed
)

// Transcript is exclusive to a single prove or verify call (spec §5).
type Transcript struct {
	inner *fiatshamir.Transcript
	phase Phase
}

// New constructs a fresh transcript over hf (the caller provides a
// hash.Hash factory result — typically blake2b-256, see SPEC_FULL.md
// §4.3).
func New(hf hash.Hash) *Transcript {
	return &Transcript{
		inner: fiatshamir.NewTranscript(hf, "beta", "gamma", "alpha", "zeta", "v"),
		phase: PhaseInit,
	}
}

func u32(x uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], x)
	return b[:]
}

func (t *Transcript) requirePhase(p Phase, what string) {
	if t.phase != p {
		panic("transcript: " + what + " called out of order (programmer error)")
	}
}

func (t *Transcript) bindTo(label string, data []byte) {
	if err := t.inner.Bind(label, data); err != nil {
		panic("transcript: bind failed: " + err.Error())
	}
}

// AbsorbPublicHeader absorbs steps 1-2 of §4.3: protocol/curve
// labels, the domain digest, k, the selectors digest, the SRS
// digests, and the wires basis tag.
func (t *Transcript) AbsorbPublicHeader(domainDigest [32]byte, k uint32, selectorsDigest, srsG1Digest, srsG2Digest [32]byte, basisTag byte) {
	t.requirePhase(PhaseInit, "AbsorbPublicHeader")
	t.bindTo("beta", []byte("sszkp-v2"))
	t.bindTo("beta", []byte("bn254"))
	t.bindTo("beta", domainDigest[:])
	t.bindTo("beta", u32(k))
	t.bindTo("beta", selectorsDigest[:])
	t.bindTo("beta", srsG1Digest[:])
	t.bindTo("beta", srsG2Digest[:])
	t.bindTo("beta", []byte{basisTag})
	t.phase = PhaseHeaderAbsorbed
}

// AbsorbWireCommitments absorbs step 3: wire commitments in column
// order.
func (t *Transcript) AbsorbWireCommitments(comms []bn254.G1Affine) {
	t.requirePhase(PhaseHeaderAbsorbed, "AbsorbWireCommitments")
	for _, c := range comms {
		b := c.Bytes()
		t.bindTo("beta", b[:])
	}
	t.phase = PhaseWiresAbsorbed
}

// SqueezeBetaGamma performs step 4's challenge squeeze (β, γ), for
// when the permutation argument is present.
func (t *Transcript) SqueezeBetaGamma() (beta, gamma fr.Element) {
	t.requirePhase(PhaseWiresAbsorbed, "SqueezeBetaGamma")
	beta = t.sample("beta")
	gamma = t.sample("gamma")
	t.phase = PhaseBetaGammaSqueezed
	return
}

// AbsorbZ absorbs the rest of step 4: the Z commitment.
func (t *Transcript) AbsorbZ(zComm bn254.G1Affine) {
	t.requirePhase(PhaseBetaGammaSqueezed, "AbsorbZ")
	b := zComm.Bytes()
	t.bindTo("alpha", b[:])
	t.phase = PhaseZAbsorbed
}

// SkipPermutation transitions directly from wire commitments to the
// quotient phase when no permutation argument is requested (AIR with
// empty id/σ tables); β, γ, and Z are simply absent from this proof.
func (t *Transcript) SkipPermutation() {
	t.requirePhase(PhaseWiresAbsorbed, "SkipPermutation")
	t.phase = PhaseZAbsorbed
}

// SqueezeAlpha performs step 5's challenge squeeze.
func (t *Transcript) SqueezeAlpha() fr.Element {
	t.requirePhase(PhaseZAbsorbed, "SqueezeAlpha")
	alpha := t.sample("alpha")
	t.phase = PhaseAlphaSqueezed
	return alpha
}

// AbsorbQ absorbs the rest of step 5: the quotient commitment.
func (t *Transcript) AbsorbQ(qComm bn254.G1Affine) {
	t.requirePhase(PhaseAlphaSqueezed, "AbsorbQ")
	b := qComm.Bytes()
	t.bindTo("zeta", b[:])
	t.phase = PhaseQAbsorbed
}

// SqueezeZeta performs step 6's challenge squeeze.
func (t *Transcript) SqueezeZeta() fr.Element {
	t.requirePhase(PhaseQAbsorbed, "SqueezeZeta")
	zeta := t.sample("zeta")
	t.phase = PhaseZetaSqueezed
	return zeta
}

// SqueezeV performs step 7's challenge squeeze, used only to combine
// the verifier's many pairing checks into one (it never affects the
// proof's contents).
func (t *Transcript) SqueezeV() fr.Element {
	t.requirePhase(PhaseZetaSqueezed, "SqueezeV")
	v := t.sample("v")
	t.phase = PhaseVSqueezed
	return v
}

// sample squeezes the named challenge and rejection-samples it down
// to a uniform field element (spec §4.3: "Squeezing a challenge
// yields a field element by rejection-sampling a uniform integer
// below the field modulus" — plain SetBytes would instead reduce mod
// p, which is not quite uniform).
func (t *Transcript) sample(label string) fr.Element {
	digest, err := t.inner.ComputeChallenge(label)
	if err != nil {
		panic("transcript: compute challenge " + label + ": " + err.Error())
	}
	modulus := fr.Modulus()
	var counter uint32
	for {
		h := blake2b.Sum256(append(append([]byte{}, digest...), u32(counter)...))
		candidate := new(big.Int).SetBytes(h[:])
		if candidate.Cmp(modulus) < 0 {
			var out fr.Element
			out.SetBigInt(candidate)
			return out
		}
		counter++
	}
}
