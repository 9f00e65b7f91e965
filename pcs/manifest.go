package pcs

import (
	"io"

	"github.com/blang/semver/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/sszkp-labs/sszkp/errs"
)

// ManifestVersion is the SRS manifest format this package emits and
// accepts; independent of the proof container's own Version (spec.md
// §9: the proof format and the SRS artifact format evolve on separate
// schedules — a host can rotate its SRS without bumping the proof
// container version, and vice versa).
var ManifestVersion = semver.MustParse("2.0.0")

// manifestCompatRange accepts any manifest whose major version matches
// ManifestVersion's; minor/patch growth is additive by semver
// convention.
var manifestCompatRange = semver.MustParseRange(">=2.0.0 <3.0.0")

// Manifest records provenance for an SRS artifact alongside the raw
// G1/G2 points: which format version produced it, and the digests a
// host can compare against a Proof's header before ever touching a
// pairing. Encoded with CBOR (compact, self-describing, and already
// the format the sszkp ecosystem uses for off-wire metadata) rather
// than the proof container's fixed hand-rolled binary layout, since a
// manifest's fields are expected to grow across SRS generations.
type Manifest struct {
	Version  string   `cbor:"version"`
	G1Digest [32]byte `cbor:"g1_digest"`
	G2Digest [32]byte `cbor:"g2_digest"`
	NumG1    uint64   `cbor:"num_g1"`
}

// NewManifest captures h's current digests into a Manifest stamped
// with this package's ManifestVersion.
func NewManifest(h *Handle) (Manifest, error) {
	if !h.Ready() {
		return Manifest{}, errs.New(errs.SrsNotLoaded, "cannot manifest an unloaded SRS")
	}
	return Manifest{
		Version:  ManifestVersion.String(),
		G1Digest: h.G1Digest(),
		G2Digest: h.G2Digest(),
		NumG1:    uint64(h.MaxDegree() + 1),
	}, nil
}

// WriteManifest CBOR-encodes m to w.
func WriteManifest(w io.Writer, m Manifest) error {
	enc, err := cbor.Marshal(m)
	if err != nil {
		return errs.New(errs.EncodingError, "marshal SRS manifest: "+err.Error())
	}
	if _, err := w.Write(enc); err != nil {
		return errs.New(errs.EncodingError, "write SRS manifest: "+err.Error())
	}
	return nil
}

// ReadManifest decodes a Manifest from r and checks its version falls
// within this package's compatibility range.
func ReadManifest(r io.Reader) (Manifest, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Manifest{}, errs.New(errs.EncodingError, "read SRS manifest: "+err.Error())
	}
	var m Manifest
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return Manifest{}, errs.New(errs.EncodingError, "decode SRS manifest: "+err.Error())
	}
	v, err := semver.Parse(m.Version)
	if err != nil {
		return Manifest{}, errs.New(errs.EncodingError, "SRS manifest: invalid version string: "+err.Error())
	}
	if !manifestCompatRange(v) {
		return Manifest{}, errs.New(errs.UnsupportedVersion, "SRS manifest: incompatible version "+m.Version)
	}
	return m, nil
}

// Matches reports whether m's digests match h's currently loaded SRS,
// the check a host runs before handing h to a Prover/Verifier sourced
// from a manifest it didn't generate itself.
func (m Manifest) Matches(h *Handle) bool {
	return h.Ready() && m.G1Digest == h.G1Digest() && m.G2Digest == h.G2Digest()
}
