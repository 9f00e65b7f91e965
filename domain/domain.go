// Package domain constructs and validates the evaluation domain H
// (spec §3, §4.1): a smooth multiplicative subgroup of size N with
// generator ω, plus the vanishing constant c such that
// Z_H(X) = X^N - c.
package domain

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"

	"github.com/sszkp-labs/sszkp/errs"
	"github.com/sszkp-labs/sszkp/internal/digest"
)

// Domain is the tuple (N, ω, c) bound into every proof's header.
type Domain struct {
	N     uint64
	Omega fr.Element
	C     fr.Element

	fft *fft.Domain
}

// Option configures domain construction.
type Option func(*config)

type config struct {
	c       *fr.Element
	cosetIn bool
}

// WithVanishingConstant selects a non-default c in Z_H(X) = X^N - c.
// c must be non-zero; c = 1 (the default) describes the plain
// subgroup, any other value describes a coset.
func WithVanishingConstant(c fr.Element) Option {
	return func(cfg *config) {
		cfg.c = &c
	}
}

// New builds the domain for a witness of the given row count: N is
// the next power of two of max(rows, 1), ω is the field's canonical
// N-th root of unity, and c defaults to 1 unless overridden.
func New(rows uint64, opts ...Option) (*Domain, error) {
	if rows == 0 {
		rows = 1
	}
	n := ecc.NextPowerOfTwo(rows)

	fftDomain := fft.NewDomain(n)
	if fftDomain == nil || fftDomain.Cardinality != n {
		return nil, errs.New(errs.NoRootOfUnity, "field does not admit an N-th root of unity for this N")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	d := &Domain{
		N:     fftDomain.Cardinality,
		Omega: fftDomain.Generator,
		fft:   fftDomain,
	}
	if cfg.c != nil {
		d.C.Set(cfg.c)
	} else {
		d.C.SetOne()
	}

	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// validate checks ω^N = 1 and ω^(N/2) ≠ 1 via exponentiation-by-
// squaring (fr.Element.Exp already implements binary exponentiation,
// never a loop of N multiplications), and that c is non-zero.
func (d *Domain) validate() error {
	if d.C.IsZero() {
		return errs.New(errs.InvalidDomain, "zh_c must be non-zero (Z_H(X) = X^N - zh_c)")
	}

	var lhs fr.Element
	lhs.Exp(d.Omega, new(big.Int).SetUint64(d.N))
	if !lhs.IsOne() {
		return errs.New(errs.InvalidDomain, "omega^N != 1")
	}

	if d.N >= 2 {
		var half fr.Element
		half.Exp(d.Omega, new(big.Int).SetUint64(d.N/2))
		if half.IsOne() {
			return errs.New(errs.InvalidDomain, "omega does not have exact order N (omega^(N/2) == 1)")
		}
	}
	return nil
}

// FFT returns the underlying gnark-crypto FFT domain of cardinality
// N, used by the PCS and prover for basis conversions.
func (d *Domain) FFT() *fft.Domain {
	return d.fft
}

// Digest returns the stable 32-byte digest binding (N, ω, c).
func (d *Domain) Digest() [32]byte {
	var nBytes [8]byte
	for i := 0; i < 8; i++ {
		nBytes[i] = byte(d.N >> (56 - 8*i))
	}
	omegaBytes := d.Omega.Marshal()
	cBytes := d.C.Marshal()
	return digest.Sum("sszkp-domain-v2", nBytes[:], omegaBytes, cBytes)
}

// Equal reports whether two domains are bit-for-bit identical.
func (d *Domain) Equal(o *Domain) bool {
	return d.N == o.N && d.Omega.Equal(&o.Omega) && d.C.Equal(&o.C)
}
