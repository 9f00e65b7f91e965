// Package stream implements the witness-ingestion side of spec §2: a
// Restreamer abstracts "repeatable access to N rows of k field
// elements" without requiring all N rows to live in memory at once,
// so the prover can make several independent passes over a witness
// that may itself be generated on demand (a file, a deterministic
// simulator, a decompressed trace).
package stream

import "github.com/consensys/gnark-crypto/ecc/bn254/fr"

// Row is one witness row: k field elements, column order fixed by
// the caller's AIR.
type Row []fr.Element

// Restreamer is the contract every witness source implements. Block
// size is a prover-side policy (spec §5's b_blk, clamped to
// [8,4096] near √N) — Restreamer just executes whatever block size
// it is handed, calling fn once per block in row order. A Restreamer
// must support being driven by ForEachBlock more than once, each time
// reproducing the exact same rows in the exact same order (spec §2:
// "identical re-streaming up to the point of exhaustion"); CSV and
// Generator below satisfy this by re-opening/re-generating from
// scratch on every call.
type Restreamer interface {
	// RowCount returns the number of rows this source will yield, and
	// whether that count is exact (known up front) or just an upper
	// bound the source cannot exceed.
	RowCount() (n uint64, exact bool)

	// ForEachBlock streams rows to fn in consecutive blocks of up to
	// blockSize rows (the final block may be shorter). It returns the
	// first error either it or fn produces.
	ForEachBlock(blockSize int, fn func(rows []Row) error) error
}

// ClampBlockSize applies the block-size policy of spec §5: default to
// roughly √n, clamped to [8, 4096].
func ClampBlockSize(n uint64) int {
	b := isqrt(n)
	if b < 8 {
		b = 8
	}
	if b > 4096 {
		b = 4096
	}
	return b
}

func isqrt(n uint64) int {
	if n == 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return int(x)
}
