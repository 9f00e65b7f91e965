package stream

import "github.com/sszkp-labs/sszkp/errs"

// Iterator pulls rows one at a time; it returns ok=false once
// exhausted, with no further calls expected afterwards.
type Iterator func() (row Row, ok bool, err error)

// Generator is a Restreamer backed by a caller-supplied factory that
// produces a fresh Iterator on every pass. Re-invoking the factory
// for each ForEachBlock call is what makes restreaming deterministic:
// the factory must be a pure function of its own closed-over state
// (e.g. a seeded PRNG reset to the same seed, or a deterministic
// simulation run from the same initial conditions), never of global
// mutable state.
type Generator struct {
	rowCount uint64
	exact    bool
	newIter  func() Iterator
}

// NewGenerator builds a Generator. rowCount/exact describe what the
// caller promises about its own output; ForEachBlock does not enforce
// rowCount itself (see WitnessExhaustedEarly handling in the prover,
// which, when exact is true, compares the number of rows actually
// streamed against rowCount).
func NewGenerator(rowCount uint64, exact bool, newIter func() Iterator) *Generator {
	return &Generator{rowCount: rowCount, exact: exact, newIter: newIter}
}

func (g *Generator) RowCount() (uint64, bool) {
	return g.rowCount, g.exact
}

func (g *Generator) ForEachBlock(blockSize int, fn func(rows []Row) error) error {
	if blockSize <= 0 {
		blockSize = 1
	}
	if g.newIter == nil {
		return errs.New(errs.RowParse, "generator: no iterator factory configured")
	}
	next := g.newIter()
	block := make([]Row, 0, blockSize)
	for {
		row, ok, err := next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		block = append(block, row)
		if len(block) >= blockSize {
			if err := fn(block); err != nil {
				return err
			}
			block = make([]Row, 0, blockSize)
		}
	}
	if len(block) > 0 {
		return fn(block)
	}
	return nil
}
