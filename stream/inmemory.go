package stream

// InMemory is the simplest Restreamer: a fixed, already-materialized
// set of rows. Useful for tests and small witnesses; CSV and Generator
// instead produce rows on demand and do not hold the witness
// themselves (Prover.Prove still gathers every column into memory).
type InMemory struct {
	rows []Row
}

// NewInMemory wraps rows as a Restreamer. The slice is not copied;
// callers must not mutate it afterwards.
func NewInMemory(rows []Row) *InMemory {
	return &InMemory{rows: rows}
}

func (m *InMemory) RowCount() (uint64, bool) {
	return uint64(len(m.rows)), true
}

func (m *InMemory) ForEachBlock(blockSize int, fn func(rows []Row) error) error {
	if blockSize <= 0 {
		blockSize = 1
	}
	for start := 0; start < len(m.rows); start += blockSize {
		end := start + blockSize
		if end > len(m.rows) {
			end = len(m.rows)
		}
		if err := fn(m.rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}
