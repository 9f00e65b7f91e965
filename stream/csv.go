package stream

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/exp/slices"

	"github.com/sszkp-labs/sszkp/errs"
)

// fieldSplitter tokenizes a row on commas and/or any run of
// whitespace (spaces, tabs), so "1,2,3", "1 2 3", and "1, 2   \t3" all
// parse to the same three fields.
var fieldSplitter = regexp.MustCompile(`[,\t ]+`)

func splitRow(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	parts := fieldSplitter.Split(trimmed, -1)
	parts = slices.DeleteFunc(parts, func(s string) bool { return s == "" })
	if len(parts) == 0 {
		return nil
	}
	return parts
}

// CSV is a file-backed Restreamer: each ForEachBlock call re-opens
// the file and re-scans it from the start, so repeated passes over
// the same file are byte-for-byte identical regardless of how many
// times the prover streams it (spec §2 restreaming requirement).
// Blank lines are skipped; any other malformed line fails with a
// RowShape or RowParse error naming the offending line.
type CSV struct {
	path string
	k    int
}

// NewCSV opens path just long enough to confirm it exists, then
// returns a CSV adapter over it with k expected columns per row.
func NewCSV(path string, k int) (*CSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.RowParse, fmt.Sprintf("open csv %q: %v", path, err))
	}
	f.Close()
	return &CSV{path: path, k: k}, nil
}

func (c *CSV) RowCount() (uint64, bool) {
	f, err := os.Open(c.path)
	if err != nil {
		return 0, false
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var n uint64
	for sc.Scan() {
		if splitRow(sc.Text()) != nil {
			n++
		}
	}
	return n, true
}

func (c *CSV) ForEachBlock(blockSize int, fn func(rows []Row) error) error {
	if blockSize <= 0 {
		blockSize = 1
	}
	f, err := os.Open(c.path)
	if err != nil {
		return errs.New(errs.RowParse, fmt.Sprintf("open csv %q: %v", c.path, err))
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	block := make([]Row, 0, blockSize)
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		if err := fn(block); err != nil {
			return err
		}
		block = make([]Row, 0, blockSize)
		return nil
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := splitRow(sc.Text())
		if fields == nil {
			continue
		}
		if len(fields) != c.k {
			return errs.New(errs.RowShape, fmt.Sprintf("csv %s line %d: expected k=%d columns, got %d", c.path, lineNo, c.k, len(fields)))
		}
		row := make(Row, c.k)
		for i, tok := range fields {
			if _, err := row[i].SetString(tok); err != nil {
				return errs.New(errs.RowParse, fmt.Sprintf("csv %s line %d: parse field %d (%q): %v", c.path, lineNo, i, tok, err))
			}
		}
		block = append(block, row)
		if len(block) >= blockSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return errs.New(errs.RowParse, fmt.Sprintf("csv %s: scan: %v", c.path, err))
	}
	return flush()
}
