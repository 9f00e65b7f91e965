package stream_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"

	"github.com/sszkp-labs/sszkp/errs"
	"github.com/sszkp-labs/sszkp/stream"
)

func rowOf(vals ...uint64) stream.Row {
	row := make(stream.Row, len(vals))
	for i, v := range vals {
		row[i].SetUint64(v)
	}
	return row
}

// assertFullCoverage uses a bitset to confirm ForEachBlock delivers
// exactly n rows in total, each index in [0,n) counted once, regardless
// of the chosen block size. It does not inspect row contents.
func assertFullCoverage(t *testing.T, r stream.Restreamer, n uint64, blockSize int) {
	t.Helper()
	seen := bitset.New(uint(n))
	var idx uint64
	err := r.ForEachBlock(blockSize, func(rows []stream.Row) error {
		for range rows {
			require.False(t, seen.Test(uint(idx)), "row %d visited twice", idx)
			seen.Set(uint(idx))
			idx++
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, n, idx)
	require.Equal(t, uint(n), seen.Count())
}

func TestInMemory_CoversAllRowsAcrossBlockSizes(t *testing.T) {
	rows := make([]stream.Row, 37)
	for i := range rows {
		rows[i] = rowOf(uint64(i), uint64(i*2))
	}
	m := stream.NewInMemory(rows)
	n, exact := m.RowCount()
	require.True(t, exact)
	require.Equal(t, uint64(37), n)

	for _, bs := range []int{1, 5, 7, 37, 100} {
		assertFullCoverage(t, m, 37, bs)
	}
}

func TestGenerator_DeterministicAcrossRepeatedPasses(t *testing.T) {
	const n = 20
	g := stream.NewGenerator(n, true, func() stream.Iterator {
		i := uint64(0)
		return func() (stream.Row, bool, error) {
			if i >= n {
				return nil, false, nil
			}
			row := rowOf(i, i*i)
			i++
			return row, true, nil
		}
	})

	var first, second [][]uint64
	collect := func(dst *[][]uint64) func([]stream.Row) error {
		return func(rows []stream.Row) error {
			for _, r := range rows {
				*dst = append(*dst, []uint64{r[0].Uint64(), r[1].Uint64()})
			}
			return nil
		}
	}
	require.NoError(t, g.ForEachBlock(6, collect(&first)))
	require.NoError(t, g.ForEachBlock(3, collect(&second)))
	require.Equal(t, first, second)
	require.Len(t, first, n)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestCSV_CommaDelimited(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "basic.csv", "0,1,2\n3,4,5\n6,7,8\n")
	c, err := stream.NewCSV(path, 3)
	require.NoError(t, err)
	n, exact := c.RowCount()
	require.True(t, exact)
	require.Equal(t, uint64(3), n)
	assertFullCoverage(t, c, 3, 2)
}

func TestCSV_WhitespaceDelimited(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ws.csv", "0 1 2\n3 4 5\n")
	c, err := stream.NewCSV(path, 3)
	require.NoError(t, err)
	assertFullCoverage(t, c, 2, 5)
}

func TestCSV_MixedDelimiters(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mixed.csv", "0, 1   \t2\n3, 4   \t5\n")
	c, err := stream.NewCSV(path, 3)
	require.NoError(t, err)

	var got []stream.Row
	require.NoError(t, c.ForEachBlock(10, func(rows []stream.Row) error {
		got = append(got, rows...)
		return nil
	}))
	require.Len(t, got, 2)
	require.Equal(t, uint64(0), got[0][0].Uint64())
	require.Equal(t, uint64(1), got[0][1].Uint64())
	require.Equal(t, uint64(2), got[0][2].Uint64())
}

func TestCSV_WrongColumnCount(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "wrongcols.csv", "1,2,3\n4,5\n6,7,8\n")
	c, err := stream.NewCSV(path, 3)
	require.NoError(t, err)
	err = c.ForEachBlock(4, func(rows []stream.Row) error { return nil })
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.RowShape))
}

func TestCSV_NonNumericData(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "nonnumeric.csv", "1,2,3\n4,abc,6\n")
	c, err := stream.NewCSV(path, 3)
	require.NoError(t, err)
	err = c.ForEachBlock(64, func(rows []stream.Row) error { return nil })
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.RowParse))
}

func TestCSV_FileNotFound(t *testing.T) {
	_, err := stream.NewCSV("/nonexistent/path/does-not-exist.csv", 3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does-not-exist.csv")
}

func TestCSV_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.csv", "")
	c, err := stream.NewCSV(path, 3)
	require.NoError(t, err)
	n, _ := c.RowCount()
	require.Equal(t, uint64(0), n)
}

func TestCSV_RestreamingIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "restream.csv", "1,2,3\n4,5,6\n7,8,9\n10,11,12\n")
	c, err := stream.NewCSV(path, 3)
	require.NoError(t, err)

	collect := func() []uint64 {
		var out []uint64
		require.NoError(t, c.ForEachBlock(2, func(rows []stream.Row) error {
			for _, r := range rows {
				for _, e := range r {
					out = append(out, e.Uint64())
				}
			}
			return nil
		}))
		return out
	}
	first := collect()
	second := collect()
	require.Equal(t, first, second)
}

func TestClampBlockSize(t *testing.T) {
	require.Equal(t, 8, stream.ClampBlockSize(1))
	require.Equal(t, 8, stream.ClampBlockSize(16))
	require.Equal(t, 4096, stream.ClampBlockSize(100_000_000))
	require.Equal(t, 100, stream.ClampBlockSize(10_000))
}
