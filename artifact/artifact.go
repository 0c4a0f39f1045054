// Package artifact writes and reads the per-chunk output files of the
// analysis. A chunk's artifact name encodes its index and block range so
// a resumed run can detect completion by file presence alone, without
// reading contents. Writes are atomic (temp file + rename): an artifact
// either exists complete or not at all, which is the entire resume
// protocol.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/eth2030/focil-analysis/types"
)

// Artifact errors.
var (
	ErrNoChunks      = errors.New("artifact: no chunk files found")
	ErrUnknownFormat = errors.New("artifact: unknown output format")
)

// Output formats.
const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
	FormatBoth    = "both"
)

// ChunkName returns the base name (without extension) for a chunk
// artifact, e.g. "chunk_0007_19270000_19280000".
func ChunkName(index int, start, end uint64) string {
	return fmt.Sprintf("chunk_%04d_%d_%d", index, start, end)
}

// primaryExt returns the extension whose presence marks the chunk done.
func primaryExt(format string) string {
	if format == FormatCSV {
		return ".csv"
	}
	return ".parquet"
}

// ChunkDone reports whether the chunk's artifact already exists in dir.
func ChunkDone(dir string, index int, start, end uint64, format string) bool {
	_, err := os.Stat(filepath.Join(dir, ChunkName(index, start, end)+primaryExt(format)))
	return err == nil
}

// WriteChunk writes the chunk rows to dir in the configured format(s).
// Each file is written to a temporary name and renamed into place, so a
// crashed run never leaves a partial artifact behind.
func WriteChunk(dir string, index int, start, end uint64, rows []types.BlockMetrics, format string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact: create %s: %w", dir, err)
	}
	name := ChunkName(index, start, end)

	switch format {
	case FormatParquet:
		return writeParquet(filepath.Join(dir, name+".parquet"), rows)
	case FormatCSV:
		return writeCSV(filepath.Join(dir, name+".csv"), rows)
	case FormatBoth:
		if err := writeCSV(filepath.Join(dir, name+".csv"), rows); err != nil {
			return err
		}
		return writeParquet(filepath.Join(dir, name+".parquet"), rows)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func writeParquet(path string, rows []types.BlockMetrics) error {
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("artifact: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("artifact: rename %s: %w", path, err)
	}
	return nil
}

// ReadChunk loads the rows of one parquet chunk artifact.
func ReadChunk(path string) ([]types.BlockMetrics, error) {
	rows, err := parquet.ReadFile[types.BlockMetrics](path)
	if err != nil {
		return nil, fmt.Errorf("artifact: read %s: %w", path, err)
	}
	return rows, nil
}

// ListChunks returns the parquet chunk artifacts in dir, sorted by name.
// Name order equals chunk index order because the index is zero-padded.
func ListChunks(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "chunk_*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("artifact: list %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoChunks, dir)
	}
	sort.Strings(matches)
	return matches, nil
}

// Combine reads every chunk artifact in dir, sorts the rows by block
// number and writes the combined dataset to outPath (parquet).
func Combine(dir, outPath string) ([]types.BlockMetrics, error) {
	paths, err := ListChunks(dir)
	if err != nil {
		return nil, err
	}

	var all []types.BlockMetrics
	for _, p := range paths {
		rows, err := ReadChunk(p)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].BlockNumber < all[j].BlockNumber })

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create %s: %w", filepath.Dir(outPath), err)
	}
	if err := writeParquet(outPath, all); err != nil {
		return nil, err
	}
	return all, nil
}

// formatRate renders a nullable inclusion rate for CSV output.
func formatRate(rate *float64) string {
	if rate == nil {
		return ""
	}
	return strconv.FormatFloat(*rate, 'f', 6, 64)
}
