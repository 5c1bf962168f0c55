package corpus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

// #region stats
// LoadStats counts what happened to the rows of a dataset.
type LoadStats struct {
	Rows    int // data rows seen, header and blank lines excluded
	Loaded  int
	Skipped int
}

func (s *LoadStats) add(o LoadStats) {
	s.Rows += o.Rows
	s.Loaded += o.Loaded
	s.Skipped += o.Skipped
}

// #endregion stats

// #region load
// maxLineBytes bounds one pattern row. Long-running requests produce long
// flows, so a row may be far larger than a typical line. A longer row is
// drained and counted as skipped.
const maxLineBytes = 1 << 20

// lineReader yields lines of any length while buffering at most
// maxLineBytes of one.
type lineReader struct {
	br  *bufio.Reader
	buf []byte
}

// next returns the next line without its terminator. tooLong is set, and the
// line left empty, when the row exceeded maxLineBytes. io.EOF is returned
// only once no bytes remain.
func (lr *lineReader) next() (string, bool, error) {
	lr.buf = lr.buf[:0]
	read, tooLong := 0, false
	for {
		chunk, err := lr.br.ReadSlice('\n')
		read += len(chunk)
		if !tooLong {
			if len(lr.buf)+len(chunk) > maxLineBytes+2 {
				tooLong = true
				lr.buf = lr.buf[:0]
			} else {
				lr.buf = append(lr.buf, chunk...)
			}
		}
		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF && read > 0:
		case err != nil:
			return "", false, err
		}
		if tooLong {
			return "", true, nil
		}
		return strings.TrimRight(string(lr.buf), "\r\n"), false, nil
	}
}

// Load reads a two-column dataset: a header row, then "<pattern>,<count>"
// rows. Rows that do not parse, or that exceed maxLineBytes, are skipped and
// counted. The result is ordered by occurrence count, highest first.
func Load(r io.Reader) ([]Pattern, LoadStats, error) {
	var (
		out   []Pattern
		stats LoadStats
	)
	lr := &lineReader{br: bufio.NewReaderSize(r, 64*1024)}

	header := true
	for {
		line, tooLong, err := lr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read patterns: %w", err)
		}
		if header {
			header = false
			continue
		}
		if tooLong {
			stats.Rows++
			stats.Skipped++
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.Rows++
		p, err := ParseLine(line)
		if err != nil {
			stats.Skipped++
			continue
		}
		out = append(out, p)
	}
	stats.Loaded = len(out)
	SortByOccurrence(out)
	return out, stats, nil
}

// LoadFile opens path and loads it.
func LoadFile(path string) ([]Pattern, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("open patterns: %w", err)
	}
	defer f.Close()

	ps, stats, err := Load(f)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", path, err)
	}
	return ps, stats, nil
}

// LoadFiles loads several datasets concurrently and merges them. The merged
// result is ordered by count descending then by pattern text, so it does not
// depend on file order or scheduling.
func LoadFiles(ctx context.Context, paths []string) ([]Pattern, LoadStats, error) {
	results := make([][]Pattern, len(paths))
	stats := make([]LoadStats, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ps, st, err := LoadFile(path)
			if err != nil {
				return err
			}
			results[i], stats[i] = ps, st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, LoadStats{}, err
	}

	var (
		merged []Pattern
		total  LoadStats
	)
	for i := range paths {
		merged = append(merged, results[i]...)
		total.add(stats[i])
	}
	sortCanonical(merged)
	return merged, total, nil
}

// SplitPaths splits a comma-separated path list, dropping empty entries.
func SplitPaths(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// #endregion load
