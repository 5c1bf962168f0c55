package gate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
)

// #region load
// countsHeader is the header written by WriteCountsCSV.
var countsHeader = []string{"from_state", "from_sub_status", "to_state", "to_sub_status", "count"}

// LoadCountsCSV reads rows of from_state,from_sub_status,to_state,to_sub_status,count.
// A header row and malformed rows are skipped; skipped reports how many data
// rows were dropped. Only read errors are returned.
func LoadCountsCSV(r io.Reader) (counts Counts, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	counts = make(Counts)
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("read counts: %w", err)
		}
		isHeader := first && len(rec) > 0 && rec[0] == countsHeader[0]
		first = false
		if isHeader {
			continue
		}

		from, to, n, ok := parseCountsRow(rec)
		if !ok {
			skipped++
			continue
		}
		counts.Add(from, to, n)
	}
	return counts, skipped, nil
}

func parseCountsRow(rec []string) (from, to catalog.Step, n int, ok bool) {
	if len(rec) != 5 {
		return from, to, 0, false
	}
	ids := make([]int, 5)
	for i, f := range rec {
		v, err := strconv.Atoi(f)
		if err != nil {
			return from, to, 0, false
		}
		ids[i] = v
	}
	from = catalog.Step{State: catalog.State(ids[0]), SubStatus: catalog.SubStatus(ids[1])}
	to = catalog.Step{State: catalog.State(ids[2]), SubStatus: catalog.SubStatus(ids[3])}
	if !from.State.Valid() || !from.SubStatus.Valid() || !to.State.Valid() || !to.SubStatus.Valid() {
		return from, to, 0, false
	}
	if ids[4] < 1 {
		return from, to, 0, false
	}
	return from, to, ids[4], true
}

// #endregion load

// #region write
// WriteCountsCSV writes counts in the format LoadCountsCSV reads, ordered by
// from then to so the output is byte-stable.
func WriteCountsCSV(w io.Writer, counts Counts) error {
	rows := counts.Transitions()
	sortByKey(rows)

	cw := csv.NewWriter(w)
	if err := cw.Write(countsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tr := range rows {
		rec := []string{
			strconv.Itoa(int(tr.From.State)),
			strconv.Itoa(int(tr.From.SubStatus)),
			strconv.Itoa(int(tr.To.State)),
			strconv.Itoa(int(tr.To.SubStatus)),
			strconv.Itoa(tr.Count),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func sortByKey(rows []Transition) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].From != rows[j].From {
			return stepLess(rows[i].From, rows[j].From)
		}
		return stepLess(rows[i].To, rows[j].To)
	})
}

// #endregion write
