// Package dataset embeds the production transition counts the default
// admission tables are derived from.
package dataset

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

//go:embed transitions.csv
var transitionsCSV []byte

var (
	once   sync.Once
	tables gate.Tables
)

// Counts parses the embedded counts. A malformed embedded file is a build
// defect and panics.
func Counts() gate.Counts {
	counts, skipped, err := gate.LoadCountsCSV(bytes.NewReader(transitionsCSV))
	if err != nil || skipped > 0 {
		panic(fmt.Sprintf("dataset: embedded transitions malformed (skipped=%d): %v", skipped, err))
	}
	return counts
}

// Tables returns the admission tables built from the embedded counts with the
// default cutoffs. They are built once per process.
func Tables() gate.Tables {
	once.Do(func() {
		tables = gate.BuildTables(Counts(), gate.DefaultBuildConfig())
	})
	return tables
}

// NewGate returns a gate over the embedded tables.
func NewGate(tier gate.Tier) *gate.Gate {
	return gate.NewGate(Tables(), tier)
}
