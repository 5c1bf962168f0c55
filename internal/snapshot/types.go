package snapshot

import (
	"time"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/corpus"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

// #region build
// Build is one versioned import of the reference dataset.
type Build struct {
	BuildID         string
	ParentID        string // build that was active when this one was created
	Source          string
	CreatedAt       time.Time
	Thresholds      map[gate.Tier]int
	Stats           corpus.LoadStats
	PatternCount    int
	TransitionCount int
}

// #endregion build

// #region build-summary
// BuildSummary pairs a build with whether it is the active one.
type BuildSummary struct {
	Build
	Active bool
}

// #endregion build-summary
