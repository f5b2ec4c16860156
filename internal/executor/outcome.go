package executor

import (
	"context"
	"time"

	"github.com/sajjad-MoBe/kvdiff/internal/catalog"
	"github.com/sajjad-MoBe/kvdiff/pkg/kvdict"
)

// Outcome is the captured result of executing one operation against one
// revision: a returned value or a raised error kind, never both live paths
// at once. Wall time is diagnostic only and never compared.
type Outcome struct {
	Operation    *catalog.OperationSpec `json:"-"`
	Value        any                    `json:"value,omitempty"`
	ErrorKind    kvdict.Kind            `json:"error_kind,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	// State is the side's full key-space dump after the operation, when
	// state capture is enabled.
	State    map[string]any `json:"state,omitempty"`
	WallTime time.Duration  `json:"wall_time_ns"`
	// Crashed marks a process-level failure (recovered panic); the side
	// that crashed executes nothing further.
	Crashed bool `json:"crashed,omitempty"`
}

// Raised reports whether the outcome is an error rather than a value.
func (o *Outcome) Raised() bool {
	return o.ErrorKind != kvdict.KindNone
}

// OutcomePair joins the two sides' outcomes for one operation. The
// comparator consumes pairs, never individual outcomes.
type OutcomePair struct {
	Base Outcome `json:"base"`
	New  Outcome `json:"new"`
}

// Handle binds one loaded revision instance to its side of the run. The
// store owns a dedicated key-space; handles never share one.
type Handle struct {
	// Side is the logical name, "base" or "new".
	Side string
	// Store is the revision instance under test.
	Store kvdict.Store
	// RawKeys, when set, reads the side's key-space through the
	// harness's own connection, bypassing the revision's codec. Used for
	// the post-operation state sanity check.
	RawKeys func(ctx context.Context) ([]string, error)
}
