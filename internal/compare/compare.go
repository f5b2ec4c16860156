// Package compare classifies outcome pairs and aggregates them into the
// divergence report. Comparison is purely structural: a value outcome and
// an error outcome are never equivalent, two error outcomes are equivalent
// when their kinds match, and two value outcomes are equivalent when their
// normalized representations are deeply equal.
package compare

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/r3labs/diff/v3"

	"github.com/sajjad-MoBe/kvdiff/internal/executor"
)

// Classification labels the relationship between the two sides' outcomes
// for one operation.
type Classification string

const (
	Match         Classification = "MATCH"
	ValueMismatch Classification = "VALUE_MISMATCH"
	ErrorMismatch Classification = "ERROR_MISMATCH"
	Crash         Classification = "CRASH"
)

// DivergenceRecord is the comparator's verdict on one operation.
type DivergenceRecord struct {
	OperationName  string           `json:"operation_name"`
	Classification Classification   `json:"classification"`
	Base           executor.Outcome `json:"base"`
	New            executor.Outcome `json:"new"`
	Detail         string           `json:"detail,omitempty"`
}

// Report is the terminal artifact of a comparison run.
type Report struct {
	RunID string `json:"run_id"`
	// BasePath and NewPath record where each revision was loaded from,
	// so a report is attributable to specific builds.
	BasePath string             `json:"base_path"`
	NewPath  string             `json:"new_path"`
	Records  []DivergenceRecord `json:"records"`
	// Counts aggregates records per classification.
	Counts map[Classification]int `json:"counts"`
	// Truncated marks a run that ended early on a crash.
	Truncated bool `json:"truncated,omitempty"`
	Pass      bool `json:"pass"`
}

// Compare classifies every pair and builds the report. It is pure: same
// pairs in, same report out (modulo the generated run ID), with no side
// effects on the outcomes.
func Compare(pairs []executor.OutcomePair) *Report {
	report := &Report{
		RunID:  uuid.NewString(),
		Counts: make(map[Classification]int),
	}

	for i := range pairs {
		record := classify(&pairs[i])
		report.Records = append(report.Records, record)
		report.Counts[record.Classification]++
		if record.Classification == Crash {
			report.Truncated = true
		}
	}

	report.Pass = len(report.Records) > 0 &&
		report.Counts[Match] == len(report.Records)
	return report
}

func classify(pair *executor.OutcomePair) DivergenceRecord {
	b, n := &pair.Base, &pair.New
	record := DivergenceRecord{
		OperationName: b.Operation.Name,
		Base:          *b,
		New:           *n,
	}

	switch {
	case b.Crashed || n.Crashed:
		record.Classification = Crash
		record.Detail = crashDetail(b, n)

	case b.Raised() != n.Raised():
		record.Classification = ErrorMismatch
		record.Detail = errorMismatchDetail(b, n)

	case b.Raised():
		if b.ErrorKind == n.ErrorKind {
			record.Classification = Match
		} else {
			record.Classification = ErrorMismatch
			record.Detail = fmt.Sprintf("base raised %s, new raised %s", b.ErrorKind, n.ErrorKind)
		}

	case !reflect.DeepEqual(b.Value, n.Value):
		record.Classification = ValueMismatch
		record.Detail = "returned value diverged: " + describeDiff(b.Value, n.Value)

	case !statesEqual(b.State, n.State):
		record.Classification = ValueMismatch
		record.Detail = "store state diverged: " + describeDiff(b.State, n.State)

	default:
		record.Classification = Match
	}
	return record
}

func crashDetail(b, n *executor.Outcome) string {
	switch {
	case b.Crashed && n.Crashed:
		return fmt.Sprintf("both sides crashed: base: %s; new: %s", b.ErrorMessage, n.ErrorMessage)
	case b.Crashed:
		return "base crashed: " + b.ErrorMessage
	default:
		return "new crashed: " + n.ErrorMessage
	}
}

func errorMismatchDetail(b, n *executor.Outcome) string {
	if b.Raised() {
		return fmt.Sprintf("base raised %s, new returned %v", b.ErrorKind, n.Value)
	}
	return fmt.Sprintf("base returned %v, new raised %s", b.Value, n.ErrorKind)
}

// statesEqual treats missing state capture on both sides as equal; a dump
// captured on only one side cannot be compared and does not diverge.
func statesEqual(b, n map[string]any) bool {
	if b == nil || n == nil {
		return true
	}
	return reflect.DeepEqual(b, n)
}

// describeDiff renders the structural changes between two values.
func describeDiff(b, n any) string {
	changes, err := diff.Diff(b, n)
	if err != nil || len(changes) == 0 {
		return fmt.Sprintf("base=%v new=%v", b, n)
	}
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		path := strings.Join(c.Path, ".")
		if path == "" {
			path = "."
		}
		parts = append(parts, fmt.Sprintf("%s: %v -> %v", path, c.From, c.To))
	}
	return strings.Join(parts, "; ")
}
