package collector

import (
	"fmt"
	"strings"

	"github.com/agentstation/upcmap/pkg/errors"
)

// OverflowPolicy decides what a run does when a source's request budget is
// exhausted.
type OverflowPolicy int

const (
	// OverflowSkipSource stops querying the exhausted source for the rest of
	// the run and records absent contributions for it. Other sources and
	// codes continue.
	OverflowSkipSource OverflowPolicy = iota

	// OverflowAbortRun stops the run and returns the partial table together
	// with the overflow error.
	OverflowAbortRun
)

// String returns the configuration name of the policy.
func (p OverflowPolicy) String() string {
	switch p {
	case OverflowSkipSource:
		return "skip_source"
	case OverflowAbortRun:
		return "abort_run"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// ParseOverflowPolicy parses a configuration name. The empty string is
// OverflowSkipSource.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip_source", "skip":
		return OverflowSkipSource, nil
	case "abort_run", "abort":
		return OverflowAbortRun, nil
	default:
		return OverflowSkipSource, errors.NewValidationError("overflow_policy", s, "must be one of: skip_source, abort_run")
	}
}
