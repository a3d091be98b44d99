// Package pipeline wires the reconciliation stages together: aggregation of
// review scores, acquisition of new candidates and verification of vendor
// websites.
package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/sw33tLie/vendorscope/pkg/aggregate"
	"github.com/sw33tLie/vendorscope/pkg/model"
)

// DefaultConcurrency is the number of vendors verified in parallel.
const DefaultConcurrency = 4

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// RunContext is the state shared by every stage of one invocation. It is
// passed explicitly; nothing about a run lives in package variables.
type RunContext struct {
	RunID     string
	RunDate   string
	StartedAt time.Time
	Log       Logger
	// Previous is the aggregate document of the last run, read once.
	Previous aggregate.Snapshot
}

// NewRunContext stamps a run with a fresh id. An empty runDate means today
// (UTC).
func NewRunContext(runDate string, previous aggregate.Snapshot, log Logger) *RunContext {
	now := time.Now()
	if runDate == "" {
		runDate = model.FormatDate(now)
	}
	if log == nil {
		log = nopLogger{}
	}
	if previous == nil {
		previous = aggregate.Snapshot{}
	}
	return &RunContext{
		RunID:     uuid.NewString(),
		RunDate:   runDate,
		StartedAt: now,
		Log:       log,
		Previous:  previous,
	}
}

func (rc *RunContext) log() Logger {
	if rc.Log == nil {
		return nopLogger{}
	}
	return rc.Log
}
