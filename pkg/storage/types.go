package storage

import (
	"time"

	"github.com/sw33tLie/vendorscope/pkg/model"
)

// Run kinds recorded in the history.
const (
	KindAggregate = "aggregate"
	KindAcquire   = "acquire"
	KindVerify    = "verify"
)

// Run is one pipeline invocation.
type Run struct {
	ID          string
	Kind        string
	RunDate     string
	StartedAt   time.Time
	VendorCount int
	ChangeCount int
}

// Change captures a single review change event for auditing or printing.
type Change struct {
	OccurredAt time.Time
	RunID      string
	model.Change
}

// ChangeFilter controls selection when listing changes.
type ChangeFilter struct {
	VendorSlug string
	Source     model.Source
	Since      time.Time
	Limit      int
}
