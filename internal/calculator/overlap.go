// Package calculator holds the pure allocation math: conflict detection over
// overlapping date ranges and weekly capacity bucketing. Nothing in this
// package performs I/O or mutates shared state.
package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/planhub/staffing/internal/models"
)

// ConflictExceedsCapacity is the conflict type reported when the summed
// allocation percentage over an overlapping period exceeds 100.
const ConflictExceedsCapacity = "exceeds_100_percent"

// Candidate is a proposed allocation (or proposed change to one) to check
// against a user's existing allocations.
type Candidate struct {
	// UserID is the person the candidate allocation is for. Existing
	// allocations for other users are ignored.
	UserID string

	// Start and End bound the candidate range, inclusive.
	Start models.Date
	End   models.Date

	// Percent is the candidate's share of the user's time.
	Percent decimal.Decimal

	// ExcludeID, if set, skips that allocation during the check. Used when
	// validating an update against the record's own previous version.
	ExcludeID string
}

// Conflict describes a detected overcommitment.
type Conflict struct {
	// Type identifies the kind of conflict (ConflictExceedsCapacity).
	Type string

	// TotalAllocation is the summed percentage, candidate included, over
	// the overlapping period.
	TotalAllocation decimal.Decimal

	// OverlappingIDs lists the existing allocations that overlap the
	// candidate range, in input order.
	OverlappingIDs []string
}

var percentCeiling = decimal.NewFromInt(100)

// DetectConflicts decides whether committing the candidate would push the
// user's total allocation over 100% during any day the candidate range
// shares with existing allocations.
//
// Two inclusive ranges overlap when A.start <= B.end && A.end >= B.start;
// ranges that merely touch at a shared boundary day do overlap. A summed
// total of exactly 100 is not a conflict; only totals above 100 are.
//
// The result is an ordered list of conflicts. Today at most one aggregate
// conflict is reported per check; the slice return leaves room for per
// sub-window reporting later.
func DetectConflicts(existing []models.Allocation, c Candidate) []Conflict {
	total := c.Percent
	var overlapping []string

	for i := range existing {
		a := &existing[i]
		if a.UserID != c.UserID || a.Deleted() {
			continue
		}
		if c.ExcludeID != "" && a.ID == c.ExcludeID {
			continue
		}
		if !models.RangesOverlap(a.StartDate, a.EndDate, c.Start, c.End) {
			continue
		}
		total = total.Add(a.Percent)
		overlapping = append(overlapping, a.ID)
	}

	if len(overlapping) == 0 || !total.GreaterThan(percentCeiling) {
		return nil
	}

	return []Conflict{{
		Type:            ConflictExceedsCapacity,
		TotalAllocation: total,
		OverlappingIDs:  overlapping,
	}}
}
