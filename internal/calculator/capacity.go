package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/planhub/staffing/internal/models"
)

// DefaultHoursPerWeek is the planned-hours equivalent of a 100% allocation
// over a full 7-day bucket.
var DefaultHoursPerWeek = decimal.NewFromInt(40)

// UserHours is one user's contribution to a capacity bucket.
type UserHours struct {
	UserID         string
	PlannedHours   decimal.Decimal
	PlannedPercent decimal.Decimal
}

// WeekBucket is one reporting period of a capacity series.
type WeekBucket struct {
	// PeriodStart and PeriodEnd bound the bucket, inclusive. Buckets are 7
	// days except possibly the last, which is clipped to the window end.
	PeriodStart models.Date
	PeriodEnd   models.Date

	// PlannedHours is the summed planned hours of every allocation
	// intersecting the bucket, prorated by day coverage.
	PlannedHours decimal.Decimal

	// PlannedPercent is the same sum expressed as a utilization percentage.
	PlannedPercent decimal.Decimal

	// PerUser breaks the totals down by user, sorted by user ID.
	PerUser []UserHours
}

// WeeklyCapacity converts allocations into a weekly planned-hours series for
// the inclusive window [windowStart, windowEnd].
//
// The window is partitioned into consecutive 7-day buckets starting at
// windowStart; the last bucket may be shorter. An allocation intersecting a
// bucket contributes overlapDays/bucketDays * percent/100 * hoursPerFullWeek,
// so an allocation fully covering a bucket contributes exactly
// percent/100 * hoursPerFullWeek. Soft-deleted allocations are skipped.
//
// The result is fully materialized and chronological. Pure function.
func WeeklyCapacity(allocations []models.Allocation, windowStart, windowEnd models.Date, hoursPerFullWeek decimal.Decimal) []WeekBucket {
	if windowEnd.Before(windowStart) {
		return nil
	}

	var buckets []WeekBucket
	for start := windowStart; !start.After(windowEnd); start = start.AddDays(7) {
		end := models.MinDate(start.AddDays(6), windowEnd)
		buckets = append(buckets, bucketFor(allocations, start, end, hoursPerFullWeek))
	}
	return buckets
}

func bucketFor(allocations []models.Allocation, start, end models.Date, hoursPerFullWeek decimal.Decimal) WeekBucket {
	bucket := WeekBucket{
		PeriodStart:    start,
		PeriodEnd:      end,
		PlannedHours:   decimal.Zero,
		PlannedPercent: decimal.Zero,
	}
	bucketDays := decimal.NewFromInt(int64(start.DaysUntil(end)))

	perUser := make(map[string]*UserHours)
	for i := range allocations {
		a := &allocations[i]
		if a.Deleted() {
			continue
		}
		if !models.RangesOverlap(a.StartDate, a.EndDate, start, end) {
			continue
		}

		overlapStart := models.MaxDate(a.StartDate, start)
		overlapEnd := models.MinDate(a.EndDate, end)
		overlapDays := decimal.NewFromInt(int64(overlapStart.DaysUntil(overlapEnd)))

		// Multiply before the one division so the proration stays exact
		// whenever percent*overlapDays divides evenly by the bucket length.
		percent := a.Percent.Mul(overlapDays).Div(bucketDays)
		hours := percent.Div(percentCeiling).Mul(hoursPerFullWeek)

		bucket.PlannedHours = bucket.PlannedHours.Add(hours)
		bucket.PlannedPercent = bucket.PlannedPercent.Add(percent)

		uh, ok := perUser[a.UserID]
		if !ok {
			uh = &UserHours{UserID: a.UserID, PlannedHours: decimal.Zero, PlannedPercent: decimal.Zero}
			perUser[a.UserID] = uh
		}
		uh.PlannedHours = uh.PlannedHours.Add(hours)
		uh.PlannedPercent = uh.PlannedPercent.Add(percent)
	}

	for _, uh := range perUser {
		bucket.PerUser = append(bucket.PerUser, *uh)
	}
	sort.Slice(bucket.PerUser, func(i, j int) bool {
		return bucket.PerUser[i].UserID < bucket.PerUser[j].UserID
	})
	return bucket
}
