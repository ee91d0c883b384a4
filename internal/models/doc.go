// Package models defines the core domain models for the staffing backend.
//
// # Models
//
//   - Allocation: a commitment of a fraction of a person's time to a project
//     over a date range. This is the unit of state for the whole engine.
//   - Project: a project people can be allocated to.
//   - User: an organization member who can authenticate and be allocated.
//   - AuditEvent: an immutable record of a mutation, kept for history.
//
// # Design Principles
//
//  1. **Fixed-point percentages**: allocation percentages use decimal.Decimal,
//     never float64, so sums across records carry no binary rounding error.
//  2. **Date-only ranges**: allocations span inclusive calendar dates with no
//     time-of-day component (see Date).
//  3. **Soft deletes**: allocations are never physically removed; DeletedAt
//     marks them inactive while the row is retained for history.
//  4. **Organization scoping**: every model carries its OrganizationID and
//     every read/write is scoped to it.
package models
