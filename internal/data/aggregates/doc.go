// Package aggregates implements the grading write boundaries declared in
// domain/aggregates on Postgres. Each aggregate composes the table repos
// from data/repos, owns its transaction per write, and runs the correction
// protocol as a bounded-retry optimistic transaction.
package aggregates
