// Package aggregates declares the grading domain's write boundaries: the
// grade ledger (entry, correction, visibility) and the course grade
// snapshot (calculate-and-save). Contracts here name the invariants each
// write must hold atomically; persistence lives in data/aggregates.
package aggregates
