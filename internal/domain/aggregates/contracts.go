package aggregates

// WriteTxOwnership names who opens and commits the transaction for an
// aggregate's write methods.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate means the aggregate implementation manages
	// its own atomic transaction per write; callers never pass one in.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// ReadPolicy states which reads an aggregate contract may perform.
type ReadPolicy string

const (
	// ReadPolicyInvariantScoped restricts aggregate reads to what a write
	// needs for its invariant decision, e.g. loading the correction target
	// inside the correction transaction.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
	// ReadPolicyTableRepoQueries keeps listing and transcript queries on
	// the table repos, outside any aggregate transaction.
	ReadPolicyTableRepoQueries ReadPolicy = "table_repo_queries"
)

// Contract is the aggregate's self-description: its name, who owns its
// transactions, and what it is allowed to read. Both grading aggregates
// publish one so tests can assert the ledger never leaks broad reads into
// its write path.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	Notes            string
}

// Aggregate is implemented by every aggregate contract in this package.
type Aggregate interface {
	Contract() Contract
}

// RequiresAggregateOwnedTx reports whether writes manage their own transactions.
func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}
