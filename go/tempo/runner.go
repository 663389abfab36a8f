// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tempo

//go:generate mockgen -source runner.go -destination runner_mock.go -package tempo

// StateView is a read-only view on the state a block is executed against.
// Implementations must be safe for concurrent use.
type StateView interface {
	// Get returns the value stored under the given key, or nil if the key
	// is not present. The returned slice must not be modified.
	Get(Key) (Value, error)
	// Usage reports the space consumed by the state.
	Usage() StorageUsage
}

// TransactionContext is the view a single transaction executes against. All
// reads are served consistently with some sequential ordering of the block;
// all writes are buffered and only become visible to other transactions once
// the execution engine decides to publish them.
//
// A context is only valid for the duration of one execution attempt and must
// not be retained or shared across goroutines.
type TransactionContext interface {
	// Read returns the current value of the given key. An error returned
	// here must be propagated unchanged by the TransactionRunner; it
	// carries scheduling information of the execution engine.
	Read(Key) (Value, error)
	// ReadCode resolves a code path through the engine's code cache. The
	// cache is keyed to the writer of the value, so speculative executions
	// can never observe code cached by a different incarnation.
	ReadCode(Key) (Value, error)
	// Write buffers an update of the given key.
	Write(Key, Value)
	// Delete buffers a deletion of the given key.
	Delete(Key)
}

// RunResult is the outcome of one execution attempt of one transaction.
type RunResult struct {
	Status  ExecutionStatus // StatusSuccess, StatusSkipRest, or StatusAborted
	Receipt Receipt
	Err     error // the VM-level failure of a StatusAborted attempt
}

// TransactionRunner is a component capable of executing a single transaction
// against a TransactionContext. It is the adapter between the execution
// engine and an actual virtual machine.
//
// Implementations must be deterministic with respect to the values observed
// through the context, independent of which writer supplied them, and must
// not perform any state access bypassing the context. Runners are required
// to be thread-safe; multiple transactions may be executed in parallel.
//
// A non-nil error reports an infrastructure problem of the attempt itself,
// never transaction semantics; in particular, errors returned by
// TransactionContext.Read must be passed through (wrapping is allowed).
// Semantic failures like reverts are reported through the RunResult.
type TransactionRunner interface {
	Run(BlockParameters, Transaction, TransactionContext) (RunResult, error)
}

// BlockRunner is a component capable of executing all transactions of one
// block against a state view. The resulting outcomes are equivalent to some
// sequential execution of the block in transaction order.
type BlockRunner interface {
	// Run executes the given transactions in block order against the given
	// state. The error is non-nil if the block as a whole failed to
	// execute; in that case the result is undefined and no part of the
	// block may be applied.
	Run(BlockParameters, []Transaction, StateView) (BlockResult, error)
}

// Config summarizes the tuning options of a BlockRunner. The zero value
// selects defaults.
type Config struct {
	// NumWorkers is the number of worker goroutines used by concurrent
	// implementations. If zero, the number of available CPUs is used.
	NumWorkers int
	// GroupRetryLimit is the number of local re-execution attempts granted
	// to a transaction failing with a GroupSerializationError before the
	// whole block is re-executed sequentially. A negative value disables
	// local retries.
	GroupRetryLimit int
	// CodeCacheSize is the maximum number of entries of the code cache
	// made available to transaction runners. If zero, a default size is
	// used. If negative, no cache is used.
	CodeCacheSize int
}

const defaultGroupRetryLimit = 3

// GroupRetries resolves the configured group retry policy to the effective
// number of local attempts.
func (c Config) GroupRetries() int {
	if c.GroupRetryLimit == 0 {
		return defaultGroupRetryLimit
	}
	if c.GroupRetryLimit < 0 {
		return 0
	}
	return c.GroupRetryLimit
}
