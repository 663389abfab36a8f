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

import (
	"errors"
	"fmt"
)

// ConstError is a basic error type that can be used to define immutable
// error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// ErrCodeInterference is reported when the same code path is both read and
// written by speculative executions of one block. Code is resolved through
// shared caches that cannot tolerate concurrent speculative updates, so this
// situation disqualifies the whole block from parallel execution; it is
// handled by re-executing the block strictly sequentially, never as a
// regular validation failure.
const ErrCodeInterference = ConstError("code path read and written speculatively")

// BlockedError is returned by TransactionContext.Read when the value of a
// key is about to be written by a lower-indexed transaction that has not
// finished executing. The attempt must be given up and resumed once the
// blocking transaction completes. Runners must pass this error through.
type BlockedError struct {
	By TxnIndex // the transaction the reader has to wait for
}

func (e BlockedError) Error() string {
	return fmt.Sprintf("read blocked on transaction %d", e.By)
}

// GroupSerializationError reports a failure to (de)serialize a logically
// grouped resource during an execution attempt. The failure is recoverable:
// the attempt may be retried locally a configured number of times before the
// block falls back to sequential execution.
type GroupSerializationError struct {
	Key Key
	Err error
}

func (e GroupSerializationError) Error() string {
	return fmt.Sprintf("failed to serialize resource group %v: %v", e.Key, e.Err)
}

func (e GroupSerializationError) Unwrap() error {
	return e.Err
}

// InvariantViolationError reports an internal inconsistency of the execution
// engine, typically surfaced as a recovered panic of a worker. It is never
// retried; the caller must treat the whole block execution as failed.
type InvariantViolationError struct {
	Msg string
}

func (e InvariantViolationError) Error() string {
	return fmt.Sprintf("execution engine invariant violated: %s", e.Msg)
}

// FatalVMError wraps a non-retryable VM-level failure of a single
// transaction. The engine does not interpret VM semantics; the underlying
// error is passed to the caller unchanged.
type FatalVMError struct {
	TxnIndex TxnIndex
	Err      error
}

func (e FatalVMError) Error() string {
	return fmt.Sprintf("transaction %d failed: %v", e.TxnIndex, e.Err)
}

func (e FatalVMError) Unwrap() error {
	return e.Err
}

// ErrorClass partitions the errors surfacing from a block execution into the
// fixed set of cases a caller has to handle.
type ErrorClass byte

const (
	// ClassNone marks a nil error.
	ClassNone ErrorClass = iota
	// ClassFallback marks errors that disqualify parallel execution but
	// are recovered by re-executing the block sequentially.
	ClassFallback
	// ClassVM marks VM-level failures passed through to the caller.
	ClassVM
	// ClassFatal marks internal invariant violations; the block execution
	// call must be treated as failed, no retry.
	ClassFatal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassFallback:
		return "fallback"
	case ClassVM:
		return "vm"
	case ClassFatal:
		return "fatal"
	}
	return fmt.Sprintf("ErrorClass(%d)", byte(c))
}

// ClassifyError determines how an error reported by a block execution is to
// be handled. Unknown errors are conservatively classified as fatal.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, ErrCodeInterference) {
		return ClassFallback
	}
	var groupErr GroupSerializationError
	if errors.As(err, &groupErr) {
		return ClassFallback
	}
	var vmErr FatalVMError
	if errors.As(err, &vmErr) {
		return ClassVM
	}
	return ClassFatal
}
