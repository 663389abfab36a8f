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
	"bytes"
	"fmt"
)

// TxnIndex is the position of a transaction within the total order of its
// block. Indexes are 0-based, dense, and immutable once assigned.
type TxnIndex int

// Incarnation counts the re-execution attempts of one transaction. The first
// attempt is incarnation 0; every abort-and-retry increments it.
type Incarnation uint

// Version identifies one execution attempt of one transaction. It serves as
// the writer identity of every speculatively written value.
type Version struct {
	TxnIndex    TxnIndex
	Incarnation Incarnation
}

// InvalidVersion denotes the absence of a writer; values read from the base
// state carry this version in their read descriptors.
var InvalidVersion = Version{TxnIndex: -1}

// Valid returns true if the version identifies an actual execution attempt.
func (v Version) Valid() bool {
	return v.TxnIndex >= 0
}

func (v Version) String() string {
	if !v.Valid() {
		return "version(base)"
	}
	return fmt.Sprintf("version(%d,%d)", v.TxnIndex, v.Incarnation)
}

// Address represents the 160-bit (20 bytes) address of an account.
type Address [20]byte

// Hash represents a 256-bit (32 bytes) cryptographic summary value.
type Hash [32]byte

// Gas represents the type used to represent the Gas values.
type Gas int64

func (a Address) String() string {
	return fmt.Sprintf("0x%x", a[:])
}

// PathKind distinguishes the classes of addressable state a Key can point to.
// The engine treats all keys uniformly except for code paths, which are
// guarded against concurrent read/write interference (see ErrCodeInterference).
type PathKind byte

const (
	// StoragePath addresses a regular storage slot of an account.
	StoragePath PathKind = iota
	// CodePath addresses the code deployed under an account. Code paths are
	// special because executing transactions resolve code through shared
	// caches that cannot tolerate concurrent speculative updates.
	CodePath
	// GroupPath addresses an entry of a logically grouped resource that is
	// serialized as a single unit.
	GroupPath
)

func (k PathKind) String() string {
	switch k {
	case StoragePath:
		return "storage"
	case CodePath:
		return "code"
	case GroupPath:
		return "group"
	}
	return fmt.Sprintf("PathKind(%d)", byte(k))
}

// Key is the addressable unit of state: a storage slot, a code path, or an
// entry of a grouped resource. Beyond its kind, a key is opaque to the
// execution engine; only equality and ordering are used.
type Key struct {
	Contract Address
	Kind     PathKind
	Path     Hash
}

// Compare orders keys lexicographically by contract, kind, and path.
func (k Key) Compare(other Key) int {
	if res := bytes.Compare(k.Contract[:], other.Contract[:]); res != 0 {
		return res
	}
	if k.Kind != other.Kind {
		if k.Kind < other.Kind {
			return -1
		}
		return 1
	}
	return bytes.Compare(k.Path[:], other.Path[:])
}

func (k Key) String() string {
	return fmt.Sprintf("%v/%v/0x%x", k.Contract, k.Kind, k.Path[:8])
}

// StorageKey creates a key addressing a storage slot of the given contract.
func StorageKey(contract Address, path Hash) Key {
	return Key{Contract: contract, Kind: StoragePath, Path: path}
}

// CodeKey creates a key addressing the code of the given contract.
func CodeKey(contract Address) Key {
	return Key{Contract: contract, Kind: CodePath}
}

// GroupKey creates a key addressing an entry of a grouped resource.
func GroupKey(contract Address, path Hash) Key {
	return Key{Contract: contract, Kind: GroupPath, Path: path}
}

// Value is the content stored under a key. A nil value denotes absence; a
// write of a nil value is a deletion.
type Value []byte

// Write is a single (key, value) update produced by a transaction. A nil
// value deletes the key.
type Write struct {
	Key   Key
	Value Value
}

// WriteSet is the ordered list of updates produced by one incarnation of a
// transaction.
type WriteSet []Write

// ReadOrigin classifies where the value of a recorded read came from.
type ReadOrigin byte

const (
	// ReadFromBase marks a read served by the unversioned base state.
	ReadFromBase ReadOrigin = iota
	// ReadFromTxn marks a read served by the write of a lower-indexed
	// transaction; the serving version is recorded alongside.
	ReadFromTxn
	// ReadFromSelf marks a read of a value the transaction has written
	// itself earlier in the same incarnation.
	ReadFromSelf
)

// ReadDescriptor captures one read performed during an incarnation: the key
// and the identity of the writer that supplied the value. Descriptors are
// recorded once per incarnation and are immutable after execution finishes.
type ReadDescriptor struct {
	Key     Key
	Origin  ReadOrigin
	Version Version // valid only for ReadFromTxn
}

// ReadSet is the ordered list of reads performed by one incarnation.
type ReadSet []ReadDescriptor

// AccessMode distinguishes declared read and write intents in access hints.
type AccessMode byte

const (
	ReadAccess AccessMode = iota
	WriteAccess
)

// AccessHint declares that a transaction is expected to access the given key
// in the given mode. Hints are optional scheduling aids supplied by an
// external partitioner; they are never trusted for correctness.
type AccessHint struct {
	Key  Key
	Mode AccessMode
}

// Transaction summarizes one signature-verified transaction of a block. The
// engine does not interpret the payload; decoding it is the job of the
// TransactionRunner executing it.
type Transaction struct {
	Sender   Address
	Input    []byte
	GasLimit Gas
	Accesses []AccessHint
}

// BlockParameters contains information about the block being executed.
type BlockParameters struct {
	BlockNumber int64
	Timestamp   int64
	Coinbase    Address
	GasLimit    Gas
	PrevRandao  Hash
}

// Log is the type summarizing a log message emitted as a side effect of a
// transaction execution.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}

// Receipt summarizes the result of the execution of a transaction.
type Receipt struct {
	Success bool // false if the execution ended in a revert, true otherwise
	Output  []byte
	GasUsed Gas
	Logs    []Log
}

// ExecutionStatus is the committed status of one transaction of a block.
type ExecutionStatus byte

const (
	// StatusSuccess marks a transaction that executed to completion.
	StatusSuccess ExecutionStatus = iota
	// StatusSkipRest marks a transaction that executed to completion and
	// requested that no higher-indexed transaction be executed.
	StatusSkipRest
	// StatusSkipped marks a transaction above a StatusSkipRest boundary;
	// it was never executed.
	StatusSkipped
	// StatusAborted marks a transaction whose execution failed with a
	// non-retryable VM-level error. An aborted transaction fails the
	// execution of the entire block.
	StatusAborted
)

func (s ExecutionStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipRest:
		return "skip_rest"
	case StatusSkipped:
		return "skipped"
	case StatusAborted:
		return "aborted"
	}
	return fmt.Sprintf("ExecutionStatus(%d)", byte(s))
}

// Outcome is the committed result of one transaction: its status, its
// receipt, and the writes it applied to the state. Receipt and Writes are
// only meaningful for StatusSuccess and StatusSkipRest.
type Outcome struct {
	Status  ExecutionStatus
	Receipt Receipt
	Writes  WriteSet
	Err     error // the VM-level error of a StatusAborted transaction
}

// BlockResult is the ordered sequence of per-transaction outcomes of one
// block. Its content is indistinguishable from executing the same
// transactions sequentially in block order.
type BlockResult struct {
	Outcomes []Outcome
}

// StorageUsage summarizes the space consumed by a state.
type StorageUsage struct {
	Items uint64
	Bytes uint64
}
