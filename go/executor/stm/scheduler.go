// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package stm

import (
	"sync"
	"sync/atomic"

	"github.com/Fantom-foundation/Tempo/go/tempo"
)

// taskKind distinguishes the two kinds of work handed to workers.
type taskKind byte

const (
	taskExecute taskKind = iota
	taskValidate
)

// task is one unit of work: executing or validating a specific incarnation
// of a specific transaction.
type task struct {
	kind    taskKind
	version tempo.Version
}

// Per-transaction life cycle. A transaction moves Ready -> Executing ->
// Executed, is pushed back to Ready when an incarnation is aborted (with the
// incarnation incremented on the way), and reaches Committed exactly once,
// strictly in index order. The commit frontier claims the Executed
// transaction as Committing first, so validation aborts can no longer race
// with the commit of the same incarnation.
const (
	statusReadyToExecute = iota
	statusExecuting
	statusExecuted
	statusAborting
	statusCommitting
	statusCommitted
)

type txnState struct {
	sync.Mutex
	status      int
	incarnation tempo.Incarnation
}

// txnDependents lists the transactions waiting for an index to finish its
// current incarnation.
type txnDependents struct {
	sync.Mutex
	waiting map[tempo.TxnIndex]struct{}
}

// txnBlockers lists the transactions an index is currently waiting for.
type txnBlockers struct {
	sync.Mutex
	blocking map[tempo.TxnIndex]struct{}
}

// scheduler hands out execution and validation tasks in index order, tracks
// dependency edges between transactions, advances the in-order commit
// frontier, and decides global completion.
//
// The design follows the collaborative Block-STM scheduler: two atomic
// counters mark the next indexes needing execution respectively validation,
// validation is preferred over execution once available, and counters are
// decreased when an aborted incarnation forces lower-indexed work to be
// redone. Suspension on a dependency is explicit: the task is given up and
// re-created when the blocking transaction finishes, no worker ever spins on
// a specific transaction.
type scheduler struct {
	blockSize       int
	executionIndex  atomic.Int32
	validationIndex atomic.Int32
	numActiveTasks  atomic.Int32
	decreaseCount   atomic.Int32
	doneMarker      atomic.Bool

	committedUpTo atomic.Int32 // highest committed index, -1 initially
	stopAt        atomic.Int32 // skip boundary, blockSize unless a SkipRest committed

	states     []*txnState
	dependents []*txnDependents
	blockers   []*txnBlockers
}

func newScheduler(blockSize int) *scheduler {
	s := &scheduler{
		blockSize:  blockSize,
		states:     make([]*txnState, blockSize),
		dependents: make([]*txnDependents, blockSize),
		blockers:   make([]*txnBlockers, blockSize),
	}
	for i := 0; i < blockSize; i++ {
		s.states[i] = &txnState{}
		s.dependents[i] = &txnDependents{}
		s.blockers[i] = &txnBlockers{}
	}
	s.committedUpTo.Store(-1)
	s.stopAt.Store(int32(blockSize))
	return s
}

func (s *scheduler) done() bool {
	return s.doneMarker.Load()
}

// halt forces global completion; in-flight workers abandon their current
// attempt at the next opportunity.
func (s *scheduler) halt() {
	s.doneMarker.Store(true)
}

// nextTask hands out the next unit of work, preferring validation over
// execution at the same index to shrink the re-execution window.
func (s *scheduler) nextTask() *task {
	if s.validationIndex.Load() < s.executionIndex.Load() {
		if version := s.nextVersionToValidate(); version != nil {
			return &task{kind: taskValidate, version: *version}
		}
	} else {
		if version := s.nextVersionToExecute(); version != nil {
			return &task{kind: taskExecute, version: *version}
		}
	}
	return nil
}

// addDependency suspends the given transaction until blocker finishes its
// current incarnation. It returns false if the blocker has already finished;
// the caller then retries immediately instead of suspending.
func (s *scheduler) addDependency(txn, blocker tempo.TxnIndex) bool {
	dependents := s.dependents[blocker]
	dependents.Lock()

	blockerState := s.states[blocker]
	blockerState.Lock()
	if blockerState.status == statusExecuted || blockerState.status == statusCommitting ||
		blockerState.status == statusCommitted {
		blockerState.Unlock()
		dependents.Unlock()
		return false
	}
	blockerState.Unlock()

	state := s.states[txn]
	state.Lock()
	state.status = statusAborting
	state.Unlock()

	if dependents.waiting == nil {
		dependents.waiting = make(map[tempo.TxnIndex]struct{})
	}
	dependents.waiting[txn] = struct{}{}
	dependents.Unlock()

	blockers := s.blockers[txn]
	blockers.Lock()
	if blockers.blocking == nil {
		blockers.blocking = make(map[tempo.TxnIndex]struct{})
	}
	blockers.blocking[blocker] = struct{}{}
	blockers.Unlock()

	// the execution task is given up in favor of the suspension
	s.numActiveTasks.Add(-1)
	return true
}

// finishExecution transitions a transaction to Executed, wakes its
// dependents, and possibly returns the follow-up validation task.
func (s *scheduler) finishExecution(version tempo.Version, wroteNewKey bool) *task {
	state := s.states[version.TxnIndex]
	state.Lock()
	if state.status != statusExecuting {
		state.Unlock()
		panic(tempo.InvariantViolationError{Msg: "finished execution of a transaction that is not executing"})
	}
	state.status = statusExecuted
	state.Unlock()

	dependents := s.dependents[version.TxnIndex]
	dependents.Lock()
	waiting := dependents.waiting
	dependents.waiting = nil
	dependents.Unlock()
	s.resumeDependents(version.TxnIndex, waiting)

	if s.validationIndex.Load() > int32(version.TxnIndex) {
		if wroteNewKey {
			// everything at or above this index needs re-validation
			s.decreaseValidationIndex(version.TxnIndex)
		} else {
			return &task{kind: taskValidate, version: version}
		}
	}

	s.numActiveTasks.Add(-1)
	return nil
}

// finishValidation completes a validation task. For an aborted incarnation
// the transaction is rescheduled for re-execution and all higher-indexed
// validations are redone; the re-execution task is handed back to the caller
// when possible.
func (s *scheduler) finishValidation(txn tempo.TxnIndex, aborted bool) *task {
	if aborted {
		s.makeReady(txn)
		s.decreaseValidationIndex(txn + 1)

		if s.executionIndex.Load() > int32(txn) {
			if version := s.tryIncarnation(txn); version != nil {
				return &task{kind: taskExecute, version: *version}
			}
		}
	}
	s.numActiveTasks.Add(-1)
	return nil
}

// tryValidationAbort claims the right to abort the given incarnation. Only
// one contender can win; the winner downgrades the transaction's writes to
// estimates and reschedules it. Incarnations claimed by the commit frontier
// are beyond aborting, the same as committed ones.
func (s *scheduler) tryValidationAbort(version tempo.Version) bool {
	state := s.states[version.TxnIndex]
	state.Lock()
	defer state.Unlock()
	if state.incarnation == version.Incarnation && state.status == statusExecuted {
		state.status = statusAborting
		return true
	}
	return false
}

// isExecuted reports whether the transaction currently rests in the
// Executed state, and under which incarnation.
func (s *scheduler) isExecuted(txn tempo.TxnIndex) (tempo.Incarnation, bool) {
	state := s.states[txn]
	state.Lock()
	defer state.Unlock()
	return state.incarnation, state.status == statusExecuted
}

// tryStartCommit claims the next Executed transaction for the commit
// frontier. A claimed transaction cannot be aborted by a concurrent
// validation anymore; the frontier either commits it or hands it back to the
// execution phase itself.
func (s *scheduler) tryStartCommit(txn tempo.TxnIndex) bool {
	state := s.states[txn]
	state.Lock()
	defer state.Unlock()
	if state.status != statusExecuted {
		return false
	}
	state.status = statusCommitting
	return true
}

// markCommitted finalizes a transaction claimed by tryStartCommit. Committed
// transactions are never revisited by validation or execution.
func (s *scheduler) markCommitted(txn tempo.TxnIndex) {
	state := s.states[txn]
	state.Lock()
	if state.status != statusCommitting {
		state.Unlock()
		panic(tempo.InvariantViolationError{Msg: "commit of a transaction that is not claimed"})
	}
	state.status = statusCommitted
	state.Unlock()

	s.committedUpTo.Store(int32(txn))
	if int32(txn)+1 >= s.stopAt.Load() {
		s.doneMarker.Store(true)
	}
}

// cutAt installs the skip boundary of a committed SkipRest transaction;
// transactions at or above the boundary are abandoned without retry.
func (s *scheduler) cutAt(boundary tempo.TxnIndex) {
	for {
		current := s.stopAt.Load()
		if current <= int32(boundary) {
			return
		}
		if s.stopAt.CompareAndSwap(current, int32(boundary)) {
			return
		}
	}
}

// nextToCommit returns the next transaction index the in-order commit
// frontier is waiting for, or false if the frontier reached the boundary.
func (s *scheduler) nextToCommit() (tempo.TxnIndex, bool) {
	next := s.committedUpTo.Load() + 1
	if next >= s.stopAt.Load() {
		return 0, false
	}
	return tempo.TxnIndex(next), true
}

// reexecute pushes a transaction whose commit-time validation failed back to
// the execution phase.
func (s *scheduler) reexecute(txn tempo.TxnIndex) {
	s.makeReady(txn)
	s.decreaseValidationIndex(txn + 1)
	s.decreaseExecutionIndex(txn)
}

func (s *scheduler) resumeDependents(finished tempo.TxnIndex, waiting map[tempo.TxnIndex]struct{}) {
	if len(waiting) == 0 {
		return
	}
	minResumed := tempo.TxnIndex(-1)
	for txn := range waiting {
		blockers := s.blockers[txn]
		blockers.Lock()
		delete(blockers.blocking, finished)
		resume := len(blockers.blocking) == 0
		blockers.Unlock()
		if resume {
			s.makeReady(txn)
			if minResumed == -1 || txn < minResumed {
				minResumed = txn
			}
		}
	}
	if minResumed != -1 {
		s.decreaseExecutionIndex(minResumed)
	}
}

func (s *scheduler) makeReady(txn tempo.TxnIndex) {
	state := s.states[txn]
	state.Lock()
	state.incarnation++
	state.status = statusReadyToExecute
	state.Unlock()
}

func (s *scheduler) nextVersionToValidate() *tempo.Version {
	if s.validationIndex.Load() >= int32(s.blockSize) {
		s.checkDone()
		return nil
	}

	s.numActiveTasks.Add(1)
	index := s.validationIndex.Add(1) - 1
	if index < int32(s.blockSize) {
		state := s.states[index]
		state.Lock()
		status, incarnation := state.status, state.incarnation
		state.Unlock()
		if status == statusExecuted {
			return &tempo.Version{TxnIndex: tempo.TxnIndex(index), Incarnation: incarnation}
		}
	}

	s.numActiveTasks.Add(-1)
	return nil
}

func (s *scheduler) nextVersionToExecute() *tempo.Version {
	if s.executionIndex.Load() >= int32(s.blockSize) {
		s.checkDone()
		return nil
	}

	s.numActiveTasks.Add(1)
	index := s.executionIndex.Add(1) - 1
	return s.tryIncarnation(tempo.TxnIndex(index))
}

func (s *scheduler) tryIncarnation(txn tempo.TxnIndex) *tempo.Version {
	if int(txn) < s.blockSize {
		state := s.states[txn]
		state.Lock()
		if state.status == statusReadyToExecute {
			state.status = statusExecuting
			incarnation := state.incarnation
			state.Unlock()
			return &tempo.Version{TxnIndex: txn, Incarnation: incarnation}
		}
		state.Unlock()
	}

	s.numActiveTasks.Add(-1)
	return nil
}

// checkDone detects quiescence: both counters ran past the block, no task is
// active, and no counter was decreased while looking.
func (s *scheduler) checkDone() {
	observed := s.decreaseCount.Load()
	if s.executionIndex.Load() >= int32(s.blockSize) &&
		s.validationIndex.Load() >= int32(s.blockSize) &&
		s.numActiveTasks.Load() == 0 &&
		observed == s.decreaseCount.Load() {
		s.doneMarker.Store(true)
	}
}

func (s *scheduler) decreaseExecutionIndex(txn tempo.TxnIndex) {
	decreaseAtomic(&s.executionIndex, int32(txn))
	s.decreaseCount.Add(1)
}

func (s *scheduler) decreaseValidationIndex(txn tempo.TxnIndex) {
	decreaseAtomic(&s.validationIndex, int32(txn))
	s.decreaseCount.Add(1)
}

func decreaseAtomic(value *atomic.Int32, target int32) {
	for {
		current := value.Load()
		if current <= target || value.CompareAndSwap(current, target) {
			return
		}
	}
}
