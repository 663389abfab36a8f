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
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Fantom-foundation/Tempo/go/executor/sequential"
	"github.com/Fantom-foundation/Tempo/go/tempo"
	"golang.org/x/sync/errgroup"
)

func init() {
	tempo.RegisterBlockRunnerFactory("parallel", newBlockRunner)
}

func newBlockRunner(runner tempo.TransactionRunner, config tempo.Config) tempo.BlockRunner {
	return &blockRunner{
		runner: runner,
		config: config,
	}
}

// blockRunner executes the transactions of a block optimistically in
// parallel. Every transaction is executed speculatively against a
// multi-version memory and re-executed whenever validation detects that one
// of its reads was served by an outdated writer. Outcomes commit strictly in
// index order, so the result is indistinguishable from a sequential
// execution of the block.
//
// Errors that disqualify the block from speculation, like code path
// interference or repeated resource group serialization failures, are
// handled by discarding all speculative state and re-running the whole block
// through the sequential executor.
type blockRunner struct {
	runner tempo.TransactionRunner
	config tempo.Config
}

func (r *blockRunner) Run(
	params tempo.BlockParameters,
	transactions []tempo.Transaction,
	state tempo.StateView,
) (tempo.BlockResult, error) {
	if len(transactions) == 0 {
		return tempo.BlockResult{}, nil
	}

	cache, err := tempo.NewCodeCache(r.config.CodeCacheSize)
	if err != nil {
		return tempo.BlockResult{}, err
	}

	result, err := r.runParallel(params, transactions, state, cache)
	if err == nil {
		return result, nil
	}

	switch tempo.ClassifyError(err) {
	case tempo.ClassFallback:
		// speculative state may be entangled with the cache content
		cache.Purge()
		return sequential.Run(r.runner, r.config, params, transactions, state)
	default:
		return tempo.BlockResult{}, err
	}
}

func (r *blockRunner) runParallel(
	params tempo.BlockParameters,
	transactions []tempo.Transaction,
	state tempo.StateView,
	cache *tempo.CodeCache,
) (tempo.BlockResult, error) {
	blockSize := len(transactions)
	exec := &execution{
		params:       params,
		transactions: transactions,
		base:         state,
		runner:       r.runner,
		cache:        cache,
		memory:       newVersionedMemory(blockSize),
		sched:        newScheduler(blockSize),
		outcomes:     newOutcomeSet(blockSize),
		staged:       make([]atomic.Pointer[tempo.Outcome], blockSize),
		groupRetries: make([]atomic.Int32, blockSize),
		retryLimit:   r.config.GroupRetries(),
	}
	exec.seedEstimates()

	workers := r.config.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > blockSize {
		workers = blockSize
	}

	var group errgroup.Group
	for i := 0; i < workers; i++ {
		group.Go(exec.worker)
	}
	if err := group.Wait(); err != nil {
		return tempo.BlockResult{}, err
	}
	if err := exec.haltError(); err != nil {
		return tempo.BlockResult{}, err
	}

	exec.finishCommits()
	if err := exec.haltError(); err != nil {
		return tempo.BlockResult{}, err
	}

	boundary := tempo.TxnIndex(exec.sched.stopAt.Load())
	for txn := boundary; txn < tempo.TxnIndex(blockSize); txn++ {
		exec.memory.clearTxn(txn)
	}

	outcomes := exec.outcomes.collect(boundary)
	for txn := boundary; txn < tempo.TxnIndex(blockSize); txn++ {
		outcomes = append(outcomes, tempo.Outcome{Status: tempo.StatusSkipped})
	}
	return tempo.BlockResult{Outcomes: outcomes}, nil
}

// execution bundles the shared state of one parallel block execution.
type execution struct {
	params       tempo.BlockParameters
	transactions []tempo.Transaction
	base         tempo.StateView
	runner       tempo.TransactionRunner
	cache        *tempo.CodeCache

	memory   *versionedMemory
	sched    *scheduler
	outcomes *outcomeSet

	// result of the latest execution attempt per transaction; promoted to
	// the outcome set by the in-order commit frontier
	staged       []atomic.Pointer[tempo.Outcome]
	groupRetries []atomic.Int32
	retryLimit   int

	commitMu sync.Mutex
	failure  atomic.Pointer[executionFailure]
}

type executionFailure struct {
	err error
}

// seedEstimates installs estimate entries for all declared write hints, so
// readers of hinted keys wait for the hinted writer instead of speculating
// on a value that is likely to change.
func (e *execution) seedEstimates() {
	for txn, transaction := range e.transactions {
		var keys []tempo.Key
		for _, hint := range transaction.Accesses {
			if hint.Mode == tempo.WriteAccess {
				keys = append(keys, hint.Key)
			}
		}
		if len(keys) > 0 {
			e.memory.markEstimates(tempo.TxnIndex(txn), keys)
		}
	}
}

// worker is the main loop of one worker goroutine: pull a task, process it,
// try to advance the commit frontier, repeat until the scheduler reports
// global completion.
func (e *execution) worker() (err error) {
	defer func() {
		if r := recover(); r != nil {
			violation := asInvariantViolation(r)
			e.halt(violation)
			err = violation
		}
	}()

	var current *task
	for {
		if current != nil {
			switch current.kind {
			case taskExecute:
				current = e.tryExecute(current.version)
			case taskValidate:
				current = e.tryValidate(current.version)
			}
		}
		e.commitReady()
		if e.sched.done() {
			return nil
		}
		if current == nil {
			current = e.sched.nextTask()
			if current == nil {
				runtime.Gosched()
			}
		}
	}
}

func (e *execution) tryExecute(version tempo.Version) *task {
	view := newTxnView(e.memory, e.base, e.cache, version)
	result, err := e.runner.Run(e.params, e.transactions[version.TxnIndex], view)
	if err != nil {
		return e.handleExecutionError(version, err)
	}

	outcome := tempo.Outcome{
		Status:  result.Status,
		Receipt: result.Receipt,
		Writes:  view.writeSet(),
		Err:     result.Err,
	}
	wroteNewKey, err := e.memory.record(version, view.readSet(), view.writeSet())
	if err != nil {
		e.halt(err)
		return nil
	}
	e.staged[version.TxnIndex].Store(&outcome)
	return e.sched.finishExecution(version, wroteNewKey)
}

func (e *execution) handleExecutionError(version tempo.Version, err error) *task {
	var blocked tempo.BlockedError
	if errors.As(err, &blocked) {
		if !e.sched.addDependency(version.TxnIndex, blocked.By) {
			// the blocking transaction finished in the meantime
			return e.tryExecute(version)
		}
		return nil
	}

	var groupErr tempo.GroupSerializationError
	if errors.As(err, &groupErr) {
		if int(e.groupRetries[version.TxnIndex].Add(1)) <= e.retryLimit {
			return e.tryExecute(version)
		}
		e.halt(err)
		return nil
	}

	if errors.Is(err, tempo.ErrCodeInterference) {
		e.halt(err)
		return nil
	}

	e.halt(tempo.FatalVMError{TxnIndex: version.TxnIndex, Err: err})
	return nil
}

func (e *execution) tryValidate(version tempo.Version) *task {
	valid := e.memory.validateReadSet(version.TxnIndex)
	aborted := !valid && e.sched.tryValidationAbort(version)
	if aborted {
		e.memory.convertWritesToEstimates(version.TxnIndex)
	}
	return e.sched.finishValidation(version.TxnIndex, aborted)
}

// commitReady opportunistically advances the in-order commit frontier. Only
// one worker commits at a time; the others skip instead of queueing up.
func (e *execution) commitReady() {
	if !e.commitMu.TryLock() {
		return
	}
	defer e.commitMu.Unlock()
	e.advanceCommits(false)
}

// finishCommits drains the remaining outcomes after all workers stopped. At
// this point every transaction below the boundary is executed and its read
// set settled, so a failing commit validation is an engine defect.
func (e *execution) finishCommits() {
	defer func() {
		if r := recover(); r != nil {
			e.halt(asInvariantViolation(r))
		}
	}()
	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	e.advanceCommits(true)
}

func (e *execution) advanceCommits(final bool) {
	for {
		next, ok := e.sched.nextToCommit()
		if !ok {
			return
		}
		if !e.sched.tryStartCommit(next) {
			if final {
				e.halt(tempo.InvariantViolationError{Msg: fmt.Sprintf(
					"transaction %d not executed after completion", next)})
			}
			return
		}

		if !e.memory.validateReadSet(next) {
			if final {
				e.halt(tempo.InvariantViolationError{Msg: fmt.Sprintf(
					"read set of transaction %d invalid after completion", next)})
				return
			}
			// the claim gives the frontier exclusive ownership of the
			// incarnation, no abort contest is needed
			e.memory.convertWritesToEstimates(next)
			e.sched.reexecute(next)
			return
		}

		staged := e.staged[next].Load()
		if staged == nil {
			e.halt(tempo.InvariantViolationError{Msg: fmt.Sprintf(
				"no staged outcome for executed transaction %d", next)})
			return
		}
		if staged.Status == tempo.StatusAborted {
			e.halt(tempo.FatalVMError{TxnIndex: next, Err: staged.Err})
			return
		}

		e.outcomes.set(next, *staged)
		if staged.Status == tempo.StatusSkipRest {
			e.sched.cutAt(next + 1)
		}
		e.sched.markCommitted(next)
	}
}

// halt stops the execution with the given error; the first failure wins.
func (e *execution) halt(err error) {
	if e.failure.CompareAndSwap(nil, &executionFailure{err: err}) {
		e.sched.halt()
	}
}

func (e *execution) haltError() error {
	if failure := e.failure.Load(); failure != nil {
		return failure.err
	}
	return nil
}

func asInvariantViolation(recovered any) error {
	var violation tempo.InvariantViolationError
	if err, ok := recovered.(error); ok && errors.As(err, &violation) {
		return violation
	}
	return tempo.InvariantViolationError{Msg: fmt.Sprintf("%v", recovered)}
}
