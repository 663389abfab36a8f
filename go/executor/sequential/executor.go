// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package sequential

import (
	"errors"

	"github.com/Fantom-foundation/Tempo/go/state/memory"
	"github.com/Fantom-foundation/Tempo/go/tempo"
)

func init() {
	tempo.RegisterBlockRunnerFactory("sequential", newBlockRunner)
}

func newBlockRunner(runner tempo.TransactionRunner, config tempo.Config) tempo.BlockRunner {
	return &blockRunner{
		runner: runner,
		config: config,
	}
}

// blockRunner executes the transactions of a block one at a time, in block
// order, each against the base state plus the accumulated writes of all
// earlier transactions. There is no speculation and no concurrency; it is
// the reference semantics of block execution and the fallback used when a
// block is disqualified from parallel execution.
type blockRunner struct {
	runner tempo.TransactionRunner
	config tempo.Config
}

func (r *blockRunner) Run(
	params tempo.BlockParameters,
	transactions []tempo.Transaction,
	state tempo.StateView,
) (tempo.BlockResult, error) {
	return run(r.runner, params, transactions, state, r.config.GroupRetries())
}

// Run executes the given block strictly sequentially under the given
// configuration. It is used by concurrent block runners as their
// non-speculative fallback path.
func Run(
	runner tempo.TransactionRunner,
	config tempo.Config,
	params tempo.BlockParameters,
	transactions []tempo.Transaction,
	state tempo.StateView,
) (tempo.BlockResult, error) {
	return run(runner, params, transactions, state, config.GroupRetries())
}

func run(
	runner tempo.TransactionRunner,
	params tempo.BlockParameters,
	transactions []tempo.Transaction,
	state tempo.StateView,
	groupRetries int,
) (tempo.BlockResult, error) {
	overlay := memory.NewOverlay(state)
	outcomes := make([]tempo.Outcome, 0, len(transactions))
	skipping := false

	for index, transaction := range transactions {
		txn := tempo.TxnIndex(index)
		if skipping {
			outcomes = append(outcomes, tempo.Outcome{Status: tempo.StatusSkipped})
			continue
		}

		result, writes, err := runOne(runner, params, transaction, overlay, groupRetries)
		if err != nil {
			return tempo.BlockResult{}, tempo.FatalVMError{TxnIndex: txn, Err: err}
		}
		if result.Status == tempo.StatusAborted {
			return tempo.BlockResult{}, tempo.FatalVMError{TxnIndex: txn, Err: result.Err}
		}

		overlay.Apply(writes)
		outcomes = append(outcomes, tempo.Outcome{
			Status:  result.Status,
			Receipt: result.Receipt,
			Writes:  writes,
		})
		if result.Status == tempo.StatusSkipRest {
			skipping = true
		}
	}
	return tempo.BlockResult{Outcomes: outcomes}, nil
}

// runOne executes a single transaction, granting the configured number of
// local retries to recoverable group serialization failures.
func runOne(
	runner tempo.TransactionRunner,
	params tempo.BlockParameters,
	transaction tempo.Transaction,
	view tempo.StateView,
	groupRetries int,
) (tempo.RunResult, tempo.WriteSet, error) {
	for attempt := 0; ; attempt++ {
		context := newTxnContext(view)
		result, err := runner.Run(params, transaction, context)
		if err == nil {
			return result, context.writeSet(), nil
		}
		var groupErr tempo.GroupSerializationError
		if errors.As(err, &groupErr) && attempt < groupRetries {
			continue
		}
		return tempo.RunResult{}, nil, err
	}
}

// txnContext is the strictly ordered TransactionContext: reads see the
// accumulated state of all earlier transactions plus the transaction's own
// buffered writes; no read can ever block.
type txnContext struct {
	view      tempo.StateView
	writes    tempo.WriteSet
	writeKeys map[tempo.Key]int
}

var _ tempo.TransactionContext = (*txnContext)(nil)

func newTxnContext(view tempo.StateView) *txnContext {
	return &txnContext{
		view:      view,
		writeKeys: map[tempo.Key]int{},
	}
}

func (c *txnContext) Read(key tempo.Key) (tempo.Value, error) {
	if pos, ok := c.writeKeys[key]; ok {
		return c.writes[pos].Value, nil
	}
	return c.view.Get(key)
}

func (c *txnContext) ReadCode(key tempo.Key) (tempo.Value, error) {
	// no speculation, no cache: code is read like any other key
	return c.Read(key)
}

func (c *txnContext) Write(key tempo.Key, value tempo.Value) {
	if pos, ok := c.writeKeys[key]; ok {
		c.writes[pos].Value = value
		return
	}
	c.writeKeys[key] = len(c.writes)
	c.writes = append(c.writes, tempo.Write{Key: key, Value: value})
}

func (c *txnContext) Delete(key tempo.Key) {
	c.Write(key, nil)
}

func (c *txnContext) writeSet() tempo.WriteSet {
	return c.writes
}
