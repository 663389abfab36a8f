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
	"fmt"
	"sync"

	"github.com/Fantom-foundation/Tempo/go/tempo"
)

// outcomeSet holds one write-once slot per transaction index for the
// committed outcome of the transaction. Slots are set by the in-order commit
// path and read after the block completed; setting a slot twice is a
// programming error of the engine, not a recoverable condition.
type outcomeSet struct {
	mu    sync.Mutex
	cond  *sync.Cond
	slots []*tempo.Outcome
}

func newOutcomeSet(blockSize int) *outcomeSet {
	set := &outcomeSet{
		slots: make([]*tempo.Outcome, blockSize),
	}
	set.cond = sync.NewCond(&set.mu)
	return set
}

// set stores the committed outcome of the given transaction. It panics if
// the slot is already occupied.
func (s *outcomeSet) set(txn tempo.TxnIndex, outcome tempo.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slots[txn] != nil {
		panic(tempo.InvariantViolationError{Msg: fmt.Sprintf(
			"outcome of transaction %d committed twice", txn)})
	}
	s.slots[txn] = &outcome
	s.cond.Broadcast()
}

// isSet reports whether the outcome of the given transaction is committed.
func (s *outcomeSet) isSet(txn tempo.TxnIndex) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[txn] != nil
}

// collect blocks until all slots below the given boundary are set and
// returns them in index order.
func (s *outcomeSet) collect(below tempo.TxnIndex) []tempo.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		complete := true
		for i := tempo.TxnIndex(0); i < below; i++ {
			if s.slots[i] == nil {
				complete = false
				break
			}
		}
		if complete {
			break
		}
		s.cond.Wait()
	}
	result := make([]tempo.Outcome, below)
	for i := tempo.TxnIndex(0); i < below; i++ {
		result[i] = *s.slots[i]
	}
	return result
}
