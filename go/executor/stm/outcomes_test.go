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
	"testing"
	"time"

	"github.com/Fantom-foundation/Tempo/go/tempo"
)

func TestOutcomeSet_StoresAndReportsOutcomes(t *testing.T) {
	set := newOutcomeSet(3)
	if set.isSet(1) {
		t.Errorf("fresh slot must not be set")
	}
	set.set(1, tempo.Outcome{Status: tempo.StatusSuccess})
	if !set.isSet(1) {
		t.Errorf("slot must be set after storing an outcome")
	}
}

func TestOutcomeSet_CollectReturnsOutcomesInIndexOrder(t *testing.T) {
	set := newOutcomeSet(3)
	set.set(2, tempo.Outcome{Receipt: tempo.Receipt{GasUsed: 2}})
	set.set(0, tempo.Outcome{Receipt: tempo.Receipt{GasUsed: 0}})
	set.set(1, tempo.Outcome{Receipt: tempo.Receipt{GasUsed: 1}})

	outcomes := set.collect(3)
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	for i, outcome := range outcomes {
		if outcome.Receipt.GasUsed != tempo.Gas(i) {
			t.Errorf("outcome %d out of order, got gas %d", i, outcome.Receipt.GasUsed)
		}
	}
}

func TestOutcomeSet_CollectWaitsForMissingOutcomes(t *testing.T) {
	set := newOutcomeSet(2)
	set.set(0, tempo.Outcome{})

	done := make(chan []tempo.Outcome)
	go func() {
		done <- set.collect(2)
	}()

	select {
	case <-done:
		t.Fatalf("collect must not return before all outcomes are set")
	case <-time.After(10 * time.Millisecond):
	}

	set.set(1, tempo.Outcome{})
	select {
	case outcomes := <-done:
		if len(outcomes) != 2 {
			t.Errorf("expected 2 outcomes, got %d", len(outcomes))
		}
	case <-time.After(time.Second):
		t.Fatalf("collect did not return after the last outcome was set")
	}
}

func TestOutcomeSet_CollectBelowBoundaryIgnoresMissingTail(t *testing.T) {
	set := newOutcomeSet(4)
	set.set(0, tempo.Outcome{})
	set.set(1, tempo.Outcome{})

	outcomes := set.collect(2)
	if len(outcomes) != 2 {
		t.Errorf("expected 2 outcomes, got %d", len(outcomes))
	}
}

func TestOutcomeSet_DoubleCommitPanics(t *testing.T) {
	set := newOutcomeSet(1)
	set.set(0, tempo.Outcome{})
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic, got nil")
		}
		if _, ok := r.(tempo.InvariantViolationError); !ok {
			t.Errorf("expected an invariant violation, got %v", r)
		}
	}()
	set.set(0, tempo.Outcome{})
}
