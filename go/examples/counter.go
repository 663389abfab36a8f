// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package examples

import (
	"encoding/binary"
	"fmt"

	"github.com/Fantom-foundation/Tempo/go/tempo"
)

// This package provides small deterministic transaction workloads used by
// tests, benchmarks, and the driver. Each workload is a TransactionRunner
// paired with helpers to build its transactions and to decode its outputs,
// in place of an actual virtual machine.

// CounterContract is the account all counter slots live under.
var CounterContract = tempo.Address{0xC0}

const counterGas = tempo.Gas(21_000)

// Counter is a read-modify-write workload: each transaction adds a delta to
// one 64-bit counter slot and outputs the new value. Transactions touching
// the same slot conflict; transactions touching different slots commute.
type Counter struct{}

var _ tempo.TransactionRunner = Counter{}

// NewCounterTransaction builds a transaction adding delta to the given slot.
func NewCounterTransaction(slot tempo.Hash, delta uint64) tempo.Transaction {
	input := make([]byte, 40)
	copy(input[:32], slot[:])
	binary.BigEndian.PutUint64(input[32:], delta)
	key := tempo.StorageKey(CounterContract, slot)
	return tempo.Transaction{
		Input:    input,
		GasLimit: counterGas,
		Accesses: []tempo.AccessHint{
			{Key: key, Mode: tempo.ReadAccess},
			{Key: key, Mode: tempo.WriteAccess},
		},
	}
}

func (Counter) Run(
	_ tempo.BlockParameters,
	transaction tempo.Transaction,
	context tempo.TransactionContext,
) (tempo.RunResult, error) {
	if len(transaction.Input) != 40 {
		return tempo.RunResult{
			Status: tempo.StatusAborted,
			Err:    fmt.Errorf("malformed counter input of %d bytes", len(transaction.Input)),
		}, nil
	}
	slot := tempo.Hash(transaction.Input[:32])
	delta := binary.BigEndian.Uint64(transaction.Input[32:])

	key := tempo.StorageKey(CounterContract, slot)
	current, err := context.Read(key)
	if err != nil {
		return tempo.RunResult{}, err
	}

	value := CounterValue(current) + delta
	output := make([]byte, 8)
	binary.BigEndian.PutUint64(output, value)
	context.Write(key, output)

	return tempo.RunResult{
		Status: tempo.StatusSuccess,
		Receipt: tempo.Receipt{
			Success: true,
			Output:  output,
			GasUsed: counterGas,
		},
	}, nil
}

// CounterValue decodes the value of a counter slot; an absent slot counts
// as zero.
func CounterValue(value tempo.Value) uint64 {
	if len(value) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(value)
}
