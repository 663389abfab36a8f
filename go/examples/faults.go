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
	"bytes"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/Tempo/go/tempo"
)

// faultMagic marks transactions handled by the fault injector itself
// instead of being forwarded to the wrapped runner.
const faultMagic = byte(0xFA)

// Fault operations understood by the injector.
const (
	FaultSkipRest      = byte(0x01) // successful transaction ending the block
	FaultAbort         = byte(0x02) // transaction reporting an aborted execution
	FaultGroupConflict = byte(0x03) // fails with a group serialization error N times
	FaultPublishCode   = byte(0x04) // writes a code location
	FaultReadCode      = byte(0x05) // reads the same code location
)

// faultCodeTarget is the code location fought over by the publish/read faults.
var faultCodeTarget = tempo.Address{0xFA, 0x01}

// FaultInjector wraps a runner and intercepts transactions carrying fault
// instructions. All other transactions are forwarded unchanged. It is a test
// utility for driving the executor through its error paths.
type FaultInjector struct {
	Wrapped tempo.TransactionRunner

	mu       sync.Mutex
	attempts map[string]int
}

var _ tempo.TransactionRunner = (*FaultInjector)(nil)

// NewFaultTransaction builds a transaction triggering the given fault
// operation. The extra bytes parameterize the fault; for FaultGroupConflict
// the first extra byte is the number of failing attempts.
func NewFaultTransaction(op byte, extra ...byte) tempo.Transaction {
	return tempo.Transaction{
		Input:    append([]byte{faultMagic, op}, extra...),
		GasLimit: counterGas,
	}
}

func (f *FaultInjector) Run(
	params tempo.BlockParameters,
	transaction tempo.Transaction,
	context tempo.TransactionContext,
) (tempo.RunResult, error) {
	input := transaction.Input
	if len(input) < 2 || input[0] != faultMagic {
		return f.Wrapped.Run(params, transaction, context)
	}

	switch input[1] {
	case FaultSkipRest:
		return tempo.RunResult{
			Status: tempo.StatusSkipRest,
			Receipt: tempo.Receipt{
				Success: true,
				GasUsed: counterGas,
			},
		}, nil

	case FaultAbort:
		return tempo.RunResult{
			Status: tempo.StatusAborted,
			Err:    fmt.Errorf("injected abort"),
		}, nil

	case FaultGroupConflict:
		limit := 1
		if len(input) > 2 {
			limit = int(input[2])
		}
		if f.takeAttempt(input) <= limit {
			return tempo.RunResult{}, tempo.GroupSerializationError{
				Key: tempo.GroupKey(faultCodeTarget, tempo.Hash{}),
				Err: fmt.Errorf("injected group conflict"),
			}
		}
		return success(nil), nil

	case FaultPublishCode:
		context.Write(tempo.CodeKey(faultCodeTarget), []byte("published"))
		return success([]byte("published")), nil

	case FaultReadCode:
		code, err := context.ReadCode(tempo.CodeKey(faultCodeTarget))
		if err != nil {
			return tempo.RunResult{}, err
		}
		return success(bytes.Clone(code)), nil
	}

	return tempo.RunResult{
		Status: tempo.StatusAborted,
		Err:    fmt.Errorf("unknown fault operation 0x%02x", input[1]),
	}, nil
}

// takeAttempt counts executions per distinct fault input, surviving
// re-executions of the same transaction.
func (f *FaultInjector) takeAttempt(input []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempts == nil {
		f.attempts = map[string]int{}
	}
	f.attempts[string(input)]++
	return f.attempts[string(input)]
}

func success(output []byte) tempo.RunResult {
	return tempo.RunResult{
		Status: tempo.StatusSuccess,
		Receipt: tempo.Receipt{
			Success: true,
			Output:  output,
			GasUsed: counterGas,
		},
	}
}
