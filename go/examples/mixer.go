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
	"golang.org/x/crypto/sha3"
)

// MixerContract is the account the mixer code and its slots live under.
var MixerContract = tempo.Address{0x3A}

// MixerCode is the "program" of the mixer workload. Its content seeds the
// slot derivation, so replacing the code changes the access pattern of all
// mixer transactions.
var MixerCode = []byte("tempo-mixer-v1")

const (
	mixerGas    = tempo.Gas(30_000)
	mixerRounds = 4
)

// Mixer is a hash-chasing workload: each transaction resolves the mixer
// code through the code cache, derives a chain of slots from the code and
// its seed, folds the slot contents, and writes the result to the last slot
// of the chain. It exercises code path reads and scattered storage access.
type Mixer struct{}

var _ tempo.TransactionRunner = Mixer{}

// NewMixerTransaction builds a mixer transaction for the given seed.
func NewMixerTransaction(seed uint64) tempo.Transaction {
	input := make([]byte, 8)
	binary.BigEndian.PutUint64(input, seed)
	return tempo.Transaction{
		Input:    input,
		GasLimit: mixerGas,
	}
}

func (Mixer) Run(
	_ tempo.BlockParameters,
	transaction tempo.Transaction,
	context tempo.TransactionContext,
) (tempo.RunResult, error) {
	if len(transaction.Input) != 8 {
		return tempo.RunResult{
			Status: tempo.StatusAborted,
			Err:    fmt.Errorf("malformed mixer input of %d bytes", len(transaction.Input)),
		}, nil
	}

	code, err := context.ReadCode(tempo.CodeKey(MixerContract))
	if err != nil {
		return tempo.RunResult{}, err
	}

	var folded uint64
	var slot tempo.Hash
	for round := 0; round < mixerRounds; round++ {
		slot = deriveSlot(code, transaction.Input, round)
		value, err := context.Read(tempo.StorageKey(MixerContract, slot))
		if err != nil {
			return tempo.RunResult{}, err
		}
		folded = folded*31 + CounterValue(value) + 1
	}

	output := make([]byte, 8)
	binary.BigEndian.PutUint64(output, folded)
	context.Write(tempo.StorageKey(MixerContract, slot), output)

	return tempo.RunResult{
		Status: tempo.StatusSuccess,
		Receipt: tempo.Receipt{
			Success: true,
			Output:  output,
			GasUsed: mixerGas,
		},
	}, nil
}

func deriveSlot(code []byte, seed []byte, round int) tempo.Hash {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(code)
	hasher.Write(seed)
	hasher.Write([]byte{byte(round)})
	var slot tempo.Hash
	hasher.Sum(slot[0:0])
	return slot
}
