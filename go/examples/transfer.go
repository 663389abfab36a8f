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
	"fmt"

	"github.com/Fantom-foundation/Tempo/go/tempo"
	"github.com/holiman/uint256"
)

var balancePath = tempo.Hash{'b', 'a', 'l', 'a', 'n', 'c', 'e'}

const transferGas = tempo.Gas(21_000)

// BalanceKey is the key the balance of the given account is stored under.
func BalanceKey(account tempo.Address) tempo.Key {
	return tempo.StorageKey(account, balancePath)
}

// Transfer is a payment workload: each transaction moves an amount from the
// sender's balance to a recipient's balance. A transfer exceeding the
// sender's balance reverts without touching any state.
type Transfer struct{}

var _ tempo.TransactionRunner = Transfer{}

// NewTransferTransaction builds a transaction moving amount from sender
// to recipient.
func NewTransferTransaction(sender, recipient tempo.Address, amount uint64) tempo.Transaction {
	value := uint256.NewInt(amount).Bytes32()
	input := make([]byte, 52)
	copy(input[:20], recipient[:])
	copy(input[20:], value[:])
	return tempo.Transaction{
		Sender:   sender,
		Input:    input,
		GasLimit: transferGas,
		Accesses: []tempo.AccessHint{
			{Key: BalanceKey(sender), Mode: tempo.WriteAccess},
			{Key: BalanceKey(recipient), Mode: tempo.WriteAccess},
		},
	}
}

func (Transfer) Run(
	_ tempo.BlockParameters,
	transaction tempo.Transaction,
	context tempo.TransactionContext,
) (tempo.RunResult, error) {
	if len(transaction.Input) != 52 {
		return tempo.RunResult{
			Status: tempo.StatusAborted,
			Err:    fmt.Errorf("malformed transfer input of %d bytes", len(transaction.Input)),
		}, nil
	}
	recipient := tempo.Address(transaction.Input[:20])
	amount := new(uint256.Int).SetBytes(transaction.Input[20:])

	senderBalance, err := readBalance(context, transaction.Sender)
	if err != nil {
		return tempo.RunResult{}, err
	}
	if senderBalance.Lt(amount) {
		return tempo.RunResult{
			Status:  tempo.StatusSuccess,
			Receipt: tempo.Receipt{Success: false, GasUsed: transferGas},
		}, nil
	}

	writeBalance(context, transaction.Sender, new(uint256.Int).Sub(senderBalance, amount))

	// read after the debit, so a self-transfer observes the reduced balance
	recipientBalance, err := readBalance(context, recipient)
	if err != nil {
		return tempo.RunResult{}, err
	}
	writeBalance(context, recipient, new(uint256.Int).Add(recipientBalance, amount))

	return tempo.RunResult{
		Status:  tempo.StatusSuccess,
		Receipt: tempo.Receipt{Success: true, GasUsed: transferGas},
	}, nil
}

func readBalance(context tempo.TransactionContext, account tempo.Address) (*uint256.Int, error) {
	value, err := context.Read(BalanceKey(account))
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(value), nil
}

func writeBalance(context tempo.TransactionContext, account tempo.Address, balance *uint256.Int) {
	value := balance.Bytes32()
	context.Write(BalanceKey(account), value[:])
}
