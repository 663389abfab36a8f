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
	"bytes"
	"errors"
	"testing"

	"github.com/Fantom-foundation/Tempo/go/state/memory"
	"github.com/Fantom-foundation/Tempo/go/tempo"
)

func newTestView(t *testing.T, versioned *versionedMemory, base tempo.StateView, version tempo.Version) *txnView {
	t.Helper()
	cache, err := tempo.NewCodeCache(16)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return newTxnView(versioned, base, cache, version)
}

func TestTxnView_ReadsFallThroughToTheBaseState(t *testing.T) {
	base := memory.NewState()
	base.Set(keyA, tempo.Value("base"))
	view := newTestView(t, newVersionedMemory(4), base, tempo.Version{TxnIndex: 2})

	value, err := view.Read(keyA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(value, tempo.Value("base")) {
		t.Errorf("expected base value, got %s", value)
	}

	reads := view.readSet()
	if len(reads) != 1 || reads[0].Origin != tempo.ReadFromBase {
		t.Errorf("expected one read from base, got %v", reads)
	}
}

func TestTxnView_ReadsAreServedBySpeculativeWriters(t *testing.T) {
	versioned := newVersionedMemory(4)
	mustRecord(t, versioned, tempo.Version{TxnIndex: 1}, nil, tempo.WriteSet{
		{Key: keyA, Value: tempo.Value("speculative")},
	})
	view := newTestView(t, versioned, memory.NewState(), tempo.Version{TxnIndex: 2})

	value, err := view.Read(keyA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(value, tempo.Value("speculative")) {
		t.Errorf("expected the speculative value, got %s", value)
	}

	reads := view.readSet()
	if len(reads) != 1 || reads[0].Origin != tempo.ReadFromTxn {
		t.Fatalf("expected one read from a transaction, got %v", reads)
	}
	if want := (tempo.Version{TxnIndex: 1}); reads[0].Version != want {
		t.Errorf("expected writer %v, got %v", want, reads[0].Version)
	}
}

func TestTxnView_OwnWritesAreReadBack(t *testing.T) {
	base := memory.NewState()
	base.Set(keyA, tempo.Value("base"))
	view := newTestView(t, newVersionedMemory(4), base, tempo.Version{TxnIndex: 2})

	view.Write(keyA, tempo.Value("own"))
	value, err := view.Read(keyA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(value, tempo.Value("own")) {
		t.Errorf("expected the own write, got %s", value)
	}
	reads := view.readSet()
	if len(reads) != 1 || reads[0].Origin != tempo.ReadFromSelf {
		t.Errorf("expected one read from self, got %v", reads)
	}
}

func TestTxnView_ReadOfAnEstimateReportsTheBlocker(t *testing.T) {
	versioned := newVersionedMemory(4)
	versioned.markEstimates(1, []tempo.Key{keyA})
	view := newTestView(t, versioned, memory.NewState(), tempo.Version{TxnIndex: 3})

	_, err := view.Read(keyA)
	var blocked tempo.BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected a blocked error, got %v", err)
	}
	if blocked.By != 1 {
		t.Errorf("expected to be blocked by transaction 1, got %d", blocked.By)
	}
}

func TestTxnView_RepeatedReadsAreRecordedOnce(t *testing.T) {
	base := memory.NewState()
	base.Set(keyA, tempo.Value("base"))
	view := newTestView(t, newVersionedMemory(4), base, tempo.Version{TxnIndex: 1})

	for i := 0; i < 3; i++ {
		if _, err := view.Read(keyA); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if reads := view.readSet(); len(reads) != 1 {
		t.Errorf("expected a single read descriptor, got %d", len(reads))
	}
}

func TestTxnView_RepeatedWritesKeepTheLastValue(t *testing.T) {
	view := newTestView(t, newVersionedMemory(4), memory.NewState(), tempo.Version{TxnIndex: 1})
	view.Write(keyA, tempo.Value("first"))
	view.Write(keyA, tempo.Value("second"))
	view.Write(keyB, tempo.Value("other"))

	writes := view.writeSet()
	if len(writes) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(writes))
	}
	if !bytes.Equal(writes[0].Value, tempo.Value("second")) {
		t.Errorf("expected the last value, got %s", writes[0].Value)
	}
}

func TestTxnView_DeleteBuffersANilWrite(t *testing.T) {
	view := newTestView(t, newVersionedMemory(4), memory.NewState(), tempo.Version{TxnIndex: 1})
	view.Write(keyA, tempo.Value("value"))
	view.Delete(keyA)

	writes := view.writeSet()
	if len(writes) != 1 || writes[0].Value != nil {
		t.Errorf("expected a single nil write, got %v", writes)
	}

	value, err := view.Read(keyA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != nil {
		t.Errorf("expected the deletion to be read back, got %s", value)
	}
}

func TestTxnView_ReadCodeUsesTheCachePerWriter(t *testing.T) {
	code := tempo.CodeKey(tempo.Address{7})
	base := memory.NewState()
	base.SetCode(tempo.Address{7}, []byte("base code"))

	cache, err := tempo.NewCodeCache(16)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	versioned := newVersionedMemory(4)
	view := newTxnView(versioned, base, cache, tempo.Version{TxnIndex: 2})

	value, err := view.ReadCode(code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(value, tempo.Value("base code")) {
		t.Errorf("expected the base code, got %s", value)
	}

	// the value read from the base state is now cached under the base identity
	if cached, ok := cache.Get(code, tempo.InvalidVersion); !ok || !bytes.Equal(cached, value) {
		t.Errorf("expected the code to be cached, got %s (found: %t)", cached, ok)
	}

	// a second view against a poisoned base is served from the cache
	base.SetCode(tempo.Address{7}, []byte("changed"))
	other := newTxnView(versioned, base, cache, tempo.Version{TxnIndex: 3})
	value, err = other.ReadCode(code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(value, tempo.Value("base code")) {
		t.Errorf("expected the cached code, got %s", value)
	}
}

func TestTxnView_ReadCodeOfOwnWriteIsKeyedToTheOwnVersion(t *testing.T) {
	code := tempo.CodeKey(tempo.Address{7})
	cache, err := tempo.NewCodeCache(16)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	version := tempo.Version{TxnIndex: 2, Incarnation: 1}
	view := newTxnView(newVersionedMemory(4), memory.NewState(), cache, version)

	view.Write(code, tempo.Value("own code"))
	if _, err := view.ReadCode(code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := cache.Get(code, tempo.Version{TxnIndex: 2, Incarnation: 0}); ok {
		t.Errorf("own code must not be visible under an older incarnation")
	}
	if cached, ok := cache.Get(code, version); !ok || !bytes.Equal(cached, tempo.Value("own code")) {
		t.Errorf("expected the own code under the own version, got %s (found: %t)", cached, ok)
	}
}

func TestTxnView_CodeReadAfterForeignPublishIsRejected(t *testing.T) {
	code := tempo.CodeKey(tempo.Address{7})
	versioned := newVersionedMemory(4)
	mustRecord(t, versioned, tempo.Version{TxnIndex: 1}, nil, tempo.WriteSet{
		{Key: code, Value: tempo.Value("published")},
	})

	view := newTestView(t, versioned, memory.NewState(), tempo.Version{TxnIndex: 3})
	if _, err := view.Read(code); !errors.Is(err, tempo.ErrCodeInterference) {
		t.Errorf("expected code interference, got %v", err)
	}
}
