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
	"github.com/Fantom-foundation/Tempo/go/tempo"
)

// txnView is the TransactionContext of one execution attempt. Reads are
// resolved through the versioned memory with fall-through to the base state
// and recorded in the attempt's read set; writes are buffered and only
// published when the attempt finishes. A view is used by a single goroutine
// for a single incarnation and discarded afterwards.
type txnView struct {
	memory  *versionedMemory
	base    tempo.StateView
	cache   *tempo.CodeCache
	txn     tempo.TxnIndex
	version tempo.Version

	reads     tempo.ReadSet
	readKeys  map[tempo.Key]struct{}
	writes    tempo.WriteSet
	writeKeys map[tempo.Key]int // position in writes
}

var _ tempo.TransactionContext = (*txnView)(nil)

func newTxnView(memory *versionedMemory, base tempo.StateView, cache *tempo.CodeCache, version tempo.Version) *txnView {
	return &txnView{
		memory:    memory,
		base:      base,
		cache:     cache,
		txn:       version.TxnIndex,
		version:   version,
		readKeys:  map[tempo.Key]struct{}{},
		writeKeys: map[tempo.Key]int{},
	}
}

func (v *txnView) Read(key tempo.Key) (tempo.Value, error) {
	value, _, err := v.resolve(key)
	return value, err
}

func (v *txnView) ReadCode(key tempo.Key) (tempo.Value, error) {
	// resolve determines the serving writer first; the cache is consulted
	// under that identity, so no entry cached for a different incarnation
	// can ever be observed here.
	value, version, err := v.resolve(key)
	if err != nil {
		return nil, err
	}
	if cached, ok := v.cache.Get(key, version); ok {
		return cached, nil
	}
	v.cache.Put(key, version, value)
	return value, nil
}

func (v *txnView) Write(key tempo.Key, value tempo.Value) {
	if pos, ok := v.writeKeys[key]; ok {
		v.writes[pos].Value = value
		return
	}
	v.writeKeys[key] = len(v.writes)
	v.writes = append(v.writes, tempo.Write{Key: key, Value: value})
}

func (v *txnView) Delete(key tempo.Key) {
	v.Write(key, nil)
}

// resolve looks up the value of a key together with the identity of its
// writer: the own write buffer first, then the versioned memory, then the
// base state.
func (v *txnView) resolve(key tempo.Key) (tempo.Value, tempo.Version, error) {
	if pos, ok := v.writeKeys[key]; ok {
		v.record(tempo.ReadDescriptor{Key: key, Origin: tempo.ReadFromSelf})
		return v.writes[pos].Value, v.version, nil
	}

	if key.Kind == tempo.CodePath {
		if err := v.memory.registerCodeRead(key, v.txn); err != nil {
			return nil, tempo.InvalidVersion, err
		}
	}

	res := v.memory.read(key, v.txn)
	switch res.status {
	case readBlocked:
		return nil, tempo.InvalidVersion, tempo.BlockedError{By: res.blockedBy}
	case readHit:
		v.record(tempo.ReadDescriptor{Key: key, Origin: tempo.ReadFromTxn, Version: res.version})
		return res.value, res.version, nil
	}

	value, err := v.base.Get(key)
	if err != nil {
		return nil, tempo.InvalidVersion, err
	}
	v.record(tempo.ReadDescriptor{Key: key, Origin: tempo.ReadFromBase, Version: tempo.InvalidVersion})
	return value, tempo.InvalidVersion, nil
}

// record notes the first read of each key; repeated reads of the same key
// within one incarnation resolve to the same writer and add no information.
func (v *txnView) record(read tempo.ReadDescriptor) {
	if _, ok := v.readKeys[read.Key]; ok {
		return
	}
	v.readKeys[read.Key] = struct{}{}
	v.reads = append(v.reads, read)
}

func (v *txnView) readSet() tempo.ReadSet {
	return v.reads
}

func (v *txnView) writeSet() tempo.WriteSet {
	return v.writes
}
