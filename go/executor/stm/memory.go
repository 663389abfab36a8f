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
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Fantom-foundation/Tempo/go/tempo"
	"github.com/google/btree"
)

// versionedMemory is a multi-version map from state key to the ordered list
// of per-transaction writes of one block. It serves speculative reads, keeps
// the last recorded read and write set per transaction, and tracks code path
// accesses to detect read/write interference.
//
// All operations are per-key independent; writers to different keys never
// block each other. Reads and writes of the same key are linearized by a
// per-key lock.
type versionedMemory struct {
	data       sync.Map // tempo.Key -> *memoryCell
	lastWrites []atomic.Pointer[[]tempo.Key]
	lastReads  []atomic.Pointer[tempo.ReadSet]

	// first transaction reading respectively writing each code path
	codeReaders sync.Map // tempo.Key -> tempo.TxnIndex
	codeWriters sync.Map // tempo.Key -> tempo.TxnIndex
}

// memoryEntry is the write of one transaction to one key. An estimate entry
// announces a write that has not been produced yet; readers observing it
// have to wait for the writer instead of drawing a false "no writer at this
// index" conclusion.
type memoryEntry struct {
	txn         tempo.TxnIndex
	incarnation tempo.Incarnation
	value       tempo.Value
	estimate    bool
}

// memoryCell holds all entries of one key, ordered by transaction index.
type memoryCell struct {
	mu      sync.RWMutex
	entries *btree.BTreeG[*memoryEntry]
}

func newMemoryCell() *memoryCell {
	return &memoryCell{
		entries: btree.NewG(2, func(a, b *memoryEntry) bool {
			return a.txn < b.txn
		}),
	}
}

type readStatus byte

const (
	// readHit: the key is served by the write of a lower-indexed
	// transaction; a nil value denotes a deletion by that transaction.
	readHit readStatus = iota
	// readNotFound: no lower-indexed transaction wrote the key; the read
	// falls through to the base state.
	readNotFound
	// readBlocked: the closest lower entry is an estimate; the reader has
	// to wait for the announced writer.
	readBlocked
)

type readResult struct {
	status    readStatus
	version   tempo.Version
	value     tempo.Value
	blockedBy tempo.TxnIndex
}

func newVersionedMemory(blockSize int) *versionedMemory {
	return &versionedMemory{
		lastWrites: make([]atomic.Pointer[[]tempo.Key], blockSize),
		lastReads:  make([]atomic.Pointer[tempo.ReadSet], blockSize),
	}
}

// read resolves the value of the given key as observed by the transaction
// with the given index: the highest-indexed non-estimate entry below it.
func (m *versionedMemory) read(key tempo.Key, txn tempo.TxnIndex) (result readResult) {
	cell := m.getCell(key, false)
	if cell == nil {
		result.status = readNotFound
		return
	}

	cell.mu.RLock()
	defer cell.mu.RUnlock()

	var found *memoryEntry
	cell.entries.DescendLessOrEqual(&memoryEntry{txn: txn - 1}, func(entry *memoryEntry) bool {
		found = entry
		return false
	})

	if found == nil {
		result.status = readNotFound
		return
	}
	if found.estimate {
		result.status = readBlocked
		result.blockedBy = found.txn
		return
	}
	result.status = readHit
	result.version = tempo.Version{TxnIndex: found.txn, Incarnation: found.incarnation}
	result.value = found.value
	return
}

// record publishes the read and write set of one finished incarnation.
// Writes of the previous incarnation to keys no longer written are removed;
// this includes estimates seeded from access hints that never materialized.
// The result reports whether a key was written that the previous incarnation
// did not write, which forces re-validation of higher-indexed transactions.
func (m *versionedMemory) record(version tempo.Version, reads tempo.ReadSet, writes tempo.WriteSet) (wroteNewKey bool, err error) {
	newKeys := make(map[tempo.Key]struct{}, len(writes))
	for _, w := range writes {
		if w.Key.Kind == tempo.CodePath {
			if err := m.registerCodeWrite(w.Key, version.TxnIndex); err != nil {
				return false, err
			}
		}
		m.writeEntry(w.Key, version, w.Value)
		newKeys[w.Key] = struct{}{}
	}

	prev := m.lastWrites[version.TxnIndex].Load()
	if prev != nil {
		prevKeys := make(map[tempo.Key]struct{}, len(*prev))
		for _, key := range *prev {
			prevKeys[key] = struct{}{}
		}
		for key := range newKeys {
			if _, ok := prevKeys[key]; !ok {
				wroteNewKey = true
				break
			}
		}
		for key := range prevKeys {
			if _, ok := newKeys[key]; !ok {
				m.removeEntry(key, version.TxnIndex)
			}
		}
	} else {
		wroteNewKey = len(newKeys) > 0
	}

	keyList := make([]tempo.Key, 0, len(newKeys))
	for _, w := range writes {
		if _, ok := newKeys[w.Key]; ok {
			keyList = append(keyList, w.Key)
			delete(newKeys, w.Key)
		}
	}
	m.lastWrites[version.TxnIndex].Store(&keyList)
	m.lastReads[version.TxnIndex].Store(&reads)

	return wroteNewKey, nil
}

// markEstimates seeds estimate entries for the declared write set of a
// transaction before its first execution. The keys are registered as the
// transaction's current write locations, so entries for keys the actual
// execution does not write are cleaned up by record.
func (m *versionedMemory) markEstimates(txn tempo.TxnIndex, keys []tempo.Key) {
	for _, key := range keys {
		cell := m.getCell(key, true)
		cell.mu.Lock()
		if _, ok := cell.entries.Get(&memoryEntry{txn: txn}); !ok {
			cell.entries.ReplaceOrInsert(&memoryEntry{txn: txn, estimate: true})
		}
		cell.mu.Unlock()
	}
	list := make([]tempo.Key, len(keys))
	copy(list, keys)
	m.lastWrites[txn].Store(&list)
}

// convertWritesToEstimates downgrades all writes of an invalidated
// incarnation to estimates, steering readers away until the re-execution
// replaces them.
func (m *versionedMemory) convertWritesToEstimates(txn tempo.TxnIndex) {
	prev := m.lastWrites[txn].Load()
	if prev == nil {
		return
	}
	for _, key := range *prev {
		cell := m.getCell(key, false)
		if cell == nil {
			continue
		}
		cell.mu.Lock()
		if entry, ok := cell.entries.Get(&memoryEntry{txn: txn}); ok {
			entry.estimate = true
		}
		cell.mu.Unlock()
	}
}

// validateReadSet replays the recorded read set of the given transaction
// against the current memory state. It returns false if any read would now
// be served by a different writer than at execution time.
func (m *versionedMemory) validateReadSet(txn tempo.TxnIndex) bool {
	reads := m.lastReads[txn].Load()
	if reads == nil {
		return true
	}
	for _, read := range *reads {
		switch read.Origin {
		case tempo.ReadFromSelf:
			// reads of own writes cannot be invalidated
		case tempo.ReadFromBase:
			if cur := m.read(read.Key, txn); cur.status != readNotFound {
				return false
			}
		case tempo.ReadFromTxn:
			cur := m.read(read.Key, txn)
			if cur.status != readHit || cur.version != read.Version {
				return false
			}
		}
	}
	return true
}

// clearTxn removes all entries of the given transaction. It is used to
// discard the speculative writes of transactions above a skip boundary.
func (m *versionedMemory) clearTxn(txn tempo.TxnIndex) {
	prev := m.lastWrites[txn].Load()
	if prev == nil {
		return
	}
	for _, key := range *prev {
		m.removeEntry(key, txn)
	}
	empty := []tempo.Key{}
	m.lastWrites[txn].Store(&empty)
}

// snapshot collects the accumulated writes of all transactions below the
// given boundary, ordered by key. Nil values report deletions.
func (m *versionedMemory) snapshot(below tempo.TxnIndex) tempo.WriteSet {
	var result tempo.WriteSet
	m.data.Range(func(k, _ any) bool {
		key := k.(tempo.Key)
		if res := m.read(key, below); res.status == readHit {
			result = append(result, tempo.Write{Key: key, Value: res.value})
		}
		return true
	})
	sortWriteSet(result)
	return result
}

// danglingEstimates returns the keys still holding an estimate entry. After
// a completed block execution the result must be empty.
func (m *versionedMemory) danglingEstimates() []tempo.Key {
	var keys []tempo.Key
	m.data.Range(func(k, c any) bool {
		cell := c.(*memoryCell)
		cell.mu.RLock()
		cell.entries.Ascend(func(entry *memoryEntry) bool {
			if entry.estimate {
				keys = append(keys, k.(tempo.Key))
				return false
			}
			return true
		})
		cell.mu.RUnlock()
		return true
	})
	return keys
}

// registerCodeRead notes that the given transaction resolves the given code
// path. If another transaction of the block has published to the same path,
// the block is disqualified from parallel execution.
func (m *versionedMemory) registerCodeRead(key tempo.Key, txn tempo.TxnIndex) error {
	m.codeReaders.LoadOrStore(key, txn)
	if writer, ok := m.codeWriters.Load(key); ok && writer.(tempo.TxnIndex) != txn {
		return tempo.ErrCodeInterference
	}
	return nil
}

func (m *versionedMemory) registerCodeWrite(key tempo.Key, txn tempo.TxnIndex) error {
	m.codeWriters.LoadOrStore(key, txn)
	if reader, ok := m.codeReaders.Load(key); ok && reader.(tempo.TxnIndex) != txn {
		return tempo.ErrCodeInterference
	}
	return nil
}

func (m *versionedMemory) writeEntry(key tempo.Key, version tempo.Version, value tempo.Value) {
	cell := m.getCell(key, true)
	cell.mu.Lock()
	defer cell.mu.Unlock()

	if entry, ok := cell.entries.Get(&memoryEntry{txn: version.TxnIndex}); ok {
		if !entry.estimate && entry.incarnation > version.Incarnation {
			panic(tempo.InvariantViolationError{Msg: fmt.Sprintf(
				"write of %v would regress incarnation %d of transaction %d",
				version, entry.incarnation, version.TxnIndex)})
		}
		entry.estimate = false
		entry.incarnation = version.Incarnation
		entry.value = value
		return
	}
	cell.entries.ReplaceOrInsert(&memoryEntry{
		txn:         version.TxnIndex,
		incarnation: version.Incarnation,
		value:       value,
	})
}

func (m *versionedMemory) removeEntry(key tempo.Key, txn tempo.TxnIndex) {
	cell := m.getCell(key, false)
	if cell == nil {
		return
	}
	cell.mu.Lock()
	cell.entries.Delete(&memoryEntry{txn: txn})
	cell.mu.Unlock()
}

func (m *versionedMemory) getCell(key tempo.Key, create bool) *memoryCell {
	if cell, ok := m.data.Load(key); ok {
		return cell.(*memoryCell)
	}
	if !create {
		return nil
	}
	cell, _ := m.data.LoadOrStore(key, newMemoryCell())
	return cell.(*memoryCell)
}

func sortWriteSet(writes tempo.WriteSet) {
	slices.SortFunc(writes, func(a, b tempo.Write) int {
		return a.Key.Compare(b.Key)
	})
}
