// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"sync"

	"github.com/Fantom-foundation/Tempo/go/tempo"
	"github.com/ethereum/go-ethereum/crypto"
)

// State is an in-memory implementation of a base state view. It is used by
// tools and tests as the state a block is executed against, and offers the
// mutators a state view deliberately lacks.
type State struct {
	mu    sync.RWMutex
	data  map[tempo.Key]tempo.Value
	bytes uint64
}

var _ tempo.StateView = (*State)(nil)

func NewState() *State {
	return &State{data: map[tempo.Key]tempo.Value{}}
}

func (s *State) Get(key tempo.Key) (tempo.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key], nil
}

func (s *State) Usage() tempo.StorageUsage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tempo.StorageUsage{
		Items: uint64(len(s.data)),
		Bytes: s.bytes,
	}
}

// Set stores the given value; a nil value removes the key.
func (s *State) Set(key tempo.Key, value tempo.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, value)
}

// Apply installs all updates of the given write set.
func (s *State) Apply(writes tempo.WriteSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, write := range writes {
		s.set(write.Key, write.Value)
	}
}

// SetCode deploys the given code under the code path of the given contract
// and returns the code hash.
func (s *State) SetCode(contract tempo.Address, code []byte) tempo.Hash {
	s.Set(tempo.CodeKey(contract), code)
	return CodeHash(code)
}

// Clone creates a deep, independent copy of the state.
func (s *State) Clone() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &State{
		data:  make(map[tempo.Key]tempo.Value, len(s.data)),
		bytes: s.bytes,
	}
	for key, value := range s.data {
		copied := make(tempo.Value, len(value))
		copy(copied, value)
		clone.data[key] = copied
	}
	return clone
}

func (s *State) set(key tempo.Key, value tempo.Value) {
	if old, ok := s.data[key]; ok {
		s.bytes -= uint64(len(old))
	}
	if value == nil {
		delete(s.data, key)
		return
	}
	s.data[key] = value
	s.bytes += uint64(len(value))
}

// CodeHash computes the hash identifying the given code.
func CodeHash(code []byte) tempo.Hash {
	return tempo.Hash(crypto.Keccak256Hash(code))
}
