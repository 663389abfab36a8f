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
	"github.com/Fantom-foundation/Tempo/go/tempo"
)

// Overlay layers a set of buffered writes over a read-only base view. It is
// the accumulated-writes view of a strictly ordered block execution: each
// transaction sees the base state plus the writes of all earlier
// transactions. An overlay is not safe for concurrent use.
type Overlay struct {
	base   tempo.StateView
	writes map[tempo.Key]tempo.Value // stored nil marks a deletion
}

var _ tempo.StateView = (*Overlay)(nil)

func NewOverlay(base tempo.StateView) *Overlay {
	return &Overlay{
		base:   base,
		writes: map[tempo.Key]tempo.Value{},
	}
}

func (o *Overlay) Get(key tempo.Key) (tempo.Value, error) {
	if value, ok := o.writes[key]; ok {
		return value, nil
	}
	return o.base.Get(key)
}

// Usage reports the usage of the base view plus the overlay content. Keys
// overwritten in the overlay are counted once per layer; the result is an
// upper bound.
func (o *Overlay) Usage() tempo.StorageUsage {
	usage := o.base.Usage()
	for _, value := range o.writes {
		if value != nil {
			usage.Items++
			usage.Bytes += uint64(len(value))
		}
	}
	return usage
}

// Apply buffers all updates of the given write set.
func (o *Overlay) Apply(writes tempo.WriteSet) {
	for _, write := range writes {
		o.writes[write.Key] = write.Value
	}
}
