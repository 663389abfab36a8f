// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tempo

import (
	"slices"
	"testing"

	"pgregory.net/rand"
)

func TestVersion_InvalidVersionIsNotValid(t *testing.T) {
	if InvalidVersion.Valid() {
		t.Errorf("invalid version must not be valid")
	}
	if got := InvalidVersion.String(); got != "version(base)" {
		t.Errorf("unexpected print, got %s", got)
	}
}

func TestVersion_ActualAttemptsAreValid(t *testing.T) {
	tests := map[string]struct {
		version Version
		valid   bool
	}{
		"first attempt of first transaction": {Version{0, 0}, true},
		"later incarnation":                  {Version{3, 7}, true},
		"base state marker":                  {InvalidVersion, false},
		"negative index":                     {Version{TxnIndex: -5}, false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if got := test.version.Valid(); got != test.valid {
				t.Errorf("expected Valid() = %t, got %t", test.valid, got)
			}
		})
	}
}

func TestKey_CompareOrdersByContractKindAndPath(t *testing.T) {
	a := Address{1}
	b := Address{2}
	keys := []Key{
		StorageKey(a, Hash{0}),
		StorageKey(a, Hash{1}),
		CodeKey(a),
		GroupKey(a, Hash{0}),
		StorageKey(b, Hash{0}),
		CodeKey(b),
	}
	for i, low := range keys {
		for j, high := range keys {
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			if got := low.Compare(high); got != want {
				t.Errorf("Compare(%v, %v) = %d, want %d", low, high, got, want)
			}
		}
	}
}

func TestKey_CompareIsConsistentWithEquality(t *testing.T) {
	r := rand.New(0)
	for i := 0; i < 100; i++ {
		a := randomKey(r)
		b := randomKey(r)
		if (a == b) != (a.Compare(b) == 0) {
			t.Errorf("equality and ordering disagree for %v and %v", a, b)
		}
		if a.Compare(b) != -b.Compare(a) {
			t.Errorf("ordering not antisymmetric for %v and %v", a, b)
		}
	}
}

func TestKey_SortingKeysGroupsKindsPerContract(t *testing.T) {
	contract := Address{0x42}
	keys := []Key{
		GroupKey(contract, Hash{3}),
		StorageKey(contract, Hash{7}),
		CodeKey(contract),
		StorageKey(contract, Hash{1}),
	}
	slices.SortFunc(keys, Key.Compare)
	want := []Key{
		StorageKey(contract, Hash{1}),
		StorageKey(contract, Hash{7}),
		CodeKey(contract),
		GroupKey(contract, Hash{3}),
	}
	if !slices.Equal(keys, want) {
		t.Errorf("unexpected order, got %v, want %v", keys, want)
	}
}

func TestKey_ConstructorsSetTheKind(t *testing.T) {
	contract := Address{0x42}
	path := Hash{0x07}
	tests := map[string]struct {
		key  Key
		kind PathKind
	}{
		"storage": {StorageKey(contract, path), StoragePath},
		"code":    {CodeKey(contract), CodePath},
		"group":   {GroupKey(contract, path), GroupPath},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if test.key.Kind != test.kind {
				t.Errorf("expected kind %v, got %v", test.kind, test.key.Kind)
			}
			if test.key.Contract != contract {
				t.Errorf("expected contract %v, got %v", contract, test.key.Contract)
			}
		})
	}
}

func TestExecutionStatus_Printing(t *testing.T) {
	tests := map[ExecutionStatus]string{
		StatusSuccess:       "success",
		StatusSkipRest:      "skip_rest",
		StatusSkipped:       "skipped",
		StatusAborted:       "aborted",
		ExecutionStatus(99): "ExecutionStatus(99)",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("unexpected print of %d, wanted %s, got %s", status, want, got)
		}
	}
}

func TestPathKind_Printing(t *testing.T) {
	tests := map[PathKind]string{
		StoragePath:  "storage",
		CodePath:     "code",
		GroupPath:    "group",
		PathKind(99): "PathKind(99)",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Errorf("unexpected print of %d, wanted %s, got %s", kind, want, got)
		}
	}
}

func randomKey(r *rand.Rand) Key {
	var key Key
	r.Read(key.Contract[:])
	key.Kind = PathKind(r.Intn(3))
	r.Read(key.Path[:])
	return key
}
