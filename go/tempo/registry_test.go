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
	"strings"
	"testing"

	gomock "go.uber.org/mock/gomock"
	"golang.org/x/exp/maps"
)

func TestBlockRunnerRegistry_CanListContent(t *testing.T) {
	myFactory := func(TransactionRunner, Config) BlockRunner {
		return nil
	}

	name := "test1"
	RegisterBlockRunnerFactory(name, myFactory)

	factories := maps.Keys(GetAllRegisteredBlockRunners())
	if !slices.Contains(factories, name) {
		t.Errorf("%v not found in list of factories, found %v", name, factories)
	}
}

func TestBlockRunnerRegistry_RegisteredFactoryCanBeUsed(t *testing.T) {
	counter := 0
	name := "test2"
	myFactory := func(TransactionRunner, Config) BlockRunner {
		counter++
		return nil
	}
	RegisterBlockRunnerFactory(name, myFactory)

	got := GetBlockRunnerFactory(name)
	if got == nil {
		t.Fatalf("expected factory, got nil")
	}
	got(nil, Config{})
	if counter != 1 {
		t.Errorf("expected factory to be called once, got %d", counter)
	}
}

func TestBlockRunnerRegistry_LookupIsCaseInsensitive(t *testing.T) {
	name := "TeSt3"
	myFactory := func(TransactionRunner, Config) BlockRunner { return nil }
	RegisterBlockRunnerFactory(name, myFactory)

	for _, variant := range []string{name, strings.ToLower(name), strings.ToUpper(name)} {
		if GetBlockRunnerFactory(variant) == nil {
			t.Errorf("factory not found under name %q", variant)
		}
	}
}

func TestBlockRunnerRegistry_RegisteredFactoryIsUsedByNewBlockRunner(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockTransactionRunner(ctrl)

	name := "test4"
	myFactory := func(r TransactionRunner, _ Config) BlockRunner {
		if r != runner {
			t.Fatalf("unexpected runner passed to factory")
		}
		return nil
	}
	RegisterBlockRunnerFactory(name, myFactory)

	if _, err := NewBlockRunner(name, runner, Config{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBlockRunnerRegistry_NewBlockRunnerReportsUnknownImplementations(t *testing.T) {
	if _, err := NewBlockRunner("something odd", nil, Config{}); err == nil {
		t.Errorf("expected an error, got nil")
	}
}

func TestBlockRunnerRegistry_FailToRegisterNilFactory(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic, got nil")
		}
	}()
	RegisterBlockRunnerFactory("nil", nil)
}

func TestBlockRunnerRegistry_FailToRegisterSameNameMultipleTimes(t *testing.T) {
	name := "test5"
	myFactory := func(TransactionRunner, Config) BlockRunner { return nil }

	// The first time it is fine.
	RegisterBlockRunnerFactory(name, myFactory)

	// The second time it should panic.
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic, got nil")
		}
	}()
	RegisterBlockRunnerFactory(name, myFactory)
}
