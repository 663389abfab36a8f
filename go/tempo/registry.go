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
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

// This file provides a registry for BlockRunner factories in Tempo.
//
// The registry is intended to be used by all client applications that would
// like to use block execution services. For an implementation to be
// available it needs to be registered. Typically, this registration is part
// of the init code of the package providing an implementation. Thus, by
// including the implementation package, block runner implementations become
// available in this central registry.

// NewBlockRunner performs a lookup for the given name (case-insensitive) in
// the registry and creates a new BlockRunner executing individual
// transactions through the given runner. An error is returned if no factory
// was registered under the given name.
func NewBlockRunner(name string, runner TransactionRunner, config Config) (BlockRunner, error) {
	factory := GetBlockRunnerFactory(name)
	if factory == nil {
		return nil, fmt.Errorf("block runner not found: %s", name)
	}
	return factory(runner, config), nil
}

// GetBlockRunnerFactory performs a lookup for the given name
// (case-insensitive) in the registry. The result is nil if no factory was
// registered under the given name.
func GetBlockRunnerFactory(name string) BlockRunnerFactory {
	blockRunnerRegistryLock.Lock()
	defer blockRunnerRegistryLock.Unlock()
	return blockRunnerRegistry[strings.ToLower(name)]
}

// GetAllRegisteredBlockRunners obtains all registered implementations.
func GetAllRegisteredBlockRunners() map[string]BlockRunnerFactory {
	blockRunnerRegistryLock.Lock()
	defer blockRunnerRegistryLock.Unlock()
	return maps.Clone(blockRunnerRegistry)
}

// RegisterBlockRunnerFactory can be used to register a new BlockRunner
// implementation to be exported for general use in the binary. The name is
// not case-sensitive, and a panic is triggered if a factory was bound to the
// same name before, or the factory is nil. This function is mainly intended
// to be used by package initialization code.
func RegisterBlockRunnerFactory(name string, factory BlockRunnerFactory) {
	key := strings.ToLower(name)
	if factory == nil {
		panic(fmt.Sprintf("invalid initialization: cannot register nil-factory using `%s`", key))
	}
	blockRunnerRegistryLock.Lock()
	defer blockRunnerRegistryLock.Unlock()
	if _, found := blockRunnerRegistry[key]; found {
		panic(fmt.Sprintf("invalid initialization: multiple factories registered for `%s`", key))
	}
	blockRunnerRegistry[key] = factory
}

// BlockRunnerFactory is the type of a function that creates a new
// BlockRunner using a given transaction runner and configuration.
type BlockRunnerFactory func(TransactionRunner, Config) BlockRunner

// blockRunnerRegistry is a global registry for BlockRunner factories of
// different implementations and configurations.
var blockRunnerRegistry = map[string]BlockRunnerFactory{}

// blockRunnerRegistryLock to protect access to the registry.
var blockRunnerRegistryLock sync.Mutex
