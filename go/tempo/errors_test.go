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
	"errors"
	"fmt"
	"testing"
)

func TestConstError_CanBeUsedAsConstant(t *testing.T) {
	const err = ConstError("some error")
	if err.Error() != "some error" {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", err), err) {
		t.Errorf("wrapped constant error not recognized by errors.Is")
	}
}

func TestClassifyError_CoversAllCases(t *testing.T) {
	tests := map[string]struct {
		err   error
		class ErrorClass
	}{
		"nil": {nil, ClassNone},
		"code interference": {
			ErrCodeInterference, ClassFallback,
		},
		"wrapped code interference": {
			fmt.Errorf("block 4: %w", ErrCodeInterference), ClassFallback,
		},
		"group serialization": {
			GroupSerializationError{Err: fmt.Errorf("broken")}, ClassFallback,
		},
		"vm failure": {
			FatalVMError{TxnIndex: 2, Err: fmt.Errorf("out of gas")}, ClassVM,
		},
		"invariant violation": {
			InvariantViolationError{Msg: "lost transaction"}, ClassFatal,
		},
		"unknown error": {
			fmt.Errorf("something odd"), ClassFatal,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if got := ClassifyError(test.err); got != test.class {
				t.Errorf("expected class %v, got %v", test.class, got)
			}
		})
	}
}

func TestGroupSerializationError_ExposesItsCause(t *testing.T) {
	cause := fmt.Errorf("codec failure")
	err := GroupSerializationError{Key: CodeKey(Address{1}), Err: cause}
	if !errors.Is(err, cause) {
		t.Errorf("cause not reachable through errors.Is")
	}
}

func TestFatalVMError_ExposesItsCause(t *testing.T) {
	cause := fmt.Errorf("nested call depth exceeded")
	err := FatalVMError{TxnIndex: 7, Err: cause}
	if !errors.Is(err, cause) {
		t.Errorf("cause not reachable through errors.Is")
	}
	var fatal FatalVMError
	if !errors.As(fmt.Errorf("run: %w", err), &fatal) || fatal.TxnIndex != 7 {
		t.Errorf("failed to recover transaction index from wrapped error")
	}
}

func TestErrorClass_Printing(t *testing.T) {
	tests := map[ErrorClass]string{
		ClassNone:      "none",
		ClassFallback:  "fallback",
		ClassVM:        "vm",
		ClassFatal:     "fatal",
		ErrorClass(99): "ErrorClass(99)",
	}
	for class, want := range tests {
		if got := class.String(); got != want {
			t.Errorf("unexpected print of %d, wanted %s, got %s", class, want, got)
		}
	}
}
