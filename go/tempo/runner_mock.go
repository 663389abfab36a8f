// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package tempo is a generated GoMock package.
package tempo

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockStateView is a mock of StateView interface.
type MockStateView struct {
	ctrl     *gomock.Controller
	recorder *MockStateViewMockRecorder
}

// MockStateViewMockRecorder is the mock recorder for MockStateView.
type MockStateViewMockRecorder struct {
	mock *MockStateView
}

// NewMockStateView creates a new mock instance.
func NewMockStateView(ctrl *gomock.Controller) *MockStateView {
	mock := &MockStateView{ctrl: ctrl}
	mock.recorder = &MockStateViewMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockStateView) EXPECT() *MockStateViewMockRecorder {
	return m.recorder
}

// Get mocks base method.
func (m *MockStateView) Get(arg0 Key) (Value, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", arg0)
	ret0, _ := ret[0].(Value)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Get indicates an expected call of Get.
func (mr *MockStateViewMockRecorder) Get(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockStateView)(nil).Get), arg0)
}

// Usage mocks base method.
func (m *MockStateView) Usage() StorageUsage {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Usage")
	ret0, _ := ret[0].(StorageUsage)
	return ret0
}

// Usage indicates an expected call of Usage.
func (mr *MockStateViewMockRecorder) Usage() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Usage", reflect.TypeOf((*MockStateView)(nil).Usage))
}

// MockTransactionContext is a mock of TransactionContext interface.
type MockTransactionContext struct {
	ctrl     *gomock.Controller
	recorder *MockTransactionContextMockRecorder
}

// MockTransactionContextMockRecorder is the mock recorder for MockTransactionContext.
type MockTransactionContextMockRecorder struct {
	mock *MockTransactionContext
}

// NewMockTransactionContext creates a new mock instance.
func NewMockTransactionContext(ctrl *gomock.Controller) *MockTransactionContext {
	mock := &MockTransactionContext{ctrl: ctrl}
	mock.recorder = &MockTransactionContextMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockTransactionContext) EXPECT() *MockTransactionContextMockRecorder {
	return m.recorder
}

// Delete mocks base method.
func (m *MockTransactionContext) Delete(arg0 Key) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Delete", arg0)
}

// Delete indicates an expected call of Delete.
func (mr *MockTransactionContextMockRecorder) Delete(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Delete", reflect.TypeOf((*MockTransactionContext)(nil).Delete), arg0)
}

// Read mocks base method.
func (m *MockTransactionContext) Read(arg0 Key) (Value, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Read", arg0)
	ret0, _ := ret[0].(Value)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Read indicates an expected call of Read.
func (mr *MockTransactionContextMockRecorder) Read(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Read", reflect.TypeOf((*MockTransactionContext)(nil).Read), arg0)
}

// ReadCode mocks base method.
func (m *MockTransactionContext) ReadCode(arg0 Key) (Value, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ReadCode", arg0)
	ret0, _ := ret[0].(Value)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ReadCode indicates an expected call of ReadCode.
func (mr *MockTransactionContextMockRecorder) ReadCode(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReadCode", reflect.TypeOf((*MockTransactionContext)(nil).ReadCode), arg0)
}

// Write mocks base method.
func (m *MockTransactionContext) Write(arg0 Key, arg1 Value) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Write", arg0, arg1)
}

// Write indicates an expected call of Write.
func (mr *MockTransactionContextMockRecorder) Write(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Write", reflect.TypeOf((*MockTransactionContext)(nil).Write), arg0, arg1)
}

// MockTransactionRunner is a mock of TransactionRunner interface.
type MockTransactionRunner struct {
	ctrl     *gomock.Controller
	recorder *MockTransactionRunnerMockRecorder
}

// MockTransactionRunnerMockRecorder is the mock recorder for MockTransactionRunner.
type MockTransactionRunnerMockRecorder struct {
	mock *MockTransactionRunner
}

// NewMockTransactionRunner creates a new mock instance.
func NewMockTransactionRunner(ctrl *gomock.Controller) *MockTransactionRunner {
	mock := &MockTransactionRunner{ctrl: ctrl}
	mock.recorder = &MockTransactionRunnerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockTransactionRunner) EXPECT() *MockTransactionRunnerMockRecorder {
	return m.recorder
}

// Run mocks base method.
func (m *MockTransactionRunner) Run(arg0 BlockParameters, arg1 Transaction, arg2 TransactionContext) (RunResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Run", arg0, arg1, arg2)
	ret0, _ := ret[0].(RunResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Run indicates an expected call of Run.
func (mr *MockTransactionRunnerMockRecorder) Run(arg0, arg1, arg2 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Run", reflect.TypeOf((*MockTransactionRunner)(nil).Run), arg0, arg1, arg2)
}

// MockBlockRunner is a mock of BlockRunner interface.
type MockBlockRunner struct {
	ctrl     *gomock.Controller
	recorder *MockBlockRunnerMockRecorder
}

// MockBlockRunnerMockRecorder is the mock recorder for MockBlockRunner.
type MockBlockRunnerMockRecorder struct {
	mock *MockBlockRunner
}

// NewMockBlockRunner creates a new mock instance.
func NewMockBlockRunner(ctrl *gomock.Controller) *MockBlockRunner {
	mock := &MockBlockRunner{ctrl: ctrl}
	mock.recorder = &MockBlockRunnerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockBlockRunner) EXPECT() *MockBlockRunnerMockRecorder {
	return m.recorder
}

// Run mocks base method.
func (m *MockBlockRunner) Run(arg0 BlockParameters, arg1 []Transaction, arg2 StateView) (BlockResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Run", arg0, arg1, arg2)
	ret0, _ := ret[0].(BlockResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Run indicates an expected call of Run.
func (mr *MockBlockRunnerMockRecorder) Run(arg0, arg1, arg2 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Run", reflect.TypeOf((*MockBlockRunner)(nil).Run), arg0, arg1, arg2)
}
