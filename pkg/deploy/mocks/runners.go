// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/williamokano/deploy4dev/pkg/action"
)

// MockLocalRunner is a mock implementation of the deploy.LocalRunner interface
type MockLocalRunner struct {
	mock.Mock
}

// RunChecked provides a mock function with given fields: ctx, cmd
func (m *MockLocalRunner) RunChecked(ctx context.Context, cmd string) error {
	ret := m.Called(ctx, cmd)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, cmd)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockLocalRunner creates a new instance of MockLocalRunner
func NewMockLocalRunner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLocalRunner {
	m := &MockLocalRunner{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// MockRemoteRunner is a mock implementation of the deploy.RemoteRunner interface
type MockRemoteRunner struct {
	mock.Mock
}

// Run provides a mock function with given fields: ctx, actions
func (m *MockRemoteRunner) Run(ctx context.Context, actions []action.Action) error {
	ret := m.Called(ctx, actions)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, []action.Action) error); ok {
		r0 = rf(ctx, actions)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockRemoteRunner creates a new instance of MockRemoteRunner
func NewMockRemoteRunner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRemoteRunner {
	m := &MockRemoteRunner{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
