// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
)

// MockRouterUseCase is a mock implementation of RouterUseCase for testing.
type MockRouterUseCase struct {
	mock.Mock
}

// Route mocks the Route method of RouterUseCase.
func (m *MockRouterUseCase) Route(ctx context.Context, event dispatchDomain.ChangeEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

// Run mocks the Run method of RouterUseCase.
func (m *MockRouterUseCase) Run(ctx context.Context, feed dispatchDomain.ChangeFeed) error {
	args := m.Called(ctx, feed)
	return args.Error(0)
}

// MockDeadLetterUseCase is a mock implementation of DeadLetterUseCase for testing.
type MockDeadLetterUseCase struct {
	mock.Mock
}

// List mocks the List method of DeadLetterUseCase.
func (m *MockDeadLetterUseCase) List(ctx context.Context, offset, limit int) ([]*dispatchDomain.DeadLetter, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dispatchDomain.DeadLetter), args.Error(1)
}

// DeleteOlderThan mocks the DeleteOlderThan method of DeadLetterUseCase.
func (m *MockDeadLetterUseCase) DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error) {
	args := m.Called(ctx, days, dryRun)
	return args.Get(0).(int64), args.Error(1)
}
