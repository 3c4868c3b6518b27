package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockCustomerLocker struct {
	mock.Mock
}

func (m *MockCustomerLocker) Acquire(ctx context.Context, customerID uuid.UUID) (func(), error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

// Granted is a convenience for the common case: the lock is free.
func (m *MockCustomerLocker) Granted() {
	m.On("Acquire", mock.Anything, mock.Anything).Return(func() {}, nil)
}
