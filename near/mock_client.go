package near

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
)

// MockContractCaller is a mock implementation of ContractCaller for testing
type MockContractCaller struct {
	mock.Mock
}

// View mocks the View method
func (m *MockContractCaller) View(ctx context.Context, method string, args any) (json.RawMessage, error) {
	callArgs := m.Called(ctx, method, args)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(json.RawMessage), callArgs.Error(1)
}

// Call mocks the Call method
func (m *MockContractCaller) Call(ctx context.Context, method string, args any, gas uint64) (*CallResult, error) {
	callArgs := m.Called(ctx, method, args, gas)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*CallResult), callArgs.Error(1)
}

// AccountID mocks the AccountID method
func (m *MockContractCaller) AccountID(ctx context.Context) (string, error) {
	callArgs := m.Called(ctx)
	return callArgs.String(0), callArgs.Error(1)
}
