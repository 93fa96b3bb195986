package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/brojonat/github-bounty-agent/near"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBountyQuoter_GetBounty(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(*near.MockContractCaller)
		want      string
	}{
		{
			name: "successful quote",
			setupMock: func(m *near.MockContractCaller) {
				m.On("View", mock.Anything, MethodGetBounty, getBountyArgs{RepoID: "acme/widgets"}).
					Return(json.RawMessage(`"1500000000000000000000000"`), nil)
			},
			want: "1.5000",
		},
		{
			name: "view failure degrades to zero",
			setupMock: func(m *near.MockContractCaller) {
				m.On("View", mock.Anything, MethodGetBounty, mock.Anything).
					Return(nil, fmt.Errorf("rpc unavailable"))
			},
			want: "0",
		},
		{
			name: "malformed response degrades to zero",
			setupMock: func(m *near.MockContractCaller) {
				m.On("View", mock.Anything, MethodGetBounty, mock.Anything).
					Return(json.RawMessage(`{"not":"a string"}`), nil)
			},
			want: "0",
		},
		{
			name: "non numeric quote degrades to zero",
			setupMock: func(m *near.MockContractCaller) {
				m.On("View", mock.Anything, MethodGetBounty, mock.Anything).
					Return(json.RawMessage(`"not-a-number"`), nil)
			},
			want: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &near.MockContractCaller{}
			tt.setupMock(caller)

			q := NewBountyQuoter(testLogger(), caller)
			got := q.GetBounty(context.Background(), "acme/widgets")
			assert.Equal(t, tt.want, got)
			caller.AssertExpectations(t)
		})
	}
}
