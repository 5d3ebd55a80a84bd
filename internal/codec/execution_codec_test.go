package codec

import (
	"testing"

	"score/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKeepsSystemContext(t *testing.T) {
	c := NewJSONCodec()

	exec := domain.NewExecution(42, "flow", 3, map[string]any{"name": "x"})
	exec.SystemContext.BranchID = "b-1"
	exec.SystemContext.NoWorkerInGroupName = "linux"

	payload, err := c.Encode(exec)
	require.NoError(t, err)

	got, err := c.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ExecutionID)
	assert.Equal(t, "b-1", got.SystemContext.BranchID)
	assert.Equal(t, "linux", got.SystemContext.NoWorkerInGroupName)
	require.NotNil(t, got.Position)
	assert.Equal(t, int64(3), *got.Position)
	assert.True(t, got.IsBranch())
	assert.True(t, got.FailedBecauseNoWorker())
}

func TestDecodeErrors(t *testing.T) {
	c := NewJSONCodec()

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "nil payload", payload: nil},
		{name: "empty payload", payload: []byte{}},
		{name: "garbage", payload: []byte("{not json")},
		{name: "wrong type", payload: []byte(`{"execution_id":"abc"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.payload)
			require.Error(t, err)
			assert.True(t, IsDecodeError(err))
		})
	}
}

func TestDecodeTerminalPosition(t *testing.T) {
	got, err := NewJSONCodec().Decode([]byte(`{"execution_id":7,"position":null}`))
	require.NoError(t, err)
	assert.True(t, got.IsTerminal())
	assert.False(t, got.IsBranch())
	assert.NotNil(t, got.Variables)
}
