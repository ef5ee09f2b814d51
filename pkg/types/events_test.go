package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalStreamEvent(t *testing.T) {
	ev, err := UnmarshalStreamEvent([]byte(`{"type":"content","text":"hello"}`))
	require.NoError(t, err)
	delta, ok := ev.(*ContentDeltaEvent)
	require.True(t, ok)
	assert.Equal(t, "hello", delta.Text)

	ev, err = UnmarshalStreamEvent([]byte(`{"type":"tool_call_request","name":"read_file","args":{"path":"main.go"}}`))
	require.NoError(t, err)
	req, ok := ev.(*ToolCallRequestEvent)
	require.True(t, ok)
	assert.Equal(t, "read_file", req.Name)
	assert.Equal(t, "main.go", req.Args["path"])

	ev, err = UnmarshalStreamEvent([]byte(`{"type":"error","status":"503","message":"overloaded"}`))
	require.NoError(t, err)
	fatal, ok := ev.(*ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, "503", fatal.Status)
}

func TestUnmarshalStreamEvent_UnknownType(t *testing.T) {
	_, err := UnmarshalStreamEvent([]byte(`{"type":"telemetry"}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stream event type")
}

func TestUnmarshalStreamEvent_InvalidJSON(t *testing.T) {
	_, err := UnmarshalStreamEvent([]byte(`{`))
	assert.Error(t, err)
}
