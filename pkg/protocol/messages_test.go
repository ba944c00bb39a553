// ABOUTME: Tests for remote-control protocol message types
// ABOUTME: Verifies command validation and envelope payload decoding
package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCommandValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		wantErr string
	}{
		{"play", Command{Command: CommandPlay}, ""},
		{"status", Command{Command: CommandStatus}, ""},
		{"open", Command{Command: CommandOpen, URI: "a.flac"}, ""},
		{"open without uri", Command{Command: CommandOpen}, "missing uri"},
		{"seek", Command{Command: CommandSeek, Position: ptr(1.5)}, ""},
		{"seek without position", Command{Command: CommandSeek}, "missing position"},
		{"volume", Command{Command: CommandVolume, Volume: ptr(0.0)}, ""},
		{"volume without level", Command{Command: CommandVolume}, "missing volume"},
		{"mute", Command{Command: CommandMute, Muted: ptr(false)}, ""},
		{"mute without flag", Command{Command: CommandMute}, "missing muted"},
		{"unknown", Command{Command: "rewind"}, `unknown command "rewind"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCommandsAreAllValid(t *testing.T) {
	for _, name := range Commands {
		cmd := Command{Command: name, URI: "x", Position: ptr(0.0), Volume: ptr(1.0), Muted: ptr(true)}
		assert.NoError(t, cmd.Validate(), name)
	}
}

func TestDecodePayload(t *testing.T) {
	data, err := json.Marshal(Message{
		Type: TypeClientCommand,
		Payload: Command{
			ID:       "42",
			Command:  CommandSeek,
			Position: ptr(12.25),
		},
	})
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, TypeClientCommand, msg.Type)

	var cmd Command
	require.NoError(t, DecodePayload(msg, &cmd))
	assert.Equal(t, "42", cmd.ID)
	require.NotNil(t, cmd.Position)
	assert.Equal(t, 12.25, *cmd.Position)
	assert.Nil(t, cmd.Volume)
}

func TestDecodePayloadTypeMismatch(t *testing.T) {
	msg := Message{Type: TypeServerStatus, Payload: map[string]interface{}{"position_ms": "soon"}}
	var st Status
	err := DecodePayload(msg, &st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), TypeServerStatus)
}

func TestCommandOmitsUnsetArguments(t *testing.T) {
	data, err := json.Marshal(Command{Command: CommandPlay})
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"play"}`, string(data))
}

func TestStatusDurations(t *testing.T) {
	st := Status{PositionMs: 1500, DurationMs: 180000}
	assert.Equal(t, 1500*time.Millisecond, st.Position())
	assert.Equal(t, 3*time.Minute, st.Duration())
}
