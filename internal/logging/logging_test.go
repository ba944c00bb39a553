// ABOUTME: Tests for logger construction
// ABOUTME: Checks level parsing and file output
package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
		ok   bool
	}{
		{"", zapcore.InfoLevel, true},
		{"info", zapcore.InfoLevel, true},
		{"DEBUG", zapcore.DebugLevel, true},
		{"warning", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"loud", zapcore.InfoLevel, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "yako.log")
	log, closeFn, err := New(Options{Level: "info", File: path})
	require.NoError(t, err)

	log.Infof("Player: opened %s", "song.flac")
	log.Debugf("hidden")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Player: opened song.flac")
	assert.NotContains(t, string(data), "hidden")
}

func TestNewWithoutSinks(t *testing.T) {
	log, closeFn, err := New(Options{})
	require.NoError(t, err)
	log.Infof("discarded")
	assert.NoError(t, closeFn())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "chatty"})
	assert.Error(t, err)
}
