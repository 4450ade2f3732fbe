package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"debug json", Config{Level: "debug", Format: "json"}, false},
		{"bad level", Config{Level: "loud"}, true},
		{"bad format", Config{Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desk.log")
	log, closeLog, err := New(Config{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("items loaded", zap.Int("count", 2))
	closeLog()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"items loaded"`)
	assert.Contains(t, string(b), `"count":2`)
	assert.NotContains(t, string(b), "hidden")
}

func TestNew_CloseReleasesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "desk.log")
	log, closeLog, err := New(Config{File: path})
	require.NoError(t, err)
	log.Info("first")
	closeLog()

	// once closed, writes no longer reach the file
	log.Info("after close")
	_ = log.Sync()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "first")
	assert.NotContains(t, string(b), "after close")
}

func TestNewForTerminalUI_NoFileIsSilent(t *testing.T) {
	log, closeLog, err := NewForTerminalUI(Config{})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.ErrorLevel))
	closeLog()

	_, _, err = NewForTerminalUI(Config{Level: "nope"})
	assert.Error(t, err)
}
