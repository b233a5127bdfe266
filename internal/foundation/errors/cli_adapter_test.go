package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation error", ValidationError("bad flag").Build(), 2},
		{"config error", ConfigError("bad config").Build(), 7},
		{"missing source directory", NotFoundError("no sources").Build(), 7},
		{"state error", StateError("corrupt").Build(), 11},
		{"wrapped filesystem error", fmt.Errorf("build: %w", FileSystemError("disk").Build()), 11},
		{"internal error", InternalError("boom").Build(), 10},
		{"unclassified error", errors.New("unknown error"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	assert.Empty(t, quiet.FormatError(nil))
	assert.Equal(t, "Error: bad config", quiet.FormatError(ConfigError("bad config").Build()))
	assert.Equal(t, "Internal error occurred (use -v for details)", quiet.FormatError(InternalError("x").Build()))
	assert.Equal(t, "Error: unknown error", quiet.FormatError(errors.New("unknown error")))
	assert.Contains(t, verbose.FormatError(InternalError("x").Build()), "[internal:fatal] x")
	assert.Equal(t, "Error: configuration file not found (run init)",
		quiet.FormatError(NotFoundError("configuration file not found").WithContext("hint", "run init").Build()))
}
