package logging_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/upcmap/pkg/logging"
)

func TestSetDefault(t *testing.T) {
	original := *logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	buf := &bytes.Buffer{}
	logging.SetDefault(zerolog.New(buf))

	logging.Default().Info().Msg("info message")
	logging.FromContext(context.Background()).Warn().Msg("warning message")

	assert.Contains(t, buf.String(), "info message")
	assert.Contains(t, buf.String(), "warning message")
}

func TestContextLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithRunID(ctx, "run-1")
	ctx = logging.WithCode(ctx, "0123456789012")
	ctx = logging.WithSource(ctx, "open_food_facts")

	logging.FromContext(ctx).Info().Msg("fetched")

	assert.True(t, tl.Contains(`"source":"open_food_facts"`), tl.Output())
	assert.True(t, tl.Contains(`"code":"0123456789012"`), tl.Output())
	assert.True(t, tl.Contains(`"run_id":"run-1"`), tl.Output())
	assert.Equal(t, "run-1", logging.RunID(ctx))
}

func TestContextLoggerDoesNotLeakToParent(t *testing.T) {
	tl := logging.NewTestLogger(t)
	parent := logging.WithLogger(context.Background(), tl.Logger)
	_ = logging.WithSource(parent, "local_database")

	logging.FromContext(parent).Info().Msg("parent")
	assert.False(t, tl.Contains("local_database"))
}

func TestFromContextDefaults(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	assert.Same(t, logging.Default(), logging.FromContext(nil))
	assert.Same(t, logging.Default(), logging.FromContext(context.Background()))
	assert.Same(t, logging.Default(), logging.FromContext(logging.WithLogger(context.Background(), nil)))
	assert.Equal(t, "", logging.RunID(context.Background()))
}

func TestOrDefault(t *testing.T) {
	nop := logging.NewNopLogger()
	assert.Same(t, nop, logging.OrDefault(nop))
	assert.Same(t, logging.Default(), logging.OrDefault(nil))
}

func TestNewLoggerFromConfig(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARNING", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := logging.NewLoggerFromConfig(&logging.Config{Level: tt.level, Output: "discard"})
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}

	assert.Equal(t, zerolog.InfoLevel, logging.NewLoggerFromConfig(nil).GetLevel())
}

func TestNewLoggerFromConfigFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upcmap.log")
	logger := logging.NewLoggerFromConfig(&logging.Config{Format: "json", Output: path})
	logger.Info().Str("code", "0041196910759").Msg("written")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"code":"0041196910759"`)
}

func TestTestLoggerConcurrent(t *testing.T) {
	tl := logging.NewTestLogger(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tl.Warn().Msg("exhausted")
		}()
	}
	wg.Wait()
	tl.Info().Msg("done")

	assert.Equal(t, 8, tl.Count("exhausted"))
	assert.Equal(t, 1, tl.Count("done"))
}
