package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud"))
}

func TestInitWritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "clinic.log")

	logger, err := Init(Options{Production: true, Level: "info", File: file})
	require.NoError(t, err)

	zap.L().Info("patient registered", zap.Uint("patient_id", 7))
	zap.L().Debug("dropped below level")
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "patient registered")
	assert.Contains(t, string(data), `"patient_id":7`)
	assert.NotContains(t, string(data), "dropped below level")
}
