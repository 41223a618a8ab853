package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestInit(t *testing.T) {
	lg, err := Init("error", "prod")
	require.NoError(t, err)
	defer lg.Closer()

	assert.False(t, lg.Base.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, lg.Base.Core().Enabled(zapcore.ErrorLevel))

	lg.Level.SetLevel(zapcore.DebugLevel)
	assert.True(t, lg.Base.Core().Enabled(zapcore.DebugLevel))
}
