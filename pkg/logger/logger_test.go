package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchPattern(t *testing.T) {
	assert.True(t, matchPattern("engine:run", "*"))
	assert.True(t, matchPattern("engine:run", "engine:run"))
	assert.True(t, matchPattern("engine:run", "engine:*"))
	assert.True(t, matchPattern("engine:run", "*:run"))
	assert.True(t, matchPattern("engine:run", "engine*run"))
	assert.False(t, matchPattern("engine:run", "git:*"))
	assert.False(t, matchPattern("engine:run", ""))
}

func TestComputeEnabledExclusions(t *testing.T) {
	old := logEnv
	defer func() { logEnv = old }()

	logEnv = "engine:*,-engine:locks"
	assert.True(t, computeEnabled("engine:run"))
	assert.False(t, computeEnabled("engine:locks"))
	assert.False(t, computeEnabled("git:cli"))

	logEnv = ""
	assert.False(t, computeEnabled("engine:run"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelTrace, ParseLevel("trace"))
	assert.Equal(t, LevelInfo, ParseLevel("garbage"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500ns", formatDuration(500*time.Nanosecond))
	assert.Equal(t, "3ms", formatDuration(3*time.Millisecond))
	assert.Equal(t, "2.5s", formatDuration(2500*time.Millisecond))
	assert.Equal(t, "1.5m", formatDuration(90*time.Second))
}

func TestNewIsDisabledByDefault(t *testing.T) {
	old := logEnv
	defer func() { logEnv = old }()
	logEnv = ""
	l := New("test:namespace")
	assert.False(t, l.Enabled())
}
