package console

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRelativePath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, "already/relative", ToRelativePath("already/relative"))
	assert.Equal(t, "sub/file.go", ToRelativePath(filepath.Join(wd, "sub", "file.go")))
}

func TestFormatMessagesWithoutTTY(t *testing.T) {
	// test output is not a terminal, so styling is stripped and only the
	// plain prefixes remain
	assert.Equal(t, "✓ done", FormatSuccessMessage("done"))
	assert.Equal(t, "✗ broken", FormatErrorMessage("broken"))
	assert.Equal(t, "⚠ careful", FormatWarningMessage("careful"))
	assert.Equal(t, "note", FormatInfoMessage("note"))
}

func TestFormatStepResult(t *testing.T) {
	assert.Equal(t, "✓ fmt (12ms)", FormatStepResult("fmt", "succeeded", "(12ms)"))
	assert.Equal(t, "✗ lint", FormatStepResult("lint", "failed", ""))
	assert.Contains(t, FormatStepResult("slow", "skipped", ""), "skipped")
}
