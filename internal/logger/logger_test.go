package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerboseToggle(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(false)
	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	assert.True(t, IsVerbose())
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestInfoAlwaysLogged(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(false)
	Info("synced %d courses", 3)
	assert.Contains(t, buf.String(), "synced 3 courses")
}
