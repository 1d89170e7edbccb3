package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(false, &buf)
	logger.Debug("hidden")
	logger.Info("motor ready", "voice", 3)
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "motor ready")
	assert.Contains(t, out, "voice=3")

	buf.Reset()
	logger = New(true, &buf)
	logger.Debug("frame sent")
	assert.Contains(t, buf.String(), "frame sent")
}
