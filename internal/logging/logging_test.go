package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFormatMatchesLevelTimestampMessage(t *testing.T) {
	var buf bytes.Buffer
	l := New(Debug, &buf)
	l.Infof("hello %s", "world")

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "[INFO]"), line)
	assert.Contains(t, line, "hello world")
}

func TestFilteredLevelsAreSuppressed(t *testing.T) {
	var buf bytes.Buffer
	l := New(Warning, &buf)
	l.Infof("should not appear")
	l.Debugf("should not appear either")
	assert.Empty(t, buf.String())

	l.Warningf("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestSetLevelChangesThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := New(Silent, &buf)
	l.Errorf("suppressed")
	assert.Empty(t, buf.String())

	l.SetLevel(Error)
	l.Errorf("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestSetSinkRedirectsOutput(t *testing.T) {
	var first, second bytes.Buffer
	l := New(Debug, &first)
	l.Infof("to first")
	l.SetSink(&second)
	l.Infof("to second")

	assert.Contains(t, first.String(), "to first")
	assert.NotContains(t, first.String(), "to second")
	assert.Contains(t, second.String(), "to second")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("Warning")
	require.NoError(t, err)
	assert.Equal(t, Warning, l)

	_, err = ParseLevel("bogus")
	require.Error(t, err)
}
