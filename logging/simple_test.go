package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-optical/isokit/logging"
)

func TestSimpleLoggerWritesInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSimpleLogger(&buf, logging.LevelInfo, false)
	log.Info("hello", "k", "v")
	out := buf.String()
	require.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "k: v")
}

func TestSimpleLoggerRespectsVerbosity(t *testing.T) {
	var buf bytes.Buffer
	sink := logging.NewSimpleLogSink(&buf, logging.LevelInfo, false)
	assert.True(t, sink.Enabled(logging.LevelInfo))
	assert.False(t, sink.Enabled(logging.LevelTrace))
}

func TestSimpleLoggerWithNamePrefixes(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSimpleLogger(&buf, logging.LevelInfo, false)
	named := log.WithName("parser")
	named.Info("opening")
	assert.True(t, strings.Contains(buf.String(), "[parser] opening"))
}

func TestSimpleLoggerError(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSimpleLogger(&buf, logging.LevelInfo, false)
	log.Error(assert.AnError, "failed")
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), assert.AnError.Error())
}
