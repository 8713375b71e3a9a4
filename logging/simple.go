// Package logging provides the module's default human-readable logr.LogSink
// used when a caller opts into WithSimpleLogger instead of supplying their
// own logr.Logger. Every other package threads a logr.Logger through its
// constructors rather than calling a global.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
)

// Verbosity levels used with logr.Logger.V(...).
const (
	LevelInfo  = 0
	LevelDebug = 1
	LevelTrace = 2
)

var (
	infoColor  = color.New(color.FgGreen).SprintFunc()
	debugColor = color.New(color.FgCyan).SprintFunc()
	traceColor = color.New(color.FgYellow).SprintFunc()
	errorColor = color.New(color.FgRed).SprintFunc()
)

// SimpleLogSink implements logr.LogSink with colorized, single-line output.
type SimpleLogSink struct {
	writer       io.Writer
	minVerbosity int
	name         string
	keyValues    []interface{}
	mutex        *sync.Mutex
	useColor     bool
}

// NewSimpleLogSink builds a SimpleLogSink. A nil writer defaults to stdout.
func NewSimpleLogSink(writer io.Writer, minVerbosity int, useColor bool) *SimpleLogSink {
	if writer == nil {
		writer = os.Stdout
	}
	return &SimpleLogSink{
		writer:       writer,
		minVerbosity: minVerbosity,
		useColor:     useColor,
		mutex:        &sync.Mutex{},
	}
}

func (s *SimpleLogSink) Init(info logr.RuntimeInfo) {}

func (s *SimpleLogSink) Enabled(level int) bool { return level <= s.minVerbosity }

func (s *SimpleLogSink) Info(level int, msg string, keysAndValues ...interface{}) {
	if !s.Enabled(level) {
		return
	}
	s.log(false, level, msg, keysAndValues...)
}

func (s *SimpleLogSink) Error(err error, msg string, keysAndValues ...interface{}) {
	s.log(true, 0, msg, append(append([]interface{}{}, keysAndValues...), "error", err)...)
}

func (s *SimpleLogSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	return &SimpleLogSink{
		writer:       s.writer,
		minVerbosity: s.minVerbosity,
		name:         s.name,
		keyValues:    append(append([]interface{}{}, s.keyValues...), keysAndValues...),
		useColor:     s.useColor,
		mutex:        s.mutex,
	}
}

func (s *SimpleLogSink) WithName(name string) logr.LogSink {
	newName := name
	if s.name != "" {
		newName = fmt.Sprintf("%s.%s", s.name, name)
	}
	return &SimpleLogSink{
		writer:       s.writer,
		minVerbosity: s.minVerbosity,
		name:         newName,
		keyValues:    append([]interface{}{}, s.keyValues...),
		useColor:     s.useColor,
		mutex:        s.mutex,
	}
}

func (s *SimpleLogSink) V(level int) logr.LogSink { return s }

func (s *SimpleLogSink) log(isError bool, level int, msg string, keysAndValues ...interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var label string
	if !s.useColor {
		switch {
		case isError:
			label = "[ERROR] "
		case level == LevelDebug:
			label = "[DEBUG] "
		case level == LevelTrace:
			label = "[TRACE] "
		default:
			label = "[INFO] "
		}
	} else {
		switch {
		case isError:
			label = errorColor("[ERROR]") + " "
		case level == LevelDebug:
			label = debugColor("[DEBUG]") + " "
		case level == LevelTrace:
			label = traceColor("[TRACE]") + " "
		default:
			label = infoColor("[INFO]") + " "
		}
	}

	fullMsg := msg
	if s.name != "" {
		fullMsg = fmt.Sprintf("[%s] %s", s.name, msg)
	}
	fmt.Fprintln(s.writer, label+fullMsg)

	all := append(append([]interface{}{}, s.keyValues...), keysAndValues...)
	for i := 0; i+1 < len(all); i += 2 {
		key, ok := all[i].(string)
		if !ok {
			key = fmt.Sprintf("key%d", i/2)
		}
		fmt.Fprintf(s.writer, "  %s: %v\n", key, all[i+1])
	}
}

// NewSimpleLogger wraps a SimpleLogSink in a logr.Logger.
func NewSimpleLogger(writer io.Writer, minVerbosity int, useColor bool) logr.Logger {
	return logr.New(NewSimpleLogSink(writer, minVerbosity, useColor))
}
