package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture redirects log output into a buffer for the duration of the test.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	originalOutput := logger.Out
	originalLevel := logger.GetLevel()
	logger.SetOutput(&buf)
	t.Cleanup(func() {
		logger.SetOutput(originalOutput)
		logger.SetLevel(originalLevel)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		" error ": ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	buf := capture(t)

	SetLevel(InfoLevel)
	assert.False(t, IsDebug())

	Debugf("Debug message")
	DebugWithFields(logrus.Fields{"k": "v"}, "Debug with fields")
	assert.Empty(t, buf.String())

	buf.Reset()
	Infof("Info message")
	assert.Contains(t, buf.String(), "Info message")
}

func TestWithFields(t *testing.T) {
	buf := capture(t)
	SetLevel(DebugLevel)

	InfoWithFields(logrus.Fields{
		"component": "test",
		"id":        123,
	}, "Message with fields")

	logOutput := buf.String()
	assert.Contains(t, logOutput, "Message with fields")
	assert.Contains(t, logOutput, "component=test")
	assert.Contains(t, logOutput, "id=123")
}

func TestComponent(t *testing.T) {
	buf := capture(t)
	SetLevel(DebugLevel)

	Component("tracker").Debug("registered")
	assert.Contains(t, buf.String(), "component=tracker")
	assert.Contains(t, buf.String(), "registered")
}

func TestFileLogging(t *testing.T) {
	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "nested", "test.log")

	err := EnableFileLogging(logFile, 10, 3, 7)
	require.NoError(t, err)
	defer DisableFileLogging()

	Infof("File log test message")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "File log test message")
}

func TestSetFormatter(t *testing.T) {
	buf := capture(t)
	SetLevel(InfoLevel)

	SetFormatter(&logrus.JSONFormatter{})
	defer SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	Infof("JSON formatted message")

	logOutput := buf.String()
	assert.Contains(t, logOutput, "\"level\":\"info\"")
	assert.Contains(t, logOutput, "\"msg\":\"JSON formatted message\"")
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Warnf("Custom output message")
	assert.Contains(t, buf.String(), "Custom output message")
}
