package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLogsEachLineInOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	w := NewWriter(logger, "refresh")

	n, err := w.Write([]byte("first\nsecond\r\n\n"))
	require.NoError(t, err)
	assert.Equal(t, len("first\nsecond\r\n\n"), n)

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "line=first")
	assert.Contains(t, lines[1], "line=second")
	assert.Contains(t, lines[2], "line=first")
	assert.Contains(t, lines[0], "msg=refresh")
}

func TestWriterJoinsLineSplitAcrossWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(slog.New(slog.NewTextHandler(&buf, nil)), "")

	_, err := w.Write([]byte("    gcp:compute:Instance web-1  [cre"))
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	_, err = w.Write([]byte("ate]\nResources: 1 cre"))
	require.NoError(t, err)
	_, err = w.Write([]byte("ated"))
	require.NoError(t, err)
	require.NoError(t, w.FlushLine())
	require.NoError(t, w.FlushLine())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `line="    gcp:compute:Instance web-1  [create]"`)
	assert.Contains(t, lines[1], `line="Resources: 1 created"`)
}

func TestWriterWithoutLogger(t *testing.T) {
	w := NewWriter(nil, "")
	n, err := w.Write([]byte("ignored"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
