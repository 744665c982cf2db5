package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopairs/domain/core"
	"gopairs/domain/pricetable"
	"gopairs/domain/screen"
	"gopairs/ports"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.Level = "debug"
	logger, err = NewLogger(cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg.Level = "loud"
	_, err = NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_FileOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.Dir = filepath.Join(t.TempDir(), "nested")

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	logger.Info("hello")

	data, err := os.ReadFile(filepath.Join(cfg.Dir, "gopairs.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func newJSONLogger(buf *bytes.Buffer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(level)
	return logger
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestScreenObserver_Events(t *testing.T) {
	var buf bytes.Buffer
	obs := NewScreenObserver(newJSONLogger(&buf, logrus.DebugLevel))
	run := core.NewRunID()
	pair := pricetable.Pair{First: "A", Second: "FLAT", J: 1}

	obs.ScreenStarted(run, screen.MethodDistance, 2, 1)
	obs.PairSkipped(run, screen.MethodDistance, screen.NewSkippedPair(pair, core.NewConstantSeriesError("FLAT")))
	obs.TopPairs(run, []screen.DistanceResult{{Pair: pair, Distance: 0.25}})
	obs.ScreenFinished(run, screen.MethodDistance, ports.ScreenSummary{Table: "0123456789abcdef", Evaluated: 1, Skipped: 1, Duration: time.Millisecond})
	obs.ScreenFinished(run, screen.MethodDistance, ports.ScreenSummary{Err: errors.New("cancelled")})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 5)

	assert.Equal(t, "screen started", lines[0]["msg"])
	assert.Equal(t, "screener", lines[0]["component"])
	assert.EqualValues(t, 2, lines[0]["instruments"])

	assert.Equal(t, "warning", lines[1]["level"])
	assert.Equal(t, "A/FLAT", lines[1]["pair"])
	assert.Equal(t, "DEGENERATE_SERIES", lines[1]["code"])

	assert.Equal(t, "closest pair", lines[2]["msg"])
	assert.EqualValues(t, 1, lines[2]["rank"])
	assert.EqualValues(t, 0.25, lines[2]["distance"])

	assert.Equal(t, "screen finished", lines[3]["msg"])
	assert.Equal(t, "0123456789ab", lines[3]["table"])
	assert.Equal(t, "screen failed", lines[4]["msg"])
	assert.Equal(t, "cancelled", lines[4]["error"])
}

func TestScreenObserver_TopPairsNeedsDebug(t *testing.T) {
	var buf bytes.Buffer
	obs := NewScreenObserver(newJSONLogger(&buf, logrus.InfoLevel))
	obs.TopPairs(core.NewRunID(), []screen.DistanceResult{{Distance: 1}})
	assert.Empty(t, buf.String())
}
