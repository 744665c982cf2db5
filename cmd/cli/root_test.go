package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gopairs/domain/screen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const abcCSV = "date,A,B,C\nd1,1,2,5\nd2,2,4,3\nd3,3,6,1\nd4,4,8,6\nd5,5,10,2\n"

func setupEnv(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"GOPAIRS_CONFIG", "SCREEN_INTERCEPT", "SCREEN_SIG_LEVEL", "SCREEN_TOP_N", "SCREEN_WORKERS", "SCREEN_POLICY", "LOG_FORMAT", "LOG_OUTPUT", "DATABASE_URL"} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(abcCSV), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCointCommand(t *testing.T) {
	path := setupEnv(t)

	out, err := run(t, "coint", path, "--index-column", "--sig-level", "0.05")
	require.NoError(t, err)

	var report screen.CointegrationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, "A", report.Pairs[0].First.String())
	assert.Equal(t, "B", report.Pairs[0].Second.String())
	assert.True(t, report.Options.Intercept)
	assert.Equal(t, 3, report.Evaluated)
}

func TestCointCommand_NoIntercept(t *testing.T) {
	path := setupEnv(t)

	out, err := run(t, "coint", path, "--index-column", "--intercept=false", "--workers", "1")
	require.NoError(t, err)

	var report screen.CointegrationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Options.Intercept)
	assert.Equal(t, screen.DefaultSigLevel, report.Options.SigLevel)
}

func TestDistanceCommand(t *testing.T) {
	path := setupEnv(t)

	out, err := run(t, "distance", path, "--index-column", "--n", "1")
	require.NoError(t, err)

	var report screen.DistanceReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, "A/B", report.Pairs[0].String())
}

func TestDistanceCommand_ConfigDefaults(t *testing.T) {
	path := setupEnv(t)
	t.Setenv("SCREEN_TOP_N", "2")

	out, err := run(t, "distance", path, "--index-column")
	require.NoError(t, err)

	var report screen.DistanceReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Pairs, 2)
}

func TestCommands_Errors(t *testing.T) {
	path := setupEnv(t)

	_, err := run(t, "distance", path)
	require.Error(t, err, "date column is not numeric without --index-column")
	assert.Contains(t, err.Error(), "A2")

	_, err = run(t, "coint", path, "--index-column", "--sig-level", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sig_level")

	_, err = run(t, "distance", path, "--index-column", "--policy", "retry")
	require.Error(t, err)

	_, err = run(t, "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	_, err = run(t, "coint")
	require.Error(t, err)
}
