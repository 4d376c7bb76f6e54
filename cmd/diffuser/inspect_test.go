package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout returns what fn prints to os.Stdout.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	done := make(chan string)
	go func() {
		data, _ := io.ReadAll(r)
		done <- string(data)
	}()

	runErr := fn()
	require.NoError(t, w.Close())
	os.Stdout = stdout
	return <-done, runErr
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestScheduleCommand(t *testing.T) {
	cfgPath := writeConfig(t, "n_timesteps: 6\n")
	plot := filepath.Join(t.TempDir(), "schedule.png")

	out, err := captureStdout(t, func() error {
		return runSchedule([]string{"-config", cfgPath, "-every", "2", "-plot", plot})
	})
	require.NoError(t, err)
	assert.FileExists(t, plot)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4, "header plus timesteps 0, 2 and 4")
	assert.Contains(t, lines[0], "posterior_variance")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[3]), "4"))

	err = runSchedule([]string{"-config", writeConfig(t, "n_timesteps: 0\n")})
	assert.Error(t, err)
}

func TestWeightsCommand(t *testing.T) {
	cfgPath := writeConfig(t, "horizon: 3\naction_dim: 1\nobservation_dim: 2\naction_weight: 10\n")
	plot := filepath.Join(t.TempDir(), "weights.svg")

	out, err := captureStdout(t, func() error {
		return runWeights([]string{"-config", cfgPath, "-plot", plot})
	})
	require.NoError(t, err)
	assert.FileExists(t, plot)
	assert.Contains(t, out, "horizon 3 x transition 3")
	assert.Contains(t, out, "10")
}

func TestLossCommand(t *testing.T) {
	cfgPath := writeConfig(t, "horizon: 4\naction_dim: 1\nobservation_dim: 2\nn_timesteps: 5\nloss_type: l2\nseed: 4\n")

	out, err := captureStdout(t, func() error {
		return runLoss([]string{"-config", cfgPath, "-batch", "2", "-hidden", "8", "-embed", "4"})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "loss (l2):")
	assert.Contains(t, out, "a0_loss")

	err = runLoss([]string{"-config", cfgPath, "-batch", "0"})
	assert.Error(t, err)

	err = runLoss([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
