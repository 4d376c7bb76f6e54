package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technodrome/diffuser/internal/diffusion"
)

func TestParseFloats(t *testing.T) {
	values, err := parseFloats(" 0.5, -1,2e-1 ")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1, 0.2}, values)

	values, err = parseFloats("")
	require.NoError(t, err)
	assert.Nil(t, values)

	_, err = parseFloats("1,x")
	assert.Error(t, err)
}

func TestParseInts(t *testing.T) {
	values, err := parseInts("256,128")
	require.NoError(t, err)
	assert.Equal(t, []int{256, 128}, values)

	for _, bad := range []string{"1.5", "0", "-3", "a"} {
		_, err := parseInts(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, diffusion.DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("horizon: 12\n"), 0o600))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Horizon)
}

func TestNewRandSeeded(t *testing.T) {
	cfg := diffusion.DefaultConfig()
	cfg.Seed = 3
	assert.Equal(t, newRand(cfg).Int63(), newRand(cfg).Int63())
}

func TestSampleCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("horizon: 5\nobservation_dim: 2\naction_dim: 1\nn_timesteps: 4\nseed: 9\n"), 0o600))

	weights := filepath.Join(dir, "mlp.safetensors")
	out := filepath.Join(dir, "plan.safetensors")
	err := runSample([]string{
		"-config", cfgPath, "-batch", "2", "-start", "0.5,-0.5", "-goal", "1,1",
		"-hidden", "8", "-embed", "4", "-save-weights", weights, "-out", out, "-chain",
	})
	require.NoError(t, err)
	assert.FileExists(t, weights)
	assert.FileExists(t, out)

	err = runLoss([]string{"-config", cfgPath, "-batch", "3", "-hidden", "8", "-embed", "4", "-weights", weights})
	require.NoError(t, err)

	err = runLoss([]string{"-config", cfgPath, "-hidden", "16", "-embed", "4", "-weights", weights})
	assert.Error(t, err, "weights of a different architecture are rejected")
}
