package diffusion

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/technodrome/diffuser/internal/backend/cpu"
	"github.com/technodrome/diffuser/internal/tensor"
)

type backend = *cpu.CPUBackend

type traj = tensor.Tensor[float64, backend]

// testConfig is a small process: horizon 4, 2 actions, 3 observations, 10 steps.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Horizon = 4
	cfg.ActionDim = 2
	cfg.ObservationDim = 3
	cfg.Timesteps = 10
	cfg.Seed = 1
	return cfg
}

func zeroDenoiser() DenoiserFunc[float64, backend] {
	return func(x *traj, _ Conditioning[float64, backend], _ *tensor.Tensor[int64, backend], _ bool) *traj {
		return tensor.Zeros[float64](x.Shape(), x.Backend())
	}
}

func newTestProcess(t *testing.T, cfg Config, model Denoiser[float64, backend]) *Process[float64, backend] {
	t.Helper()
	p, err := New[float64, backend](cfg, model, cpu.New(), WithSource(rand.New(rand.NewSource(42))))
	require.NoError(t, err)
	return p
}

func fromSlice(t *testing.T, data []float64, shape ...int) *traj {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), cpu.New())
	require.NoError(t, err)
	return x
}

func steps(t *testing.T, values ...int64) *tensor.Tensor[int64, backend] {
	t.Helper()
	ts, err := tensor.FromSlice(values, tensor.Shape{len(values)}, cpu.New())
	require.NoError(t, err)
	return ts
}

func randn(seed int64, shape ...int) *traj {
	return tensor.Randn[float64](tensor.Shape(shape), rand.New(rand.NewSource(seed)), cpu.New())
}

// slice returns x[b, h, from:to].
func slice(x *traj, b, h, from, to int) []float64 {
	s := x.Shape()
	base := (b*s[1] + h) * s[2]
	return append([]float64(nil), x.Data()[base+from:base+to]...)
}
