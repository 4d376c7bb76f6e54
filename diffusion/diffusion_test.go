// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package diffusion_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technodrome/diffuser/backend/cpu"
	"github.com/technodrome/diffuser/diffusion"
	"github.com/technodrome/diffuser/nn"
	"github.com/technodrome/diffuser/tensor"
)

type backend = *cpu.Backend

func smallConfig() diffusion.Config {
	cfg := diffusion.DefaultConfig()
	cfg.Horizon = 6
	cfg.ObservationDim = 3
	cfg.ActionDim = 2
	cfg.Timesteps = 8
	cfg.Seed = 3
	return cfg
}

func TestPlanWithReferenceDenoiser(t *testing.T) {
	cfg := smallConfig()
	b := cpu.New()
	model := nn.NewMLPDenoiser[float64](cfg.TransitionDim(), 8, []int{16, 16}, rand.New(rand.NewSource(1)), b)

	p, err := diffusion.New[float64, backend](cfg, model, b)
	require.NoError(t, err)

	start, err := tensor.FromSlice([]float64{0.1, -0.2, 0.3}, tensor.Shape{3}, b)
	require.NoError(t, err)
	goal, err := tensor.FromSlice([]float64{1, 1, -1}, tensor.Shape{3}, b)
	require.NoError(t, err)
	cond := diffusion.Conditioning[float64, backend]{0: start, cfg.Horizon - 1: goal}

	sample, err := p.ConditionalSample(context.Background(), cond, 0, diffusion.DefaultSampleConfig[float64, backend]())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 6, 5}, sample.Trajectories.Shape())
	for j, want := range []float64{0.1, -0.2, 0.3} {
		assert.Equal(t, want, sample.Trajectories.At(0, 0, cfg.ActionDim+j))
	}
	for j, want := range []float64{1, 1, -1} {
		assert.Equal(t, want, sample.Trajectories.At(0, cfg.Horizon-1, cfg.ActionDim+j))
	}

	x0 := tensor.Randn[float64](tensor.Shape{4, 6, 5}, rand.New(rand.NewSource(2)), b)
	loss, info, err := p.Loss(x0, cond)
	require.NoError(t, err)
	assert.Greater(t, loss.Item(), 0.0)
	assert.Contains(t, info, "a0_loss")
}

func TestFacadeHelpers(t *testing.T) {
	betas, err := diffusion.CosineBetaSchedule(8)
	require.NoError(t, err)
	assert.Len(t, betas, 8)

	s, err := diffusion.NewSchedule(betas)
	require.NoError(t, err)
	assert.Equal(t, 8, s.Timesteps())

	w, err := diffusion.LossWeights(smallConfig())
	require.NoError(t, err)
	rows, cols := w.Dims()
	assert.Equal(t, 6, rows)
	assert.Equal(t, 5, cols)

	_, err = diffusion.NewCosineSchedule(0)
	assert.ErrorIs(t, err, diffusion.ErrInvalidConfiguration)

	b := cpu.New()
	x := tensor.Zeros[float64](tensor.Shape{1, 6, 5}, b)
	_, err = diffusion.ApplyConditioning(x, diffusion.Conditioning[float64, backend]{6: tensor.Zeros[float64](tensor.Shape{3}, b)}, 2)
	assert.ErrorIs(t, err, diffusion.ErrIndexOutOfRange)

	ts := diffusion.MakeTimesteps(3, 2, b)
	assert.Equal(t, []int64{2, 2, 2}, ts.Data())
}
