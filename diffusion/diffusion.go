// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package diffusion

import (
	"gonum.org/v1/gonum/mat"

	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/tensor"
)

// Float is the element type constraint for trajectories.
type Float = diffusion.Float

// Error kinds, matched with errors.Is.
var (
	ErrShapeMismatch        = diffusion.ErrShapeMismatch
	ErrIndexOutOfRange      = diffusion.ErrIndexOutOfRange
	ErrInvalidConfiguration = diffusion.ErrInvalidConfiguration
)

// Configuration

// Config holds the process hyperparameters; see DefaultConfig.
type Config = diffusion.Config

// LossType selects the training loss.
type LossType = diffusion.LossType

// Loss types.
const (
	LossL1      = diffusion.LossL1
	LossL2      = diffusion.LossL2
	LossValueL1 = diffusion.LossValueL1
	LossValueL2 = diffusion.LossValueL2
)

// DefaultConfig returns the reference hyperparameters.
func DefaultConfig() Config {
	return diffusion.DefaultConfig()
}

// LoadConfig reads a YAML configuration on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	return diffusion.LoadConfig(path)
}

// ParseConfig parses a YAML configuration on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	return diffusion.ParseConfig(data)
}

// Schedule

// Schedule holds the noise schedule coefficients, one per timestep.
type Schedule = diffusion.Schedule

// CosineBetaSchedule returns the betas of the cosine schedule.
func CosineBetaSchedule(timesteps int) ([]float64, error) {
	return diffusion.CosineBetaSchedule(timesteps)
}

// NewCosineSchedule builds the schedule of CosineBetaSchedule(timesteps).
func NewCosineSchedule(timesteps int) (*Schedule, error) {
	return diffusion.NewCosineSchedule(timesteps)
}

// NewSchedule derives every coefficient from betas.
func NewSchedule(betas []float64) (*Schedule, error) {
	return diffusion.NewSchedule(betas)
}

// Extract gathers coefficients[t[b]] per batch element, shaped to broadcast
// against target.
func Extract[T Float, B tensor.Backend](coefficients *tensor.Tensor[T, B], t *tensor.Tensor[int64, B], target tensor.Shape) (*tensor.Tensor[T, B], error) {
	return diffusion.Extract(coefficients, t, target)
}

// MakeTimesteps returns a (batch,) vector filled with step.
func MakeTimesteps[B tensor.Backend](batch, step int, b B) *tensor.Tensor[int64, B] {
	return diffusion.MakeTimesteps(batch, step, b)
}

// Conditioning

// Conditioning maps horizon indices to observations of shape
// (batch, observation) or (observation,).
type Conditioning[T Float, B tensor.Backend] = diffusion.Conditioning[T, B]

// ApplyConditioning writes the conditioned observations into x.
func ApplyConditioning[T Float, B tensor.Backend](x *tensor.Tensor[T, B], cond Conditioning[T, B], actionDim int) (*tensor.Tensor[T, B], error) {
	return diffusion.ApplyConditioning(x, cond, actionDim)
}

// Models

// Denoiser predicts noise or the clean trajectory from a noisy one.
type Denoiser[T Float, B tensor.Backend] = diffusion.Denoiser[T, B]

// DenoiserFunc adapts a function to the Denoiser interface.
type DenoiserFunc[T Float, B tensor.Backend] = diffusion.DenoiserFunc[T, B]

// ValueFunction estimates the value of each trajectory in a batch.
type ValueFunction[T Float, B tensor.Backend] = diffusion.ValueFunction[T, B]

// ValueFunc adapts a function to the ValueFunction interface.
type ValueFunc[T Float, B tensor.Backend] = diffusion.ValueFunc[T, B]

// Process

// Process is a Gaussian diffusion process around a denoiser.
type Process[T Float, B tensor.Backend] = diffusion.Process[T, B]

// Option configures a Process.
type Option = diffusion.Option

// WithSource sets the random source for noise and timestep draws.
var WithSource = diffusion.WithSource

// WithLogger sets the logger.
var WithLogger = diffusion.WithLogger

// New validates cfg and builds a process around model.
func New[T Float, B tensor.Backend](cfg Config, model Denoiser[T, B], backend B, opts ...Option) (*Process[T, B], error) {
	return diffusion.New[T, B](cfg, model, backend, opts...)
}

// Sampling

// Sample is the result of the reverse process.
type Sample[T Float, B tensor.Backend] = diffusion.Sample[T, B]

// SampleFn performs one reverse step and scores the result.
type SampleFn[T Float, B tensor.Backend] = diffusion.SampleFn[T, B]

// SampleConfig controls PSampleLoop.
type SampleConfig[T Float, B tensor.Backend] = diffusion.SampleConfig[T, B]

// DefaultSampleConfig samples with DefaultSampleFn and no chain.
func DefaultSampleConfig[T Float, B tensor.Backend]() SampleConfig[T, B] {
	return diffusion.DefaultSampleConfig[T, B]()
}

// DefaultSampleFn draws x_{t-1} from the model posterior with zero values.
func DefaultSampleFn[T Float, B tensor.Backend](p *Process[T, B], x *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B]) (*tensor.Tensor[T, B], *tensor.Tensor[T, B], error) {
	return diffusion.DefaultSampleFn(p, x, cond, t)
}

// ValueSampleFn draws like DefaultSampleFn and scores the result with value.
func ValueSampleFn[T Float, B tensor.Backend](value ValueFunction[T, B]) SampleFn[T, B] {
	return diffusion.ValueSampleFn[T, B](value)
}

// Losses

// Info carries loss diagnostics.
type Info = diffusion.Info

// Loss compares predictions with targets.
type Loss[T Float, B tensor.Backend] = diffusion.Loss[T, B]

// WeightedLoss is the weighted trajectory reconstruction loss.
type WeightedLoss[T Float, B tensor.Backend] = diffusion.WeightedLoss[T, B]

// ValueLoss is the value regression loss.
type ValueLoss[T Float, B tensor.Backend] = diffusion.ValueLoss[T, B]

// NewLoss returns the loss of type lt.
func NewLoss[T Float, B tensor.Backend](lt LossType, weights *tensor.Tensor[T, B], actionDim int) (Loss[T, B], error) {
	return diffusion.NewLoss(lt, weights, actionDim)
}

// LossWeights returns the (horizon, transition) weight matrix for cfg.
func LossWeights(cfg Config) (*mat.Dense, error) {
	return diffusion.LossWeights(cfg)
}

// ValueDiffusion trains a value function on noised trajectories.
type ValueDiffusion[T Float, B tensor.Backend] = diffusion.ValueDiffusion[T, B]

// NewValueDiffusion wraps p, which must use a value loss type.
func NewValueDiffusion[T Float, B tensor.Backend](p *Process[T, B], value ValueFunction[T, B]) (*ValueDiffusion[T, B], error) {
	return diffusion.NewValueDiffusion(p, value)
}
