// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/internal/nn"
	"github.com/technodrome/diffuser/tensor"
)

// Float is the element type constraint for layer parameters.
type Float = diffusion.Float

// ErrStateDict reports a state dictionary that does not fit the layer.
var ErrStateDict = nn.ErrStateDict

// Parameter represents a named parameter tensor.
type Parameter[T Float, B tensor.Backend] = nn.Parameter[T, B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[T Float, B tensor.Backend](name string, t *tensor.Tensor[T, B]) *Parameter[T, B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear represents a fully connected (dense) layer.
type Linear[T Float, B tensor.Backend] = nn.Linear[T, B]

// NewLinear creates a new linear layer with Xavier initialization.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear[float64](14, 256, rand.New(rand.NewSource(1)), backend)
//	output := layer.Forward(input) // input: [batch, 14], output: [batch, 256]
func NewLinear[T Float, B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[T, B] {
	return nn.NewLinear[T](inFeatures, outFeatures, rng, backend)
}

// SinusoidalTimeEmbedding maps diffusion timesteps to cosine and sine features.
type SinusoidalTimeEmbedding[T Float, B tensor.Backend] = nn.SinusoidalTimeEmbedding[T, B]

// NewSinusoidalTimeEmbedding creates an embedding of width dim.
func NewSinusoidalTimeEmbedding[T Float, B tensor.Backend](dim int, backend B) *SinusoidalTimeEmbedding[T, B] {
	return nn.NewSinusoidalTimeEmbedding[T](dim, backend)
}

// Activation functions

// Swish is the x * sigmoid(x) activation.
type Swish[T Float, B tensor.Backend] = nn.Swish[T, B]

// NewSwish creates a Swish activation.
func NewSwish[T Float, B tensor.Backend]() *Swish[T, B] {
	return nn.NewSwish[T, B]()
}

// Utilities

// Sequential chains modules, feeding each output into the next.
type Sequential[T Float, B tensor.Backend] = nn.Sequential[T, B]

// NewSequential creates a container running modules in order.
func NewSequential[T Float, B tensor.Backend](modules ...Module[T, B]) *Sequential[T, B] {
	return nn.NewSequential(modules...)
}

// Xavier returns a tensor drawn from U(-a, a) with a = sqrt(6/(fanIn+fanOut)).
func Xavier[T Float, B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[T, B] {
	return nn.Xavier[T](fanIn, fanOut, shape, rng, backend)
}

// Models

// DefaultHidden holds the default hidden widths of MLPDenoiser.
var DefaultHidden = nn.DefaultHidden

// MLPDenoiser is a timestep-conditioned MLP applied to every transition.
type MLPDenoiser[T Float, B tensor.Backend] = nn.MLPDenoiser[T, B]

// NewMLPDenoiser creates the reference denoiser for trajectories of width
// transitionDim.
func NewMLPDenoiser[T Float, B tensor.Backend](transitionDim, timeEmbedDim int, hidden []int, rng *rand.Rand, backend B) *MLPDenoiser[T, B] {
	return nn.NewMLPDenoiser[T](transitionDim, timeEmbedDim, hidden, rng, backend)
}
