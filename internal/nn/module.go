// Package nn implements the layers of the reference trajectory denoiser.
//
// The package is inference only: parameters are plain tensors initialized
// from a seeded source or restored from a state dictionary. It provides:
//   - Module interface: Base interface for all layers
//   - Parameter: Named parameter tensor
//   - Linear: Fully connected layer
//   - Swish: x * sigmoid(x) activation
//   - SinusoidalTimeEmbedding: Diffusion timestep features
//   - Sequential: Container for stacking layers
//   - MLPDenoiser: Timestep-conditioned MLP over flattened transitions
package nn

import (
	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/internal/tensor"
)

// Module is the base interface for all layers.
//
// Modules compose into larger blocks:
//
//	mlp := nn.NewSequential[float64, Backend](
//	    nn.NewLinear[float64](in, 256, rng, backend),
//	    nn.NewSwish[float64, Backend](),
//	    nn.NewLinear[float64](256, out, rng, backend),
//	)
type Module[T diffusion.Float, B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[T, B]) *tensor.Tensor[T, B]

	// Parameters returns the parameters of this module, nil for
	// parameter-free layers such as activations.
	Parameters() []*Parameter[T, B]
}
