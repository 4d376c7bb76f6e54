package diffusion

import "github.com/technodrome/diffuser/internal/tensor"

// Float is the element type constraint for trajectories.
type Float interface {
	~float32 | ~float64
}

// Denoiser predicts either the noise or the clean trajectory from a noisy
// trajectory x of shape (batch, horizon, transition) at timesteps t (batch,).
// The result must have the shape of x. Forward must not modify its inputs.
type Denoiser[T Float, B tensor.Backend] interface {
	Forward(x *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B], training bool) *tensor.Tensor[T, B]
}

// DenoiserFunc adapts a function to the Denoiser interface.
type DenoiserFunc[T Float, B tensor.Backend] func(x *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B], training bool) *tensor.Tensor[T, B]

// Forward calls f.
func (f DenoiserFunc[T, B]) Forward(x *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B], training bool) *tensor.Tensor[T, B] {
	return f(x, cond, t, training)
}

// ValueFunction estimates the value of each trajectory in a batch. The
// result has shape (batch, 1) or (batch,).
type ValueFunction[T Float, B tensor.Backend] interface {
	Forward(x *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B]) *tensor.Tensor[T, B]
}

// ValueFunc adapts a function to the ValueFunction interface.
type ValueFunc[T Float, B tensor.Backend] func(x *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B]) *tensor.Tensor[T, B]

// Forward calls f.
func (f ValueFunc[T, B]) Forward(x *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B]) *tensor.Tensor[T, B] {
	return f(x, cond, t)
}
