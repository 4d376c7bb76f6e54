package diffusion

import (
	"github.com/pkg/errors"

	"github.com/technodrome/diffuser/internal/tensor"
)

// Extract gathers coefficients[t[b]] for every batch element b and reshapes
// the result to (batch, 1, ..., 1) with len(target)-1 trailing singleton
// dimensions, so it broadcasts against a tensor of shape target.
//
// Example:
//
//	c, _ := Extract(sqrtAlphasCumProd, t, x.Shape()) // (B, 1, 1)
//	scaled := c.Mul(x)                              // (B, H, D)
func Extract[T Float, B tensor.Backend](coefficients *tensor.Tensor[T, B], t *tensor.Tensor[int64, B], target tensor.Shape) (*tensor.Tensor[T, B], error) {
	if len(coefficients.Shape()) != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "coefficients must be 1-D, got shape %v", coefficients.Shape())
	}
	if len(t.Shape()) != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "timesteps must be 1-D, got shape %v", t.Shape())
	}
	if len(target) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "target shape must have a batch dimension")
	}

	batch := t.Shape()[0]
	if target[0] != batch {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d timesteps for target batch %d", batch, target[0])
	}

	n := int64(coefficients.Shape()[0])
	for i, v := range t.Data() {
		if v < 0 || v >= n {
			return nil, errors.Wrapf(ErrIndexOutOfRange, "timestep %d at batch index %d outside [0, %d)", v, i, n)
		}
	}

	out := make([]int, len(target))
	out[0] = batch
	for i := 1; i < len(out); i++ {
		out[i] = 1
	}
	return tensor.IndexSelect(coefficients, 0, t).Reshape(out...), nil
}

// MakeTimesteps returns a (batch,) timestep vector holding step for every element.
func MakeTimesteps[B tensor.Backend](batch, step int, b B) *tensor.Tensor[int64, B] {
	return tensor.Full[int64](tensor.Shape{batch}, int64(step), b)
}
