package diffusion

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/technodrome/diffuser/internal/tensor"
)

// LossWeights builds the (horizon, transitionDim) weight matrix applied to
// the per-element training loss:
//
//	dim[j]        = 1, or LossWeightsByDimension[j-actionDim] for observation dims
//	discount[h]   = lossDiscount^h / mean(lossDiscount^0..H-1)
//	w[h, j]       = discount[h] * dim[j]
//	w[0, :action] = actionWeight
func LossWeights(cfg Config) (*mat.Dense, error) {
	if cfg.Horizon <= 0 || cfg.TransitionDim() <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "loss weights need a positive horizon and transition dim, got %d x %d",
			cfg.Horizon, cfg.TransitionDim())
	}
	if !(cfg.LossDiscount > 0 && cfg.LossDiscount <= 1) {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "loss_discount must be in (0, 1], got %v", cfg.LossDiscount)
	}
	if len(cfg.LossWeightsByDimension) > cfg.ObservationDim {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "%d dimension weights for %d observation dimensions",
			len(cfg.LossWeightsByDimension), cfg.ObservationDim)
	}

	dims := make([]float64, cfg.TransitionDim())
	for i := range dims {
		dims[i] = 1
	}
	for i, w := range cfg.LossWeightsByDimension {
		dims[cfg.ActionDim+i] *= w
	}

	discounts := make([]float64, cfg.Horizon)
	for h := range discounts {
		discounts[h] = math.Pow(cfg.LossDiscount, float64(h))
	}
	floats.Scale(1/stat.Mean(discounts, nil), discounts)

	var w mat.Dense
	w.Outer(1, mat.NewVecDense(cfg.Horizon, discounts), mat.NewVecDense(len(dims), dims))

	for j := 0; j < cfg.ActionDim; j++ {
		w.Set(0, j, cfg.ActionWeight)
	}
	return &w, nil
}

// denseToTensor copies a gonum matrix into a (rows, cols) tensor.
func denseToTensor[T Float, B tensor.Backend](m mat.Matrix, b B) *tensor.Tensor[T, B] {
	rows, cols := m.Dims()
	t := tensor.Zeros[T](tensor.Shape{rows, cols}, b)
	data := t.Data()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data[i*cols+j] = T(m.At(i, j))
		}
	}
	return t
}
