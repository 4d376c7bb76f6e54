package diffusion

import (
	"maps"
	"slices"

	"github.com/pkg/errors"

	"github.com/technodrome/diffuser/internal/tensor"
)

// Conditioning maps a horizon index to the observation that must appear at
// that position of every sampled trajectory. Values have shape
// (batch, observationDim), or (observationDim,) to apply the same
// observation to the whole batch.
type Conditioning[T Float, B tensor.Backend] map[int]*tensor.Tensor[T, B]

// ApplyConditioning overwrites x[:, h, actionDim:] with cond[h] for every
// entry of cond, in ascending horizon order, and returns x. The action slice
// is left untouched. x is modified in place; copy it first to keep the
// unconditioned values. A nil or empty cond is a no-op.
//
// All entries are validated before anything is written, so on error x is unchanged.
func ApplyConditioning[T Float, B tensor.Backend](x *tensor.Tensor[T, B], cond Conditioning[T, B], actionDim int) (*tensor.Tensor[T, B], error) {
	if len(cond) == 0 {
		return x, nil
	}

	shape := x.Shape()
	if len(shape) != 3 {
		return nil, errors.Wrapf(ErrShapeMismatch, "trajectory must be (batch, horizon, transition), got %v", shape)
	}
	batch, horizon, transition := shape[0], shape[1], shape[2]
	if actionDim < 0 || actionDim > transition {
		return nil, errors.Wrapf(ErrShapeMismatch, "action dim %d outside transition dim %d", actionDim, transition)
	}
	obsDim := transition - actionDim

	keys := slices.Sorted(maps.Keys(cond))
	for _, h := range keys {
		if h < 0 || h >= horizon {
			return nil, errors.Wrapf(ErrIndexOutOfRange, "conditioning index %d outside horizon [0, %d)", h, horizon)
		}
		v := cond[h]
		if v == nil {
			return nil, errors.Wrapf(ErrShapeMismatch, "conditioning value at index %d is nil", h)
		}
		vs := v.Shape()
		switch {
		case len(vs) == 1 && vs[0] == obsDim:
		case len(vs) == 2 && vs[0] == batch && vs[1] == obsDim:
		default:
			return nil, errors.Wrapf(ErrShapeMismatch, "conditioning value at index %d has shape %v, want (%d, %d) or (%d)",
				h, vs, batch, obsDim, obsDim)
		}
	}

	data := x.Data()
	for _, h := range keys {
		v := cond[h].Data()
		perRow := len(cond[h].Shape()) == 2
		for b := 0; b < batch; b++ {
			row := data[(b*horizon+h)*transition+actionDim : (b*horizon+h+1)*transition]
			if perRow {
				copy(row, v[b*obsDim:(b+1)*obsDim])
			} else {
				copy(row, v)
			}
		}
	}
	return x, nil
}

// batchSize returns dim 0 of the first (batch, observation) value in
// ascending horizon order, or 1 when cond is empty or holds only shared
// (1-D) values.
func (c Conditioning[T, B]) batchSize() int {
	for _, h := range slices.Sorted(maps.Keys(c)) {
		if v := c[h]; v != nil && len(v.Shape()) >= 2 {
			return v.Shape()[0]
		}
	}
	return 1
}
