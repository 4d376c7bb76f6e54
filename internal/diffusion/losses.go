package diffusion

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/technodrome/diffuser/internal/tensor"
)

// LossType selects the training loss.
type LossType string

// Supported loss types.
const (
	LossL1      LossType = "l1"
	LossL2      LossType = "l2"
	LossValueL1 LossType = "value_l1"
	LossValueL2 LossType = "value_l2"
)

// Valid reports whether lt names a supported loss.
func (lt LossType) Valid() bool {
	switch lt {
	case LossL1, LossL2, LossValueL1, LossValueL2:
		return true
	}
	return false
}

// IsValue reports whether lt is a value-regression loss.
func (lt LossType) IsValue() bool {
	return lt == LossValueL1 || lt == LossValueL2
}

// Info holds scalar loss diagnostics keyed by name (a0_loss, corr, ...).
type Info map[string]float64

// Loss reduces a prediction and its target to a scalar loss tensor.
type Loss[T Float, B tensor.Backend] interface {
	Compute(pred, targ *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], Info, error)
}

// NewLoss returns the loss for lt. weights and actionDim are used by the
// weighted variants only.
func NewLoss[T Float, B tensor.Backend](lt LossType, weights *tensor.Tensor[T, B], actionDim int) (Loss[T, B], error) {
	switch lt {
	case LossL1:
		return NewWeightedL1(weights, actionDim), nil
	case LossL2:
		return NewWeightedL2(weights, actionDim), nil
	case LossValueL1:
		return NewValueL1[T, B](), nil
	case LossValueL2:
		return NewValueL2[T, B](), nil
	default:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "unknown loss type %q", lt)
	}
}

type elementLoss int

const (
	absError elementLoss = iota
	squaredError
)

func elementwise[T Float, B tensor.Backend](kind elementLoss, pred, targ *tensor.Tensor[T, B]) *tensor.Tensor[T, B] {
	diff := pred.Sub(targ)
	if kind == squaredError {
		return diff.Mul(diff)
	}
	return diff.Abs()
}

// WeightedLoss scales the element-wise loss by a (horizon, transition)
// weight matrix before averaging.
type WeightedLoss[T Float, B tensor.Backend] struct {
	kind      elementLoss
	weights   *tensor.Tensor[T, B]
	actionDim int
}

// NewWeightedL1 returns mean(|pred - targ| * weights).
func NewWeightedL1[T Float, B tensor.Backend](weights *tensor.Tensor[T, B], actionDim int) *WeightedLoss[T, B] {
	return &WeightedLoss[T, B]{kind: absError, weights: weights, actionDim: actionDim}
}

// NewWeightedL2 returns mean((pred - targ)^2 * weights).
func NewWeightedL2[T Float, B tensor.Backend](weights *tensor.Tensor[T, B], actionDim int) *WeightedLoss[T, B] {
	return &WeightedLoss[T, B]{kind: squaredError, weights: weights, actionDim: actionDim}
}

// Compute returns the weighted loss of pred against targ, both shaped
// (batch, horizon, transition). Info["a0_loss"] is the unweighted loss of the
// first transition's actions.
func (l *WeightedLoss[T, B]) Compute(pred, targ *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], Info, error) {
	ps := pred.Shape()
	if len(ps) != 3 || !ps.Equal(targ.Shape()) {
		return nil, nil, errors.Wrapf(ErrShapeMismatch, "prediction %v and target %v must be equal 3-D shapes", ps, targ.Shape())
	}
	if !l.weights.Shape().Equal(ps[1:]) {
		return nil, nil, errors.Wrapf(ErrShapeMismatch, "loss weights %v do not match trajectory %v", l.weights.Shape(), ps)
	}

	weighted := elementwise(l.kind, pred, targ).Mul(l.weights)
	loss := weighted.Mean()

	info := Info{}
	if l.actionDim > 0 {
		batch, horizon, transition := ps[0], ps[1], ps[2]
		wl := weighted.Raw().Float64s()
		w := l.weights.Raw().Float64s()

		var sum float64
		for b := 0; b < batch; b++ {
			row := wl[b*horizon*transition:]
			for j := 0; j < l.actionDim; j++ {
				sum += row[j] / w[j]
			}
		}
		info["a0_loss"] = sum / float64(batch*l.actionDim)
	}
	return loss, info, nil
}

// ValueLoss regresses predicted values against targets without weighting.
type ValueLoss[T Float, B tensor.Backend] struct {
	kind elementLoss
}

// NewValueL1 returns mean(|pred - targ|).
func NewValueL1[T Float, B tensor.Backend]() *ValueLoss[T, B] {
	return &ValueLoss[T, B]{kind: absError}
}

// NewValueL2 returns mean((pred - targ)^2).
func NewValueL2[T Float, B tensor.Backend]() *ValueLoss[T, B] {
	return &ValueLoss[T, B]{kind: squaredError}
}

// Compute returns the mean loss and prediction/target statistics. corr is
// the Pearson correlation of pred and targ, NaN for a single element.
func (l *ValueLoss[T, B]) Compute(pred, targ *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], Info, error) {
	if !pred.Shape().Equal(targ.Shape()) {
		return nil, nil, errors.Wrapf(ErrShapeMismatch, "prediction %v and target %v differ", pred.Shape(), targ.Shape())
	}

	loss := elementwise(l.kind, pred, targ).Mean()

	p := pred.Raw().Float64s()
	q := targ.Raw().Float64s()
	corr := math.NaN()
	if len(p) > 1 {
		corr = stat.Correlation(p, q, nil)
	}

	info := Info{
		"mean_pred": stat.Mean(p, nil),
		"mean_targ": stat.Mean(q, nil),
		"min_pred":  floats.Min(p),
		"min_targ":  floats.Min(q),
		"max_pred":  floats.Max(p),
		"max_targ":  floats.Max(q),
		"corr":      corr,
	}
	return loss, info, nil
}
