package diffusion

import (
	"github.com/pkg/errors"

	"github.com/technodrome/diffuser/internal/tensor"
)

// ValueDiffusion trains a value function on noised trajectories: the value
// of x_t should predict the return of the clean trajectory x_0.
type ValueDiffusion[T Float, B tensor.Backend] struct {
	process *Process[T, B]
	value   ValueFunction[T, B]
	loss    Loss[T, B]
}

// NewValueDiffusion wraps p. p must be configured with a value loss type.
func NewValueDiffusion[T Float, B tensor.Backend](p *Process[T, B], value ValueFunction[T, B]) (*ValueDiffusion[T, B], error) {
	if value == nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, "nil value function")
	}
	lt := p.cfg.LossType
	if !lt.IsValue() {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "value diffusion needs a value loss type, got %q", lt)
	}
	loss, err := NewLoss[T, B](lt, nil, 0)
	if err != nil {
		return nil, err
	}
	return &ValueDiffusion[T, B]{process: p, value: value, loss: loss}, nil
}

// Process returns the underlying diffusion process.
func (v *ValueDiffusion[T, B]) Process() *Process[T, B] { return v.process }

// PLosses noises x0 to t, conditions it, and regresses the predicted value
// against target (batch,) or (batch, 1).
func (v *ValueDiffusion[T, B]) PLosses(x0 *tensor.Tensor[T, B], cond Conditioning[T, B], target *tensor.Tensor[T, B], t *tensor.Tensor[int64, B]) (*tensor.Tensor[T, B], Info, error) {
	p := v.process
	if err := p.checkTrajectory(x0); err != nil {
		return nil, nil, err
	}
	batch := x0.Shape()[0]
	if target == nil || target.NumElements() != batch {
		return nil, nil, errors.Wrapf(ErrShapeMismatch, "target %v for batch %d", shapeOf(target), batch)
	}

	xNoisy, err := p.QSample(x0, t, nil)
	if err != nil {
		return nil, nil, err
	}
	if xNoisy, err = ApplyConditioning(xNoisy, cond, p.cfg.ActionDim); err != nil {
		return nil, nil, err
	}

	pred := v.value.Forward(xNoisy, cond, t)
	if pred == nil || pred.NumElements() != batch {
		return nil, nil, errors.Wrapf(ErrShapeMismatch, "value prediction %v for batch %d", shapeOf(pred), batch)
	}
	return v.loss.Compute(pred.Reshape(batch, 1), target.Reshape(batch, 1))
}

// Loss draws random timesteps and returns PLosses at them.
func (v *ValueDiffusion[T, B]) Loss(x0 *tensor.Tensor[T, B], cond Conditioning[T, B], target *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], Info, error) {
	p := v.process
	if err := p.checkTrajectory(x0); err != nil {
		return nil, nil, err
	}
	t := tensor.RandInt[int64](tensor.Shape{x0.Shape()[0]}, p.cfg.Timesteps, p.src, p.backend)
	return v.PLosses(x0, cond, target, t)
}
