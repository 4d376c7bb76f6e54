package diffusion

import (
	"cmp"
	"context"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/technodrome/diffuser/internal/tensor"
)

// Sample is the result of reverse diffusion.
type Sample[T Float, B tensor.Backend] struct {
	// Trajectories has shape (batch, horizon, transition), sorted by Values
	// in descending order.
	Trajectories *tensor.Tensor[T, B]

	// Values has shape (batch,).
	Values *tensor.Tensor[T, B]

	// Chain has shape (batch, timesteps+1, horizon, transition) and holds the
	// conditioned trajectory before the first step and after every step.
	// Nil unless SampleConfig.ReturnChain is set.
	Chain *tensor.Tensor[T, B]
}

// SampleFn performs one reverse step from x at timesteps t and returns the
// new trajectory and a (batch,) or (batch, 1) value per trajectory.
type SampleFn[T Float, B tensor.Backend] func(p *Process[T, B], x *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B]) (*tensor.Tensor[T, B], *tensor.Tensor[T, B], error)

// SampleConfig controls PSampleLoop.
type SampleConfig[T Float, B tensor.Backend] struct {
	// Verbose logs every reverse step at V(2).
	Verbose bool

	// ReturnChain records the intermediate trajectories in Sample.Chain.
	ReturnChain bool

	// SampleFn performs each reverse step. Nil means DefaultSampleFn.
	SampleFn SampleFn[T, B]
}

// DefaultSampleConfig returns a quiet config using DefaultSampleFn.
func DefaultSampleConfig[T Float, B tensor.Backend]() SampleConfig[T, B] {
	return SampleConfig[T, B]{
		SampleFn: DefaultSampleFn[T, B],
	}
}

// DefaultSampleFn draws x_{t-1} = mean + exp(0.5 * logVariance) * z with
// z ~ N(0, I), and z = 0 for batch elements at t == 0. Values are zero.
func DefaultSampleFn[T Float, B tensor.Backend](p *Process[T, B], x *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B]) (*tensor.Tensor[T, B], *tensor.Tensor[T, B], error) {
	next, err := p.reverseStep(x, cond, t)
	if err != nil {
		return nil, nil, err
	}
	return next, tensor.Zeros[T](tensor.Shape{x.Shape()[0]}, p.backend), nil
}

// ValueSampleFn returns a step function like DefaultSampleFn whose values
// are value's estimate for the new trajectory, so PSampleLoop ranks the
// batch by value.
func ValueSampleFn[T Float, B tensor.Backend](value ValueFunction[T, B]) SampleFn[T, B] {
	return func(p *Process[T, B], x *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B]) (*tensor.Tensor[T, B], *tensor.Tensor[T, B], error) {
		next, err := p.reverseStep(x, cond, t)
		if err != nil {
			return nil, nil, err
		}
		values := value.Forward(next, cond, t)
		batch := x.Shape()[0]
		if values == nil || values.NumElements() != batch {
			return nil, nil, errors.Wrapf(ErrShapeMismatch, "value function returned %v for batch %d", shapeOf(values), batch)
		}
		return next, values.Reshape(batch), nil
	}
}

func (p *Process[T, B]) reverseStep(x *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B]) (*tensor.Tensor[T, B], error) {
	mean, _, logVariance, err := p.PMeanVariance(x, cond, t)
	if err != nil {
		return nil, err
	}

	batch := x.Shape()[0]
	noise := tensor.Randn[T](x.Shape(), p.src, p.backend)
	mask := tensor.Ones[T](tensor.Shape{batch, 1, 1}, p.backend)
	for b, step := range t.Data() {
		if step == 0 {
			mask.Data()[b] = 0
		}
	}

	std := logVariance.MulScalar(0.5).Exp()
	return mean.Add(std.Mul(noise.Mul(mask))), nil
}

// PSampleLoop runs the reverse process from pure noise of the given shape:
// condition, then for i = timesteps-1 down to 0 take one step with sc.SampleFn
// and condition again. The batch is finally sorted by value, best first.
//
// ctx is checked between steps; a cancelled loop returns the context error.
func (p *Process[T, B]) PSampleLoop(ctx context.Context, shape tensor.Shape, cond Conditioning[T, B], sc SampleConfig[T, B]) (*Sample[T, B], error) {
	if len(shape) != 3 || shape[2] != p.cfg.TransitionDim() {
		return nil, errors.Wrapf(ErrShapeMismatch, "sample shape %v, want (batch, horizon, %d)", shape, p.cfg.TransitionDim())
	}
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "sample shape %v: %v", shape, err)
	}
	sampleFn := sc.SampleFn
	if sampleFn == nil {
		sampleFn = DefaultSampleFn[T, B]
	}

	batch := shape[0]
	x, err := ApplyConditioning(tensor.Randn[T](shape, p.src, p.backend), cond, p.cfg.ActionDim)
	if err != nil {
		return nil, err
	}

	var chain []*tensor.Tensor[T, B]
	if sc.ReturnChain {
		chain = append(chain, x.Clone())
	}

	var values *tensor.Tensor[T, B]
	for i := p.cfg.Timesteps - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "sampling stopped before step %d", i)
		}

		t := MakeTimesteps(batch, i, p.backend)
		x, values, err = sampleFn(p, x, cond, t)
		if err != nil {
			return nil, errors.Wrapf(err, "reverse step %d", i)
		}
		if err := p.checkTrajectory(x); err != nil {
			return nil, errors.Wrapf(err, "reverse step %d", i)
		}
		if values == nil || values.NumElements() != batch {
			return nil, errors.Wrapf(ErrShapeMismatch, "reverse step %d returned values %v for batch %d", i, shapeOf(values), batch)
		}
		if x, err = ApplyConditioning(x, cond, p.cfg.ActionDim); err != nil {
			return nil, err
		}

		if sc.Verbose {
			v := values.Raw().Float64s()
			p.logger.V(2).Info("reverse step", "t", i, "vmin", floats.Min(v), "vmax", floats.Max(v))
		}
		if sc.ReturnChain {
			chain = append(chain, x.Clone())
		}
	}

	order := sortOrder(values.Raw().Float64s())
	index, err := tensor.FromSlice(order, tensor.Shape{batch}, p.backend)
	if err != nil {
		return nil, errors.Wrap(err, "build sort index")
	}

	sample := &Sample[T, B]{
		Trajectories: tensor.IndexSelect(x, 0, index),
		Values:       tensor.IndexSelect(values.Reshape(batch), 0, index),
	}
	if sc.ReturnChain {
		sample.Chain = tensor.IndexSelect(tensor.Stack(chain, 1), 0, index)
	}

	p.logger.V(1).Info("sampling complete", "batch", batch, "horizon", shape[1], "steps", p.cfg.Timesteps)
	return sample, nil
}

// sortOrder returns the indices of values in descending order. Ties keep
// their original order.
func sortOrder(values []float64) []int64 {
	order := make([]int64, len(values))
	for i := range order {
		order[i] = int64(i)
	}
	slices.SortStableFunc(order, func(a, b int64) int {
		return cmp.Compare(values[b], values[a])
	})
	return order
}

// ConditionalSample samples trajectories satisfying cond. The batch size is
// taken from the conditioning values (1 when they are shared or absent);
// horizon <= 0 selects the configured horizon.
func (p *Process[T, B]) ConditionalSample(ctx context.Context, cond Conditioning[T, B], horizon int, sc SampleConfig[T, B]) (*Sample[T, B], error) {
	if horizon <= 0 {
		horizon = p.cfg.Horizon
	}
	shape := tensor.Shape{cond.batchSize(), horizon, p.cfg.TransitionDim()}
	return p.PSampleLoop(ctx, shape, cond, sc)
}
