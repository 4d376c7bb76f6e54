package diffusion

import (
	"math/rand"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/technodrome/diffuser/internal/tensor"
)

// Process is a Gaussian diffusion process over trajectories of shape
// (batch, horizon, actionDim+observationDim).
//
// The schedule buffers and loss weights are built once in New and never
// modified, so a Process may be used by several goroutines at once.
type Process[T Float, B tensor.Backend] struct {
	cfg      Config
	model    Denoiser[T, B]
	backend  B
	schedule *Schedule
	buf      buffers[T, B]
	weights  *tensor.Tensor[T, B]
	loss     Loss[T, B]
	src      tensor.Source
	logger   logr.Logger
}

// buffers mirrors the schedule coefficients used by the tensor formulas.
type buffers[T Float, B tensor.Backend] struct {
	sqrtAlphasCumProd              *tensor.Tensor[T, B]
	sqrtOneMinusAlphasCumProd      *tensor.Tensor[T, B]
	inverseSqrtAlphasCumProd       *tensor.Tensor[T, B]
	sqrtRecipMinusOneAlphasCumProd *tensor.Tensor[T, B]
	posteriorVariance              *tensor.Tensor[T, B]
	posteriorLogVarianceClipped    *tensor.Tensor[T, B]
	posteriorMeanCoef1             *tensor.Tensor[T, B]
	posteriorMeanCoef2             *tensor.Tensor[T, B]
}

type options struct {
	src    tensor.Source
	logger logr.Logger
}

// Option configures a Process.
type Option func(*options)

// WithSource sets the random source used for noise and timestep draws.
// Calls into src are serialized by the process.
func WithSource(src tensor.Source) Option {
	return func(o *options) {
		o.src = src
	}
}

// WithLogger sets the logger for sampling progress. The default discards.
func WithLogger(logger logr.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New validates cfg and builds a process around model.
//
// Example:
//
//	backend := cpu.New()
//	p, err := diffusion.New[float32](cfg, model, backend, diffusion.WithSource(rand.New(rand.NewSource(1))))
func New[T Float, B tensor.Backend](cfg Config, model Denoiser[T, B], backend B, opts ...Option) (*Process[T, B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, "nil denoiser")
	}

	o := options{logger: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.src == nil {
		seed := cfg.Seed
		if seed < 0 {
			seed = time.Now().UnixNano()
		}
		o.src = rand.New(rand.NewSource(seed)) //nolint:gosec // sampling noise, not cryptography
	}

	schedule, err := NewCosineSchedule(cfg.Timesteps)
	if err != nil {
		return nil, err
	}

	w, err := LossWeights(cfg)
	if err != nil {
		return nil, err
	}
	weights := denseToTensor[T](w, backend)

	loss, err := NewLoss(cfg.LossType, weights, cfg.ActionDim)
	if err != nil {
		return nil, err
	}

	p := &Process[T, B]{
		cfg:      cfg,
		model:    model,
		backend:  backend,
		schedule: schedule,
		weights:  weights,
		loss:     loss,
		src:      &lockedSource{src: o.src},
		logger:   o.logger,
	}
	p.buf = buffers[T, B]{
		sqrtAlphasCumProd:              p.vector(schedule.sqrtAlphasCumProd),
		sqrtOneMinusAlphasCumProd:      p.vector(schedule.sqrtOneMinusAlphasCumProd),
		inverseSqrtAlphasCumProd:       p.vector(schedule.inverseSqrtAlphasCumProd),
		sqrtRecipMinusOneAlphasCumProd: p.vector(schedule.sqrtRecipMinusOneAlphasCumProd),
		posteriorVariance:              p.vector(schedule.posteriorVariance),
		posteriorLogVarianceClipped:    p.vector(schedule.posteriorLogVarianceClipped),
		posteriorMeanCoef1:             p.vector(schedule.posteriorMeanCoef1),
		posteriorMeanCoef2:             p.vector(schedule.posteriorMeanCoef2),
	}
	return p, nil
}

func (p *Process[T, B]) vector(v []float64) *tensor.Tensor[T, B] {
	t := tensor.Zeros[T](tensor.Shape{len(v)}, p.backend)
	data := t.Data()
	for i, x := range v {
		data[i] = T(x)
	}
	return t
}

// Config returns the configuration the process was built with.
func (p *Process[T, B]) Config() Config { return p.cfg }

// Schedule returns the noise schedule.
func (p *Process[T, B]) Schedule() *Schedule { return p.schedule }

// LossWeights returns a copy of the (horizon, transition) loss weight matrix.
func (p *Process[T, B]) LossWeights() *tensor.Tensor[T, B] { return p.weights.Clone() }

// Backend returns the compute backend.
func (p *Process[T, B]) Backend() B { return p.backend }

// Source returns the process random source.
func (p *Process[T, B]) Source() tensor.Source { return p.src }

// TransitionDim returns actionDim + observationDim.
func (p *Process[T, B]) TransitionDim() int { return p.cfg.TransitionDim() }

// PredictStartFromNoise estimates x_0 from x_t and the denoiser output.
// With PredictEpsilon the output is treated as noise:
//
//	x_0 = x_t / sqrt(alphasCumProd[t]) - sqrt(1/alphasCumProd[t] - 1) * noise
//
// otherwise the output already is the x_0 estimate and is returned as is.
func (p *Process[T, B]) PredictStartFromNoise(xT *tensor.Tensor[T, B], t *tensor.Tensor[int64, B], noise *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	if !xT.Shape().Equal(noise.Shape()) {
		return nil, errors.Wrapf(ErrShapeMismatch, "x_t %v and noise %v differ", xT.Shape(), noise.Shape())
	}
	if !p.cfg.PredictEpsilon {
		return noise, nil
	}

	a, err := Extract(p.buf.inverseSqrtAlphasCumProd, t, xT.Shape())
	if err != nil {
		return nil, err
	}
	b, err := Extract(p.buf.sqrtRecipMinusOneAlphasCumProd, t, xT.Shape())
	if err != nil {
		return nil, err
	}
	return a.Mul(xT).Sub(b.Mul(noise)), nil
}

// QPosterior returns the mean, variance and clipped log variance of
// q(x_{t-1} | x_t, x_0). Variances have shape (batch, 1, 1).
func (p *Process[T, B]) QPosterior(x0, xT *tensor.Tensor[T, B], t *tensor.Tensor[int64, B]) (mean, variance, logVariance *tensor.Tensor[T, B], err error) {
	if !x0.Shape().Equal(xT.Shape()) {
		return nil, nil, nil, errors.Wrapf(ErrShapeMismatch, "x_0 %v and x_t %v differ", x0.Shape(), xT.Shape())
	}

	shape := xT.Shape()
	c1, err := Extract(p.buf.posteriorMeanCoef1, t, shape)
	if err != nil {
		return nil, nil, nil, err
	}
	c2, err := Extract(p.buf.posteriorMeanCoef2, t, shape)
	if err != nil {
		return nil, nil, nil, err
	}
	if variance, err = Extract(p.buf.posteriorVariance, t, shape); err != nil {
		return nil, nil, nil, err
	}
	if logVariance, err = Extract(p.buf.posteriorLogVarianceClipped, t, shape); err != nil {
		return nil, nil, nil, err
	}

	mean = c1.Mul(x0).Add(c2.Mul(xT))
	return mean, variance, logVariance, nil
}

// PMeanVariance runs the denoiser on x and returns the reverse-step
// distribution p(x_{t-1} | x_t).
func (p *Process[T, B]) PMeanVariance(x *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B]) (mean, variance, logVariance *tensor.Tensor[T, B], err error) {
	if err := p.checkTrajectory(x); err != nil {
		return nil, nil, nil, err
	}

	out := p.model.Forward(x, cond, t, false)
	if out == nil || !out.Shape().Equal(x.Shape()) {
		return nil, nil, nil, errors.Wrapf(ErrShapeMismatch, "denoiser output %v for input %v", shapeOf(out), x.Shape())
	}

	x0, err := p.PredictStartFromNoise(x, t, out)
	if err != nil {
		return nil, nil, nil, err
	}
	if p.cfg.ClipDenoised {
		x0 = x0.Clamp(-1, 1)
	}
	return p.QPosterior(x0, x, t)
}

// QSample noises x0 to timestep t:
//
//	x_t = sqrt(alphasCumProd[t]) * x_0 + sqrt(1 - alphasCumProd[t]) * noise
//
// A nil noise is drawn from the process source.
func (p *Process[T, B]) QSample(x0 *tensor.Tensor[T, B], t *tensor.Tensor[int64, B], noise *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	if noise == nil {
		noise = tensor.Randn[T](x0.Shape(), p.src, p.backend)
	}
	if !noise.Shape().Equal(x0.Shape()) {
		return nil, errors.Wrapf(ErrShapeMismatch, "x_0 %v and noise %v differ", x0.Shape(), noise.Shape())
	}

	a, err := Extract(p.buf.sqrtAlphasCumProd, t, x0.Shape())
	if err != nil {
		return nil, err
	}
	b, err := Extract(p.buf.sqrtOneMinusAlphasCumProd, t, x0.Shape())
	if err != nil {
		return nil, err
	}
	return a.Mul(x0).Add(b.Mul(noise)), nil
}

// checkTrajectory verifies x is (batch, horizon, transition) with the
// configured transition dimension.
func (p *Process[T, B]) checkTrajectory(x *tensor.Tensor[T, B]) error {
	s := x.Shape()
	if len(s) != 3 || s[2] != p.cfg.TransitionDim() {
		return errors.Wrapf(ErrShapeMismatch, "trajectory shape %v, want (batch, horizon, %d)", s, p.cfg.TransitionDim())
	}
	return nil
}

func shapeOf[T Float, B tensor.Backend](t *tensor.Tensor[T, B]) tensor.Shape {
	if t == nil {
		return nil
	}
	return t.Shape()
}

// lockedSource serializes access to a random source shared by concurrent
// sampling and training calls.
type lockedSource struct {
	mu  sync.Mutex
	src tensor.Source
}

func (s *lockedSource) NormFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.NormFloat64()
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Intn(n)
}
