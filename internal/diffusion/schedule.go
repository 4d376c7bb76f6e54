package diffusion

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

const (
	// cosineOffset is the small offset s that keeps beta_0 away from zero.
	cosineOffset = 0.008

	maxBeta = 0.999

	// minPosteriorVariance floors the posterior variance before the log,
	// since it is exactly zero at t = 0.
	minPosteriorVariance = 1e-20
)

// CosineBetaSchedule returns the cosine noise schedule of length timesteps
// (Nichol & Dhariwal, 2021):
//
//	f(x)     = cos(((x/steps + s) / (1 + s)) * pi/2)^2,  x in linspace(0, steps, steps)
//	betas[i] = clamp(1 - f(x[i+1]) / f(x[i]), 0, 0.999)
//
// with steps = timesteps + 1 and s = 0.008.
func CosineBetaSchedule(timesteps int) ([]float64, error) {
	if timesteps <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "timesteps must be positive, got %d", timesteps)
	}

	steps := timesteps + 1
	x := floats.Span(make([]float64, steps), 0, float64(steps))

	f := make([]float64, steps)
	for i, xi := range x {
		c := math.Cos((xi/float64(steps) + cosineOffset) / (1 + cosineOffset) * math.Pi / 2)
		f[i] = c * c
	}

	betas := make([]float64, timesteps)
	for i := range betas {
		betas[i] = math.Min(math.Max(1-f[i+1]/f[i], 0), maxBeta)
	}
	return betas, nil
}

// Schedule holds the per-timestep coefficients derived from a beta schedule.
// It is immutable: accessors return copies.
type Schedule struct {
	betas                          []float64
	alphas                         []float64
	alphasCumProd                  []float64
	alphasCumProdPrev              []float64
	sqrtAlphasCumProd              []float64
	sqrtOneMinusAlphasCumProd      []float64
	logOneMinusAlphasCumProd       []float64
	inverseSqrtAlphasCumProd       []float64
	sqrtRecipMinusOneAlphasCumProd []float64
	posteriorVariance              []float64
	posteriorLogVarianceClipped    []float64
	posteriorMeanCoef1             []float64
	posteriorMeanCoef2             []float64
}

// NewCosineSchedule builds the cosine schedule for timesteps and derives its coefficients.
func NewCosineSchedule(timesteps int) (*Schedule, error) {
	betas, err := CosineBetaSchedule(timesteps)
	if err != nil {
		return nil, err
	}
	return NewSchedule(betas)
}

// NewSchedule derives every diffusion coefficient from betas.
//
//	alphas                  = 1 - betas
//	alphasCumProd           = cumprod(alphas)
//	alphasCumProdPrev       = [1, alphasCumProd[:-1]...]
//	posteriorVariance       = betas * (1 - alphasCumProdPrev) / (1 - alphasCumProd)
//	posteriorMeanCoef1      = betas * sqrt(alphasCumProdPrev) / (1 - alphasCumProd)
//	posteriorMeanCoef2      = (1 - alphasCumProdPrev) * alphas / (1 - alphasCumProd)
//	sqrtRecipMinusOne       = sqrt(1/alphasCumProd - 1)
func NewSchedule(betas []float64) (*Schedule, error) {
	n := len(betas)
	if n == 0 {
		return nil, errors.Wrap(ErrInvalidConfiguration, "empty beta schedule")
	}
	for i, b := range betas {
		if !(b > 0 && b <= maxBeta) {
			return nil, errors.Wrapf(ErrInvalidConfiguration, "beta[%d] = %v outside (0, %v]", i, b, maxBeta)
		}
	}

	s := &Schedule{betas: clone(betas)}

	s.alphas = apply(betas, func(b float64) float64 { return 1 - b })
	s.alphasCumProd = floats.CumProd(make([]float64, n), s.alphas)
	s.alphasCumProdPrev = append([]float64{1}, s.alphasCumProd[:n-1]...)

	oneMinus := apply(s.alphasCumProd, func(a float64) float64 { return 1 - a })
	oneMinusPrev := apply(s.alphasCumProdPrev, func(a float64) float64 { return 1 - a })

	s.sqrtAlphasCumProd = apply(s.alphasCumProd, math.Sqrt)
	s.sqrtOneMinusAlphasCumProd = apply(oneMinus, math.Sqrt)
	s.logOneMinusAlphasCumProd = apply(oneMinus, math.Log)
	s.inverseSqrtAlphasCumProd = apply(s.sqrtAlphasCumProd, func(v float64) float64 { return 1 / v })
	s.sqrtRecipMinusOneAlphasCumProd = apply(s.alphasCumProd, func(a float64) float64 { return math.Sqrt(1/a - 1) })

	s.posteriorVariance = make([]float64, n)
	s.posteriorLogVarianceClipped = make([]float64, n)
	s.posteriorMeanCoef1 = make([]float64, n)
	s.posteriorMeanCoef2 = make([]float64, n)
	for i := range betas {
		s.posteriorVariance[i] = betas[i] * oneMinusPrev[i] / oneMinus[i]
		s.posteriorLogVarianceClipped[i] = math.Log(math.Max(s.posteriorVariance[i], minPosteriorVariance))
		s.posteriorMeanCoef1[i] = betas[i] * math.Sqrt(s.alphasCumProdPrev[i]) / oneMinus[i]
		s.posteriorMeanCoef2[i] = oneMinusPrev[i] * s.alphas[i] / oneMinus[i]
	}

	return s, nil
}

// Timesteps returns the schedule length.
func (s *Schedule) Timesteps() int { return len(s.betas) }

// Betas returns the noise variance added at each forward step.
func (s *Schedule) Betas() []float64 { return clone(s.betas) }

// Alphas returns 1 - betas.
func (s *Schedule) Alphas() []float64 { return clone(s.alphas) }

// AlphasCumProd returns the cumulative product of alphas.
func (s *Schedule) AlphasCumProd() []float64 { return clone(s.alphasCumProd) }

// AlphasCumProdPrev returns alphasCumProd shifted right by one with a leading 1.
func (s *Schedule) AlphasCumProdPrev() []float64 { return clone(s.alphasCumProdPrev) }

func (s *Schedule) SqrtAlphasCumProd() []float64 { return clone(s.sqrtAlphasCumProd) }

func (s *Schedule) SqrtOneMinusAlphasCumProd() []float64 { return clone(s.sqrtOneMinusAlphasCumProd) }

func (s *Schedule) LogOneMinusAlphasCumProd() []float64 { return clone(s.logOneMinusAlphasCumProd) }

func (s *Schedule) InverseSqrtAlphasCumProd() []float64 { return clone(s.inverseSqrtAlphasCumProd) }

// SqrtRecipMinusOneAlphasCumProd returns sqrt(1/alphasCumProd - 1), the noise
// coefficient of the x_0 reconstruction.
func (s *Schedule) SqrtRecipMinusOneAlphasCumProd() []float64 {
	return clone(s.sqrtRecipMinusOneAlphasCumProd)
}

// PosteriorVariance returns the variance of q(x_{t-1} | x_t, x_0).
func (s *Schedule) PosteriorVariance() []float64 { return clone(s.posteriorVariance) }

// PosteriorLogVarianceClipped returns log(max(posteriorVariance, 1e-20)).
func (s *Schedule) PosteriorLogVarianceClipped() []float64 {
	return clone(s.posteriorLogVarianceClipped)
}

// PosteriorMeanCoef1 returns the x_0 coefficient of the posterior mean.
func (s *Schedule) PosteriorMeanCoef1() []float64 { return clone(s.posteriorMeanCoef1) }

// PosteriorMeanCoef2 returns the x_t coefficient of the posterior mean.
func (s *Schedule) PosteriorMeanCoef2() []float64 { return clone(s.posteriorMeanCoef2) }

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}

func apply(v []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = f(x)
	}
	return out
}
