package diffusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineBetaSchedule_Bounds(t *testing.T) {
	for _, n := range []int{1, 2, 4, 10, 100, 1000} {
		s, err := NewCosineSchedule(n)
		require.NoError(t, err)
		require.Equal(t, n, s.Timesteps())

		betas := s.Betas()
		ac := s.AlphasCumProd()
		prev := s.AlphasCumProdPrev()
		require.Len(t, betas, n)
		require.Len(t, ac, n)
		require.Len(t, prev, n)

		for i, b := range betas {
			assert.GreaterOrEqual(t, b, 0.0, "timesteps=%d beta[%d]", n, i)
			assert.LessOrEqual(t, b, 0.999, "timesteps=%d beta[%d]", n, i)
		}
		for i := 1; i < n; i++ {
			assert.LessOrEqual(t, ac[i], ac[i-1], "alphasCumProd must not increase (timesteps=%d, i=%d)", n, i)
		}

		assert.Equal(t, 1.0, prev[0])
		for i := 1; i < n; i++ {
			assert.Equal(t, ac[i-1], prev[i])
		}
	}
}

func TestCosineBetaSchedule_FourSteps(t *testing.T) {
	betas, err := CosineBetaSchedule(4)
	require.NoError(t, err)

	// steps = 5, x = linspace(0, 5, 5) = {0, 1.25, 2.5, 3.75, 5}
	f := func(x float64) float64 {
		c := math.Cos((x/5 + 0.008) / 1.008 * math.Pi / 2)
		return c * c
	}
	xs := []float64{0, 1.25, 2.5, 3.75, 5}
	for i := 0; i < 4; i++ {
		want := math.Min(math.Max(1-f(xs[i+1])/f(xs[i]), 0), 0.999)
		assert.InDelta(t, want, betas[i], 1e-12, "beta[%d]", i)
	}

	for i, b := range betas {
		assert.Greater(t, b, 0.0, "beta[%d]", i)
		if i > 0 {
			assert.Greater(t, b, betas[i-1], "betas must increase")
		}
	}
	assert.Equal(t, 0.999, betas[3], "the last beta is clamped")
}

func TestCosineBetaSchedule_Invalid(t *testing.T) {
	_, err := CosineBetaSchedule(0)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewCosineSchedule(-3)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewSchedule(nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewSchedule([]float64{0.1, 0})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNewSchedule_DerivedCoefficients(t *testing.T) {
	s, err := NewCosineSchedule(50)
	require.NoError(t, err)

	betas := s.Betas()
	alphas := s.Alphas()
	ac := s.AlphasCumProd()
	prev := s.AlphasCumProdPrev()
	sqrtAC := s.SqrtAlphasCumProd()
	sqrtOneMinus := s.SqrtOneMinusAlphasCumProd()
	logOneMinus := s.LogOneMinusAlphasCumProd()
	invSqrtAC := s.InverseSqrtAlphasCumProd()
	recipM1 := s.SqrtRecipMinusOneAlphasCumProd()
	pv := s.PosteriorVariance()
	plv := s.PosteriorLogVarianceClipped()
	c1 := s.PosteriorMeanCoef1()
	c2 := s.PosteriorMeanCoef2()

	for i := range betas {
		assert.InDelta(t, 1-betas[i], alphas[i], 1e-15)
		assert.InDelta(t, math.Sqrt(ac[i]), sqrtAC[i], 1e-12)
		assert.InDelta(t, math.Sqrt(1-ac[i]), sqrtOneMinus[i], 1e-12)
		assert.InDelta(t, math.Log(1-ac[i]), logOneMinus[i], 1e-12)
		assert.InDelta(t, 1/math.Sqrt(ac[i]), invSqrtAC[i], 1e-9)

		assert.InDelta(t, math.Sqrt(1/ac[i]-1), recipM1[i], 1e-9)
		assert.InDelta(t, sqrtOneMinus[i]/sqrtAC[i], recipM1[i], 1e-9)

		assert.InDelta(t, betas[i]*(1-prev[i])/(1-ac[i]), pv[i], 1e-12)
		assert.InDelta(t, math.Log(math.Max(pv[i], 1e-20)), plv[i], 1e-12)
		assert.InDelta(t, betas[i]*math.Sqrt(prev[i])/(1-ac[i]), c1[i], 1e-12)
		assert.InDelta(t, (1-prev[i])*alphas[i]/(1-ac[i]), c2[i], 1e-12)
	}

	// At t = 0 the posterior collapses onto x_0.
	assert.Equal(t, 0.0, pv[0])
	assert.InDelta(t, math.Log(1e-20), plv[0], 1e-12)
	assert.InDelta(t, 1.0, c1[0], 1e-12)
	assert.Equal(t, 0.0, c2[0])
}

func TestSchedule_AccessorsReturnCopies(t *testing.T) {
	s, err := NewCosineSchedule(5)
	require.NoError(t, err)

	b := s.Betas()
	b[0] = 42
	assert.NotEqual(t, 42.0, s.Betas()[0])
}
