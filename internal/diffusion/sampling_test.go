package diffusion

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technodrome/diffuser/internal/backend/cpu"
	"github.com/technodrome/diffuser/internal/tensor"
)

// recordingDenoiser returns zeros and records the timestep of every call.
type recordingDenoiser struct {
	mu    sync.Mutex
	steps []int64
	hook  func(call int)
}

func (r *recordingDenoiser) Forward(x *traj, _ Conditioning[float64, backend], t *tensor.Tensor[int64, backend], _ bool) *traj {
	r.mu.Lock()
	r.steps = append(r.steps, t.Data()[0])
	call := len(r.steps)
	r.mu.Unlock()

	if r.hook != nil {
		r.hook(call)
	}
	return tensor.Zeros[float64](x.Shape(), x.Backend())
}

func TestPSampleLoop_StepsInOrder(t *testing.T) {
	model := &recordingDenoiser{}
	p := newTestProcess(t, testConfig(), model)

	sample, err := p.PSampleLoop(context.Background(), tensor.Shape{2, 4, 5}, nil, DefaultSampleConfig[float64, backend]())
	require.NoError(t, err)

	assert.Equal(t, []int64{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}, model.steps)
	assert.Equal(t, tensor.Shape{2, 4, 5}, sample.Trajectories.Shape())
	assert.Equal(t, tensor.Shape{2}, sample.Values.Shape())
	assert.Nil(t, sample.Chain)
}

func TestPSampleLoop_ChainSatisfiesConditioning(t *testing.T) {
	cfg := testConfig()
	cfg.Timesteps = 5
	p := newTestProcess(t, cfg, zeroDenoiser())

	start := randn(11, 3, 3)
	goal := fromSlice(t, []float64{0.5, -0.5, 0.25}, 3)
	cond := Conditioning[float64, backend]{0: start, 3: goal}

	sc := DefaultSampleConfig[float64, backend]()
	sc.ReturnChain = true
	sample, err := p.PSampleLoop(context.Background(), tensor.Shape{3, 4, 5}, cond, sc)
	require.NoError(t, err)

	require.NotNil(t, sample.Chain)
	assert.Equal(t, tensor.Shape{3, cfg.Timesteps + 1, 4, 5}, sample.Chain.Shape())

	chain := sample.Chain
	for b := 0; b < 3; b++ {
		for step := 0; step <= cfg.Timesteps; step++ {
			row := func(h int) []float64 {
				out := make([]float64, 3)
				for j := range out {
					out[j] = chain.At(b, step, h, 2+j)
				}
				return out
			}
			assert.Equal(t, start.Data()[b*3:(b+1)*3], row(0), "batch %d chain step %d start", b, step)
			assert.Equal(t, goal.Data(), row(3), "batch %d chain step %d goal", b, step)
		}
		assert.Equal(t, slice(sample.Trajectories, b, 0, 2, 5), start.Data()[b*3:(b+1)*3])
	}
}

func TestPSampleLoop_SingleStepHasNoNoise(t *testing.T) {
	cfg := testConfig()
	cfg.Timesteps = 1
	model := &recordingDenoiser{}
	p := newTestProcess(t, cfg, model)

	sc := DefaultSampleConfig[float64, backend]()
	sc.ReturnChain = true
	sample, err := p.PSampleLoop(context.Background(), tensor.Shape{2, 4, 5}, nil, sc)
	require.NoError(t, err)

	assert.Equal(t, []int64{0}, model.steps, "exactly one reverse step at t = 0")

	// With a zero epsilon prediction and z = 0 the step is deterministic:
	// x_0 = x_T / sqrt(alphasCumProd[0]).
	scale := p.Schedule().InverseSqrtAlphasCumProd()[0]
	for b := 0; b < 2; b++ {
		for h := 0; h < 4; h++ {
			for j := 0; j < 5; j++ {
				initial := sample.Chain.At(b, 0, h, j)
				assert.InDelta(t, initial*scale, sample.Trajectories.At(b, h, j), 1e-9)
				assert.Equal(t, sample.Trajectories.At(b, h, j), sample.Chain.At(b, 1, h, j))
			}
		}
	}
}

func TestPSampleLoop_SortsByValue(t *testing.T) {
	p := newTestProcess(t, testConfig(), zeroDenoiser())

	// Value of a trajectory is its first element.
	value := ValueFunc[float64, backend](func(x *traj, _ Conditioning[float64, backend], _ *tensor.Tensor[int64, backend]) *traj {
		batch := x.Shape()[0]
		out := tensor.Zeros[float64](tensor.Shape{batch, 1}, x.Backend())
		for b := 0; b < batch; b++ {
			out.Data()[b] = x.At(b, 0, 0)
		}
		return out
	})

	sc := SampleConfig[float64, backend]{
		ReturnChain: true,
		SampleFn:    ValueSampleFn[float64, backend](value),
	}
	sample, err := p.PSampleLoop(context.Background(), tensor.Shape{6, 4, 5}, nil, sc)
	require.NoError(t, err)

	values := sample.Values.Data()
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i-1], values[i], "values must be sorted descending")
	}
	last := p.Config().Timesteps
	for b := range values {
		assert.Equal(t, values[b], sample.Trajectories.At(b, 0, 0), "trajectory %d travels with its value", b)
		assert.Equal(t, sample.Trajectories.At(b, 2, 3), sample.Chain.At(b, last, 2, 3), "chain %d permuted with the batch", b)
	}
}

func TestPSampleLoop_Cancelled(t *testing.T) {
	p := newTestProcess(t, testConfig(), zeroDenoiser())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.PSampleLoop(ctx, tensor.Shape{1, 4, 5}, nil, DefaultSampleConfig[float64, backend]())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPSampleLoop_CancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := &recordingDenoiser{hook: func(call int) {
		if call == 3 {
			cancel()
		}
	}}
	p := newTestProcess(t, testConfig(), model)

	_, err := p.PSampleLoop(ctx, tensor.Shape{1, 4, 5}, nil, DefaultSampleConfig[float64, backend]())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, model.steps, 3)
}

func TestPSampleLoop_Errors(t *testing.T) {
	p := newTestProcess(t, testConfig(), zeroDenoiser())
	ctx := context.Background()

	_, err := p.PSampleLoop(ctx, tensor.Shape{1, 4, 6}, nil, SampleConfig[float64, backend]{})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = p.PSampleLoop(ctx, tensor.Shape{4, 5}, nil, SampleConfig[float64, backend]{})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	badValues := SampleConfig[float64, backend]{
		SampleFn: func(p *Process[float64, backend], x *traj, _ Conditioning[float64, backend], _ *tensor.Tensor[int64, backend]) (*traj, *traj, error) {
			return x, tensor.Zeros[float64](tensor.Shape{7}, x.Backend()), nil
		},
	}
	_, err = p.PSampleLoop(ctx, tensor.Shape{2, 4, 5}, nil, badValues)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = p.PSampleLoop(ctx, tensor.Shape{2, 4, 5}, Conditioning[float64, backend]{7: randn(1, 3)}, SampleConfig[float64, backend]{})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestConditionalSample(t *testing.T) {
	p := newTestProcess(t, testConfig(), zeroDenoiser())
	start := randn(12, 3, 3)
	cond := Conditioning[float64, backend]{0: start}

	sample, err := p.ConditionalSample(context.Background(), cond, 0, DefaultSampleConfig[float64, backend]())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 4, 5}, sample.Trajectories.Shape())
	for b := 0; b < 3; b++ {
		assert.Equal(t, start.Data()[b*3:(b+1)*3], slice(sample.Trajectories, b, 0, 2, 5))
	}

	sample, err = p.ConditionalSample(context.Background(), cond, 7, DefaultSampleConfig[float64, backend]())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 7, 5}, sample.Trajectories.Shape())

	sample, err = p.ConditionalSample(context.Background(), nil, 0, DefaultSampleConfig[float64, backend]())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 4, 5}, sample.Trajectories.Shape())

	shared := fromSlice(t, []float64{1, 2, 3}, 3)
	goals := randn(13, 2, 3)
	mixed := Conditioning[float64, backend]{0: shared, 3: goals}
	sample, err = p.ConditionalSample(context.Background(), mixed, 0, DefaultSampleConfig[float64, backend]())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 4, 5}, sample.Trajectories.Shape())
	for b := 0; b < 2; b++ {
		assert.Equal(t, []float64{1, 2, 3}, slice(sample.Trajectories, b, 0, 2, 5))
	}
}

func TestPSampleLoop_Concurrent(t *testing.T) {
	p := newTestProcess(t, testConfig(), zeroDenoiser())

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sample, err := p.PSampleLoop(context.Background(), tensor.Shape{2, 4, 5}, nil, DefaultSampleConfig[float64, backend]())
			if err == nil {
				for _, v := range sample.Trajectories.Data() {
					if math.IsNaN(v) {
						err = assert.AnError
					}
				}
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestPSampleLoop_VerboseLogging(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	logger := funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 2})

	cfg := testConfig()
	model := zeroDenoiser()
	p, err := New[float64, backend](cfg, model, cpu.New(), WithLogger(logger))
	require.NoError(t, err)

	sc := DefaultSampleConfig[float64, backend]()
	sc.Verbose = true
	_, err = p.PSampleLoop(context.Background(), tensor.Shape{1, 4, 5}, nil, sc)
	require.NoError(t, err)

	var stepLines, done int
	for _, l := range lines {
		switch {
		case strings.Contains(l, `"msg"="reverse step"`):
			stepLines++
		case strings.Contains(l, `"msg"="sampling complete"`):
			done++
		}
	}
	assert.Equal(t, cfg.Timesteps, stepLines)
	assert.Equal(t, 1, done)

	// Quiet sampling logs only the summary.
	lines = nil
	_, err = p.PSampleLoop(context.Background(), tensor.Shape{1, 4, 5}, nil, DefaultSampleConfig[float64, backend]())
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestSortOrder(t *testing.T) {
	assert.Equal(t, []int64{1, 3, 0, 2}, sortOrder([]float64{1, 5, 1, 2}))
	assert.Equal(t, []int64{0}, sortOrder([]float64{0}))
}
