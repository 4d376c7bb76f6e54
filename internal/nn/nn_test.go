package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"

	"github.com/technodrome/diffuser/internal/backend/cpu"
	"github.com/technodrome/diffuser/internal/tensor"
)

type testBackend = *cpu.CPUBackend

func mustFromSlice(t *testing.T, data []float64, shape ...int) *tensor.Tensor[float64, testBackend] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), cpu.New())
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return x
}

func assertClose(t *testing.T, want, got []float64, tol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("length mismatch: want %d, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(want[i]-got[i]) > tol {
			t.Errorf("element %d: want %v, got %v", i, want[i], got[i])
		}
	}
}

// ============================================================================
// Xavier Tests
// ============================================================================

func TestXavierBounds(t *testing.T) {
	backend := cpu.New()
	w := Xavier[float64](30, 20, tensor.Shape{20, 30}, rand.New(rand.NewSource(1)), backend)

	bound := math.Sqrt(6.0 / 50.0)
	var sum float64
	for _, v := range w.Data() {
		if math.Abs(v) > bound {
			t.Fatalf("value %v outside [-%v, %v]", v, bound, bound)
		}
		sum += v
	}
	if mean := sum / float64(w.NumElements()); math.Abs(mean) > 0.05 {
		t.Errorf("mean = %v, expected close to 0", mean)
	}
}

func TestXavierReproducible(t *testing.T) {
	backend := cpu.New()
	a := Xavier[float32](4, 4, tensor.Shape{4, 4}, rand.New(rand.NewSource(7)), backend)
	b := Xavier[float32](4, 4, tensor.Shape{4, 4}, rand.New(rand.NewSource(7)), backend)

	for i, v := range a.Data() {
		if b.Data()[i] != v {
			t.Fatalf("element %d differs: %v vs %v", i, v, b.Data()[i])
		}
	}
}

// ============================================================================
// Linear Tests
// ============================================================================

func TestLinearForward(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear[float64](2, 3, rand.New(rand.NewSource(1)), backend)

	err := layer.LoadStateDict(map[string]*tensor.RawTensor{
		"weight": mustFromSlice(t, []float64{1, 2, 3, 4, 5, 6}, 3, 2).Raw(),
		"bias":   mustFromSlice(t, []float64{0.5, 0, -1}, 3).Raw(),
	})
	if err != nil {
		t.Fatalf("LoadStateDict: %v", err)
	}

	out := layer.Forward(mustFromSlice(t, []float64{1, 1, 2, 0}, 2, 2))
	if !out.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("shape = %v, want [2 3]", out.Shape())
	}
	assertClose(t, []float64{3.5, 7, 10, 2.5, 6, 9}, out.Data(), 1e-12)
}

func TestLinearInitialBiasIsZero(t *testing.T) {
	layer := NewLinear[float64](5, 4, rand.New(rand.NewSource(2)), cpu.New())

	if got := len(layer.Parameters()); got != 2 {
		t.Fatalf("Parameters() returned %d, want 2", got)
	}
	for _, v := range layer.Bias().Tensor().Data() {
		if v != 0 {
			t.Fatalf("bias = %v, want 0", v)
		}
	}
	if layer.InFeatures() != 5 || layer.OutFeatures() != 4 {
		t.Errorf("features = %d -> %d, want 5 -> 4", layer.InFeatures(), layer.OutFeatures())
	}
}

func TestLinearLoadStateDictErrors(t *testing.T) {
	layer := NewLinear[float64](2, 3, rand.New(rand.NewSource(1)), cpu.New())
	weight := mustFromSlice(t, make([]float64, 6), 3, 2).Raw()

	tests := []struct {
		name  string
		state map[string]*tensor.RawTensor
	}{
		{"missing weight", map[string]*tensor.RawTensor{}},
		{"missing bias", map[string]*tensor.RawTensor{"weight": weight}},
		{"wrong shape", map[string]*tensor.RawTensor{
			"weight": mustFromSlice(t, make([]float64, 6), 2, 3).Raw(),
		}},
		{"wrong dtype", map[string]*tensor.RawTensor{
			"weight": tensor.Zeros[float32](tensor.Shape{3, 2}, cpu.New()).Raw(),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := layer.LoadStateDict(tt.state); !errors.Is(err, ErrStateDict) {
				t.Errorf("LoadStateDict() error = %v, want ErrStateDict", err)
			}
		})
	}
}

func TestLinearForwardPanicsOnBadInput(t *testing.T) {
	layer := NewLinear[float64](2, 3, rand.New(rand.NewSource(1)), cpu.New())

	defer func() {
		if recover() == nil {
			t.Error("expected panic for input with 3 features")
		}
	}()
	layer.Forward(mustFromSlice(t, make([]float64, 3), 1, 3))
}

// ============================================================================
// Swish Tests
// ============================================================================

func TestSwish(t *testing.T) {
	swish := NewSwish[float64, testBackend]()
	out := swish.Forward(mustFromSlice(t, []float64{0, 1, -1, 20}, 4))

	assertClose(t, []float64{0, 0.7310585786300049, -0.2689414213699951, 20}, out.Data(), 1e-7)
	if swish.Parameters() != nil {
		t.Error("Swish should have no parameters")
	}
}

// ============================================================================
// Sequential Tests
// ============================================================================

func TestSequentialStateDictKeys(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	backend := cpu.New()
	seq := NewSequential[float64, testBackend](
		NewLinear[float64](4, 8, rng, backend),
		NewSwish[float64, testBackend](),
		NewLinear[float64](8, 2, rng, backend),
	)

	if seq.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", seq.Len())
	}
	if got := len(seq.Parameters()); got != 4 {
		t.Errorf("Parameters() returned %d, want 4", got)
	}

	state := seq.StateDict()
	for _, key := range []string{"0.weight", "0.bias", "2.weight", "2.bias"} {
		if _, ok := state[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if len(state) != 4 {
		t.Errorf("state dict has %d keys, want 4", len(state))
	}
}
