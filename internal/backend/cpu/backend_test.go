package cpu

import (
	"math"
	"testing"

	"github.com/technodrome/diffuser/internal/parallel"
	"github.com/technodrome/diffuser/internal/tensor"
)

// Helper to create a float64 raw tensor from values.
func rawF64(t *testing.T, shape tensor.Shape, values ...float64) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float64, tensor.CPU)
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}
	copy(r.AsFloat64(), values)
	return r
}

// Helper to check float64 slices are equal within epsilon.
func float64SliceEqual(a, b []float64) bool {
	const epsilon = 1e-9
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > epsilon {
			return false
		}
	}
	return true
}

func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend == nil {
		t.Fatal("New() returned nil")
	}
	if backend.Name() != "CPU" {
		t.Errorf("Expected name 'CPU', got '%s'", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Expected device CPU, got %v", backend.Device())
	}
}

func TestCPUBackend_Add(t *testing.T) {
	backend := New()

	t.Run("SameShape", func(t *testing.T) {
		a := rawF64(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
		b := rawF64(t, tensor.Shape{2, 3}, 10, 11, 12, 13, 14, 15)

		result := backend.Add(a, b)

		expected := []float64{11, 13, 15, 17, 19, 21}
		if !float64SliceEqual(result.AsFloat64(), expected) {
			t.Errorf("Add failed: got %v, expected %v", result.AsFloat64(), expected)
		}
	})

	t.Run("InputsUntouched", func(t *testing.T) {
		a := rawF64(t, tensor.Shape{3}, 1, 2, 3)
		b := rawF64(t, tensor.Shape{3}, 10, 20, 30)

		_ = backend.Add(a, b)

		if !float64SliceEqual(a.AsFloat64(), []float64{1, 2, 3}) {
			t.Errorf("Add modified its input: %v", a.AsFloat64())
		}
	})

	t.Run("BroadcastColumn", func(t *testing.T) {
		a := rawF64(t, tensor.Shape{2, 1}, 1, 2)
		b := rawF64(t, tensor.Shape{2, 3}, 0, 0, 0, 10, 10, 10)

		result := backend.Add(a, b)

		if !result.Shape().Equal(tensor.Shape{2, 3}) {
			t.Fatalf("Expected shape [2 3], got %v", result.Shape())
		}
		expected := []float64{1, 1, 1, 12, 12, 12}
		if !float64SliceEqual(result.AsFloat64(), expected) {
			t.Errorf("Broadcast add: got %v, expected %v", result.AsFloat64(), expected)
		}
	})

	t.Run("BroadcastBatchCoefficient", func(t *testing.T) {
		// [B, 1, 1] * [B, H, D] is how per-sample schedule coefficients are applied.
		coef := rawF64(t, tensor.Shape{2, 1, 1}, 2, 3)
		x := rawF64(t, tensor.Shape{2, 2, 1}, 1, 1, 1, 1)

		result := backend.Mul(coef, x)

		expected := []float64{2, 2, 3, 3}
		if !float64SliceEqual(result.AsFloat64(), expected) {
			t.Errorf("Broadcast mul: got %v, expected %v", result.AsFloat64(), expected)
		}
	})

	t.Run("Incompatible", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for incompatible shapes")
			}
		}()
		a := rawF64(t, tensor.Shape{3, 4}, make([]float64, 12)...)
		b := rawF64(t, tensor.Shape{3, 5}, make([]float64, 15)...)
		backend.Add(a, b)
	})
}

func TestCPUBackend_SubMulDiv(t *testing.T) {
	backend := New()
	a := rawF64(t, tensor.Shape{4}, 8, 6, 4, 2)
	b := rawF64(t, tensor.Shape{4}, 2, 2, 2, 2)

	tests := []struct {
		name     string
		op       func(a, b *tensor.RawTensor) *tensor.RawTensor
		expected []float64
	}{
		{"Sub", backend.Sub, []float64{6, 4, 2, 0}},
		{"Mul", backend.Mul, []float64{16, 12, 8, 4}},
		{"Div", backend.Div, []float64{4, 3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op(a, b).AsFloat64()
			if !float64SliceEqual(got, tt.expected) {
				t.Errorf("%s: got %v, expected %v", tt.name, got, tt.expected)
			}
		})
	}
}

func TestCPUBackend_Int64Ops(t *testing.T) {
	backend := New()
	a, _ := tensor.NewRaw(tensor.Shape{3}, tensor.Int64, tensor.CPU)
	b, _ := tensor.NewRaw(tensor.Shape{3}, tensor.Int64, tensor.CPU)
	copy(a.AsInt64(), []int64{1, 2, 3})
	copy(b.AsInt64(), []int64{4, 5, 6})

	result := backend.Add(a, b).AsInt64()
	expected := []int64{5, 7, 9}
	for i := range expected {
		if result[i] != expected[i] {
			t.Errorf("result[%d] = %d, expected %d", i, result[i], expected[i])
		}
	}
}

func TestCPUBackend_DTypeMismatchPanics(t *testing.T) {
	backend := New()
	a, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	b, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Float64, tensor.CPU)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for dtype mismatch")
		}
	}()
	backend.Add(a, b)
}

func TestCPUBackend_ParallelMatchesSequential(t *testing.T) {
	n := 20000
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i) * 0.5
	}

	seq := NewWithConfig(parallel.Config{Enabled: false})
	par := NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 128})

	a := rawF64(t, tensor.Shape{n}, values...)
	b := rawF64(t, tensor.Shape{1}, 3)

	want := seq.Mul(a, b).AsFloat64()
	got := par.Mul(a, b).AsFloat64()
	if !float64SliceEqual(got, want) {
		t.Error("parallel broadcast mul differs from sequential result")
	}

	want = seq.Exp(a).AsFloat64()
	got = par.Exp(a).AsFloat64()
	if !float64SliceEqual(got, want) {
		t.Error("parallel exp differs from sequential result")
	}
}

func TestCPUBackend_Scalar(t *testing.T) {
	backend := New()
	x := rawF64(t, tensor.Shape{3}, 1, 2, 3)

	if got := backend.MulScalar(x, 2.0).AsFloat64(); !float64SliceEqual(got, []float64{2, 4, 6}) {
		t.Errorf("MulScalar: got %v", got)
	}
	if got := backend.AddScalar(x, 1.0).AsFloat64(); !float64SliceEqual(got, []float64{2, 3, 4}) {
		t.Errorf("AddScalar: got %v", got)
	}
	if got := backend.SubScalar(x, 1.0).AsFloat64(); !float64SliceEqual(got, []float64{0, 1, 2}) {
		t.Errorf("SubScalar: got %v", got)
	}
	if got := backend.DivScalar(x, 2.0).AsFloat64(); !float64SliceEqual(got, []float64{0.5, 1, 1.5}) {
		t.Errorf("DivScalar: got %v", got)
	}
}

func TestCPUBackend_MatMul(t *testing.T) {
	backend := New()

	// [[1, 2, 3],      [[7,  8],      [[58,  64],
	//  [4, 5, 6]]  @    [9, 10],   =   [139, 154]]
	//                   [11, 12]]
	a := rawF64(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	b := rawF64(t, tensor.Shape{3, 2}, 7, 8, 9, 10, 11, 12)

	result := backend.MatMul(a, b)

	if !result.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("Expected shape [2 2], got %v", result.Shape())
	}
	expected := []float64{58, 64, 139, 154}
	if !float64SliceEqual(result.AsFloat64(), expected) {
		t.Errorf("MatMul: got %v, expected %v", result.AsFloat64(), expected)
	}
}

func TestCPUBackend_MatMulShapeMismatch(t *testing.T) {
	backend := New()
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for inner dimension mismatch")
		}
	}()
	backend.MatMul(rawF64(t, tensor.Shape{2, 3}, make([]float64, 6)...), rawF64(t, tensor.Shape{2, 2}, make([]float64, 4)...))
}

func TestCPUBackend_ReshapeTranspose(t *testing.T) {
	backend := New()
	x := rawF64(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	t.Run("Reshape", func(t *testing.T) {
		r := backend.Reshape(x, tensor.Shape{3, 2})
		if !r.Shape().Equal(tensor.Shape{3, 2}) {
			t.Errorf("Expected shape [3 2], got %v", r.Shape())
		}
		if !float64SliceEqual(r.AsFloat64(), x.AsFloat64()) {
			t.Error("Reshape changed element order")
		}
	})

	t.Run("ReshapeMismatch", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for element count mismatch")
			}
		}()
		backend.Reshape(x, tensor.Shape{4, 2})
	})

	t.Run("Transpose2D", func(t *testing.T) {
		r := backend.Transpose(x)
		expected := []float64{1, 4, 2, 5, 3, 6}
		if !r.Shape().Equal(tensor.Shape{3, 2}) {
			t.Errorf("Expected shape [3 2], got %v", r.Shape())
		}
		if !float64SliceEqual(r.AsFloat64(), expected) {
			t.Errorf("Transpose: got %v, expected %v", r.AsFloat64(), expected)
		}
	})

	t.Run("Transpose3D", func(t *testing.T) {
		y := rawF64(t, tensor.Shape{2, 2, 2}, 0, 1, 2, 3, 4, 5, 6, 7)
		r := backend.Transpose(y, 1, 0, 2)
		// out[i][j][k] = y[j][i][k]
		expected := []float64{0, 1, 4, 5, 2, 3, 6, 7}
		if !float64SliceEqual(r.AsFloat64(), expected) {
			t.Errorf("Transpose(1,0,2): got %v, expected %v", r.AsFloat64(), expected)
		}
	})
}

func TestCPUBackend_Cast(t *testing.T) {
	backend := New()
	x := rawF64(t, tensor.Shape{3}, 1.7, -2.2, 3)

	ints := backend.Cast(x, tensor.Int64)
	if ints.DType() != tensor.Int64 {
		t.Fatalf("Expected int64, got %s", ints.DType())
	}
	expected := []int64{1, -2, 3}
	for i, v := range ints.AsInt64() {
		if v != expected[i] {
			t.Errorf("cast[%d] = %d, expected %d", i, v, expected[i])
		}
	}

	f32 := backend.Cast(ints, tensor.Float32).AsFloat32()
	if f32[1] != -2 {
		t.Errorf("cast back to float32: got %v", f32)
	}
}
