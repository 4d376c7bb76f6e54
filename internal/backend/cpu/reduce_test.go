package cpu

import (
	"testing"

	"github.com/technodrome/diffuser/internal/tensor"
)

func TestCPUBackend_Sum(t *testing.T) {
	backend := New()
	x := rawF64(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	result := backend.Sum(x)

	if len(result.Shape()) != 0 {
		t.Errorf("Expected scalar shape, got %v", result.Shape())
	}
	if got := result.AsFloat64()[0]; got != 21 {
		t.Errorf("Sum = %v, expected 21", got)
	}
}

func TestCPUBackend_MeanDim(t *testing.T) {
	backend := New()
	// [[1, 2, 3],
	//  [4, 5, 6]]
	x := rawF64(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	t.Run("LastDimKeep", func(t *testing.T) {
		r := backend.MeanDim(x, -1, true)
		if !r.Shape().Equal(tensor.Shape{2, 1}) {
			t.Errorf("Expected shape [2 1], got %v", r.Shape())
		}
		if !float64SliceEqual(r.AsFloat64(), []float64{2, 5}) {
			t.Errorf("MeanDim(-1): got %v", r.AsFloat64())
		}
	})

	t.Run("FirstDimDrop", func(t *testing.T) {
		r := backend.MeanDim(x, 0, false)
		if !r.Shape().Equal(tensor.Shape{3}) {
			t.Errorf("Expected shape [3], got %v", r.Shape())
		}
		if !float64SliceEqual(r.AsFloat64(), []float64{2.5, 3.5, 4.5}) {
			t.Errorf("MeanDim(0): got %v", r.AsFloat64())
		}
	})

	t.Run("MiddleDim", func(t *testing.T) {
		y := rawF64(t, tensor.Shape{2, 2, 2}, 0, 1, 2, 3, 4, 5, 6, 7)
		r := backend.MeanDim(y, 1, false)
		expected := []float64{1, 2, 5, 6}
		if !float64SliceEqual(r.AsFloat64(), expected) {
			t.Errorf("MeanDim(1): got %v, expected %v", r.AsFloat64(), expected)
		}
	})

	t.Run("InvalidDim", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for out of range dim")
			}
		}()
		backend.MeanDim(x, 2, false)
	})
}
