package tensor

// MulScalar multiplies each element of the tensor by a scalar value.
//
// Example:
//
//	y := x.MulScalar(2.5)
func (t *Tensor[T, B]) MulScalar(scalar T) *Tensor[T, B] {
	return New[T, B](t.backend.MulScalar(t.raw, scalar), t.backend)
}

// AddScalar adds a scalar value to each element of the tensor.
func (t *Tensor[T, B]) AddScalar(scalar T) *Tensor[T, B] {
	return New[T, B](t.backend.AddScalar(t.raw, scalar), t.backend)
}

// SubScalar subtracts a scalar value from each element of the tensor.
func (t *Tensor[T, B]) SubScalar(scalar T) *Tensor[T, B] {
	return New[T, B](t.backend.SubScalar(t.raw, scalar), t.backend)
}

// DivScalar divides each element of the tensor by a scalar value.
func (t *Tensor[T, B]) DivScalar(scalar T) *Tensor[T, B] {
	return New[T, B](t.backend.DivScalar(t.raw, scalar), t.backend)
}

// Exp computes e^x for each element.
func (t *Tensor[T, B]) Exp() *Tensor[T, B] {
	return New[T, B](t.backend.Exp(t.raw), t.backend)
}

// Sin computes the sine of each element (input in radians).
func (t *Tensor[T, B]) Sin() *Tensor[T, B] {
	return New[T, B](t.backend.Sin(t.raw), t.backend)
}

// Cos computes the cosine of each element (input in radians).
func (t *Tensor[T, B]) Cos() *Tensor[T, B] {
	return New[T, B](t.backend.Cos(t.raw), t.backend)
}

// Abs computes |x| for each element.
func (t *Tensor[T, B]) Abs() *Tensor[T, B] {
	return New[T, B](t.backend.Abs(t.raw), t.backend)
}

// Clamp limits every element to [lo, hi].
//
// Example:
//
//	x0 := recon.Clamp(-1, 1)
func (t *Tensor[T, B]) Clamp(lo, hi float64) *Tensor[T, B] {
	return New[T, B](t.backend.Clamp(t.raw, lo, hi), t.backend)
}

// Sum reduces all elements to a scalar tensor (shape []).
func (t *Tensor[T, B]) Sum() *Tensor[T, B] {
	return New[T, B](t.backend.Sum(t.raw), t.backend)
}

// Mean returns the mean of all elements as a scalar tensor (shape []).
func (t *Tensor[T, B]) Mean() *Tensor[T, B] {
	return t.Sum().DivScalar(T(t.NumElements()))
}

// MeanDim computes the mean along dim. Supports negative indexing.
func (t *Tensor[T, B]) MeanDim(dim int, keepDim bool) *Tensor[T, B] {
	return New[T, B](t.backend.MeanDim(t.raw, dim, keepDim), t.backend)
}

// IndexSelect gathers slices along dim using an integer index vector,
// like torch.index_select. The output has index.NumElements() entries at dim.
//
// Example:
//
//	coeffs := tensor.FromSlice[float64]([]float64{0.1, 0.2, 0.3}, Shape{3}, backend)
//	t := tensor.FromSlice[int64]([]int64{2, 0}, Shape{2}, backend)
//	picked := tensor.IndexSelect(coeffs, 0, t) // [0.3, 0.1]
func IndexSelect[T DType, I DType, B Backend](t *Tensor[T, B], dim int, index *Tensor[I, B]) *Tensor[T, B] {
	return New[T, B](t.backend.IndexSelect(t.raw, dim, index.raw), t.backend)
}

// Cast converts the tensor to element type U.
//
// Example:
//
//	steps := tensor.Cast[float32](timesteps) // int64 -> float32
func Cast[U DType, T DType, B Backend](t *Tensor[T, B]) *Tensor[U, B] {
	return New[U, B](t.backend.Cast(t.raw, DataTypeOf[U]()), t.backend)
}
