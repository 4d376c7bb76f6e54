package tensor

import (
	"fmt"
)

// Source is the random source used by Randn and RandInt.
//
// *math/rand.Rand satisfies it, so tests can pass rand.New(rand.NewSource(seed))
// for reproducible draws.
type Source interface {
	NormFloat64() float64
	Intn(n int) int
}

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	raw, err := NewRaw(shape, DataTypeOf[T](), b.Device())
	if err != nil {
		panic(err) // Shape validation should prevent this
	}
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, 1, b)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full[float32](Shape{3, 3}, 3.14, backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Arange creates a 1-D tensor with values [start, start+1, ..., end-1].
func Arange[T DType, B Backend](start, end int, b B) *Tensor[T, B] {
	if end <= start {
		panic(fmt.Sprintf("arange: end (%d) must be greater than start (%d)", end, start))
	}
	t := Zeros[T, B](Shape{end - start}, b)
	data := t.Data()
	for i := range data {
		data[i] = T(start + i)
	}
	return t
}

// Randn creates a tensor with values drawn from the standard normal
// distribution N(0, 1) using src. Only float element types are supported.
//
// Example:
//
//	src := rand.New(rand.NewSource(42))
//	t := tensor.Randn[float32](Shape{100, 100}, src, backend)
func Randn[T DType, B Backend](shape Shape, src Source, b B) *Tensor[T, B] {
	if !DataTypeOf[T]().IsFloat() {
		panic("Randn only supports float32 and float64 types")
	}
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = T(src.NormFloat64())
	}
	return t
}

// RandInt creates a tensor with integers drawn uniformly from [0, n) using src.
func RandInt[T DType, B Backend](shape Shape, n int, src Source, b B) *Tensor[T, B] {
	if n <= 0 {
		panic(fmt.Sprintf("RandInt: n must be positive, got %d", n))
	}
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = T(src.Intn(n))
	}
	return t
}
