package cpu

import (
	"fmt"

	"github.com/technodrome/diffuser/internal/tensor"
)

// Sum reduces all elements to a scalar tensor (shape []).
// Float sums are accumulated in float64.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		var acc float64
		for _, v := range x.AsFloat32() {
			acc += float64(v)
		}
		result.AsFloat32()[0] = float32(acc)
	case tensor.Float64:
		var acc float64
		for _, v := range x.AsFloat64() {
			acc += v
		}
		result.AsFloat64()[0] = acc
	case tensor.Int32:
		var acc int32
		for _, v := range x.AsInt32() {
			acc += v
		}
		result.AsInt32()[0] = acc
	case tensor.Int64:
		var acc int64
		for _, v := range x.AsInt64() {
			acc += v
		}
		result.AsInt64()[0] = acc
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	return result
}

// MeanDim computes the mean of tensor elements along the specified dimension.
//
// Parameters:
//   - dim: dimension to reduce (supports negative indexing: -1 = last dim)
//   - keepDim: if true, keep the reduced dimension with size 1; if false, remove it
//
// Example:
//
//	y := backend.MeanDim(x, -1, true)   // [2, 3, 4] -> [2, 3, 1]
//	z := backend.MeanDim(x, -1, false)  // [2, 3, 4] -> [2, 3]
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	d := normalizeDim(dim, ndim)
	if d < 0 {
		panic(fmt.Sprintf("meandim: dimension %d out of range for %dD tensor", dim, ndim))
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[d] = 1
	} else {
		outShape = make(tensor.Shape, 0, ndim-1)
		for i := 0; i < ndim; i++ {
			if i != d {
				outShape = append(outShape, shape[i])
			}
		}
	}

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("meandim: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		meanDimKernel(x.AsFloat32(), result.AsFloat32(), shape, d)
	case tensor.Float64:
		meanDimKernel(x.AsFloat64(), result.AsFloat64(), shape, d)
	default:
		panic(fmt.Sprintf("meandim: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

// meanDimKernel views data as [outer, dimSize, inner] and averages the middle axis.
func meanDimKernel[E ~float32 | ~float64](data, result []E, shape tensor.Shape, dim int) {
	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	dimSize := shape[dim]

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			var acc float64
			base := o*dimSize*inner + in
			for d := 0; d < dimSize; d++ {
				acc += float64(data[base+d*inner])
			}
			result[o*inner+in] = E(acc / float64(dimSize))
		}
	}
}
