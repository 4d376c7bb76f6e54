package cpu

import (
	"fmt"

	"github.com/technodrome/diffuser/internal/tensor"
)

// Cat concatenates tensors along the specified dimension.
//
// All tensors must have the same shape except along the concatenation dimension.
// Supports negative dim indexing (-1 = last dimension).
//
// Example:
//
//	a: [2, 3], b: [2, 5]
//	c := backend.Cat([]*RawTensor{a, b}, 1) // Shape: [2, 8]
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	shape := tensors[0].Shape()
	ndim := len(shape)
	dtype := tensors[0].DType()

	d := normalizeDim(dim, ndim)
	if d < 0 {
		panic(fmt.Sprintf("cat: dimension %d out of range for %dD tensor", dim, ndim))
	}

	totalDim := 0
	for i, t := range tensors {
		tShape := t.Shape()
		if len(tShape) != ndim {
			panic(fmt.Sprintf("cat: tensor %d has %d dimensions, expected %d", i, len(tShape), ndim))
		}
		if t.DType() != dtype {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), dtype))
		}
		for k := 0; k < ndim; k++ {
			if k == d {
				totalDim += tShape[k]
			} else if tShape[k] != shape[k] {
				panic(fmt.Sprintf("cat: tensor %d dimension %d is %d, expected %d", i, k, tShape[k], shape[k]))
			}
		}
	}

	outShape := shape.Clone()
	outShape[d] = totalDim

	result, err := tensor.NewRaw(outShape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}

	// Each input contributes a contiguous block of shape[d]*inner bytes per outer index.
	outer := 1
	for i := 0; i < d; i++ {
		outer *= shape[i]
	}
	inner := dtype.Size()
	for i := d + 1; i < ndim; i++ {
		inner *= shape[i]
	}

	dst := result.Data()
	offset := 0
	for o := 0; o < outer; o++ {
		for _, t := range tensors {
			block := t.Shape()[d] * inner
			src := t.Data()[o*block : (o+1)*block]
			copy(dst[offset:offset+block], src)
			offset += block
		}
	}

	return result
}

// Unsqueeze adds a dimension of size 1 at the specified position.
// Supports negative dim indexing (-1 appends a trailing dimension).
func (cpu *CPUBackend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim += ndim + 1
	}
	if dim < 0 || dim > ndim {
		panic(fmt.Sprintf("unsqueeze: dimension %d out of range for %dD tensor", dim, ndim))
	}

	newShape := make(tensor.Shape, 0, ndim+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)

	return cpu.Reshape(x, newShape)
}
