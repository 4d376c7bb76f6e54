package cpu

import (
	"fmt"

	"github.com/technodrome/diffuser/internal/tensor"
)

// IndexSelect selects slices of x along dim using a 1-D int32/int64 index,
// like torch.index_select.
//
// Example:
//
//	x:     [5, 3]
//	index: [2] = {4, 0}
//	dim:   0
//	out:   [2, 3] where out[i, :] = x[index[i], :]
func (cpu *CPUBackend) IndexSelect(x *tensor.RawTensor, dim int, index *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	d := normalizeDim(dim, ndim)
	if d < 0 {
		panic(fmt.Sprintf("indexselect: invalid dim %d for %dD tensor", dim, ndim))
	}
	if len(index.Shape()) != 1 {
		panic(fmt.Sprintf("indexselect: index must be 1-D, got shape %v", index.Shape()))
	}

	indices := indexValues(index)
	for i, idx := range indices {
		if idx < 0 || idx >= shape[d] {
			panic(fmt.Sprintf("indexselect: index %d at position %d out of range [0, %d)", idx, i, shape[d]))
		}
	}

	outShape := shape.Clone()
	outShape[d] = len(indices)

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("indexselect: failed to create result tensor: %v", err))
	}

	// Treat the tensor as [outer, shape[d], inner] blocks of raw bytes.
	elem := x.DType().Size()
	outer := 1
	for i := 0; i < d; i++ {
		outer *= shape[i]
	}
	inner := elem
	for i := d + 1; i < ndim; i++ {
		inner *= shape[i]
	}

	src := x.Data()
	dst := result.Data()
	for o := 0; o < outer; o++ {
		for j, idx := range indices {
			from := (o*shape[d] + idx) * inner
			to := (o*len(indices) + j) * inner
			copy(dst[to:to+inner], src[from:from+inner])
		}
	}

	return result
}

func indexValues(index *tensor.RawTensor) []int {
	out := make([]int, index.NumElements())
	switch index.DType() {
	case tensor.Int32:
		for i, v := range index.AsInt32() {
			out[i] = int(v)
		}
	case tensor.Int64:
		for i, v := range index.AsInt64() {
			out[i] = int(v)
		}
	default:
		panic(fmt.Sprintf("indexselect: index tensor must have dtype int32 or int64, got %s", index.DType()))
	}
	return out
}
