package cpu

import (
	"github.com/technodrome/diffuser/internal/parallel"
	"github.com/technodrome/diffuser/internal/tensor"
)

type number interface {
	~float32 | ~float64 | ~int32 | ~int64
}

type binaryOp int

const (
	opAdd binaryOp = iota
	opSub
	opMul
	opDiv
)

func apply[E number](op binaryOp, x, y E) E {
	switch op {
	case opAdd:
		return x + y
	case opSub:
		return x - y
	case opMul:
		return x * y
	default:
		return x / y
	}
}

// binaryKernel computes dst = a (op) b. When no broadcasting is needed both
// operands are walked linearly; otherwise each output index is mapped back to
// its source offsets through broadcast strides.
func binaryKernel[E number](cfg parallel.Config, op binaryOp, dst, a, b []E,
	aShape, bShape, outShape tensor.Shape, needsBroadcast bool,
) {
	if !needsBroadcast {
		parallel.ForRange(len(dst), func(start, end int) {
			for i := start; i < end; i++ {
				dst[i] = apply(op, a[i], b[i])
			}
		}, cfg)
		return
	}

	outStrides := outShape.ComputeStrides()
	aStrides := computeBroadcastStridesForShape(aShape, outShape)
	bStrides := computeBroadcastStridesForShape(bShape, outShape)

	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			ai := computeFlatIndex(i, outStrides, aStrides)
			bi := computeFlatIndex(i, outStrides, bStrides)
			dst[i] = apply(op, a[ai], b[bi])
		}
	}, cfg)
}

// scalarKernel computes dst = src (op) s.
func scalarKernel[E number](cfg parallel.Config, op binaryOp, dst, src []E, s E) {
	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = apply(op, src[i], s)
		}
	}, cfg)
}
