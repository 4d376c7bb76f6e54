// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Float32, Float64, Int32 and Int64 support
//   - NumPy-compatible broadcasting
//   - Element-wise and matmul kernels split across goroutines above a
//     minimum chunk size
//
// # Basic Usage
//
//	import (
//	    "github.com/technodrome/diffuser/backend/cpu"
//	    "github.com/technodrome/diffuser/diffusion"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    p, err := diffusion.New[float64, *cpu.Backend](cfg, model, backend)
//	}
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each tensor operation
// allocates its result and does not share mutable state.
package cpu
