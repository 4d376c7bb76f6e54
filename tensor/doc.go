// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the n-dimensional arrays used by
// the diffusion process.
//
// # Overview
//
// The package exposes:
//   - Tensor[T, B]: Generic typed tensor over a compute backend
//   - RawTensor: Row-major byte buffer with shape and dtype
//   - Backend: Interface for device-specific compute implementations
//   - Shape, DataType, Device: Core type definitions
//
// Operations follow NumPy broadcasting and always return new tensors.
//
// # Basic Usage
//
//	import (
//	    "github.com/technodrome/diffuser/backend/cpu"
//	    "github.com/technodrome/diffuser/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x := tensor.Zeros[float64](tensor.Shape{2, 3}, backend)
//	    y := tensor.Ones[float64](tensor.Shape{1, 3}, backend)
//	    z := x.Add(y) // broadcast to [2, 3]
//	}
//
// # Randomness
//
// Randn and RandInt draw from a Source, so a seeded *math/rand.Rand gives
// reproducible tensors.
package tensor
