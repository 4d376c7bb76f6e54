// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers of the reference trajectory denoiser.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, SinusoidalTimeEmbedding
//   - Activations: Swish
//   - Utilities: Sequential, Module interface, Parameter
//   - Initialization: Xavier
//   - Models: MLPDenoiser, a diffusion.Denoiser over flattened transitions
//
// # Basic Usage
//
//	import (
//	    "github.com/technodrome/diffuser/backend/cpu"
//	    "github.com/technodrome/diffuser/diffusion"
//	    "github.com/technodrome/diffuser/nn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    rng := rand.New(rand.NewSource(1))
//
//	    cfg := diffusion.DefaultConfig()
//	    model := nn.NewMLPDenoiser[float64](cfg.TransitionDim(), 32, nn.DefaultHidden, rng, backend)
//	    if _, err := nn.Load("denoiser.safetensors", model); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    p, err := diffusion.New[float64, *cpu.Backend](cfg, model, backend)
//	}
//
// Layers are inference only. Parameters are initialized from a seeded
// source or restored from a safetensors state dictionary.
package nn
