// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package diffusion provides a Gaussian denoising diffusion process over
// fixed-length trajectories of (action, observation) transitions, for
// diffusion-based planning.
//
// # Overview
//
// A trajectory tensor has shape (batch, horizon, transition) where every
// transition holds the action features first, then the observation. The
// package provides:
//   - Schedule: cosine noise schedule and its derived coefficients
//   - Process: forward noising, reverse posterior, sampling and training loss
//   - Conditioning: observations pinned at chosen horizon steps
//   - LossWeights: per-step discount and per-dimension weights
//   - ValueDiffusion: value function regression on noised trajectories
//
// # Basic Usage
//
//	import (
//	    "github.com/technodrome/diffuser/backend/cpu"
//	    "github.com/technodrome/diffuser/diffusion"
//	    "github.com/technodrome/diffuser/tensor"
//	)
//
//	func main() {
//	    cfg := diffusion.DefaultConfig()
//	    p, err := diffusion.New[float64, *cpu.Backend](cfg, model, cpu.New())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    start, _ := tensor.FromSlice(obs, tensor.Shape{cfg.ObservationDim}, p.Backend())
//	    cond := diffusion.Conditioning[float64, *cpu.Backend]{0: start}
//	    sample, err := p.ConditionalSample(ctx, cond, 0, diffusion.DefaultSampleConfig[float64, *cpu.Backend]())
//	}
//
// # Denoisers
//
// The denoiser network is supplied by the caller through the Denoiser
// interface; DenoiserFunc adapts a plain function. The nn package ships a
// small reference MLP.
//
// # Errors
//
// Operations return errors that match ErrShapeMismatch, ErrIndexOutOfRange
// or ErrInvalidConfiguration with errors.Is.
package diffusion
