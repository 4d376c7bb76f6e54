// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/technodrome/diffuser/internal/nn"
	"github.com/technodrome/diffuser/internal/serialization"
	"github.com/technodrome/diffuser/tensor"
)

// Module is the base interface for all layers.
//
// Every layer implements:
//   - Forward: Compute output from input
//   - Parameters: Return all parameters
//
// Modules can be composed to build larger blocks:
//
//	mlp := nn.NewSequential[float64, Backend](
//	    nn.NewLinear[float64](in, 256, rng, backend),
//	    nn.NewSwish[float64, Backend](),
//	    nn.NewLinear[float64](256, out, rng, backend),
//	)
type Module[T Float, B tensor.Backend] = nn.Module[T, B]

// Stateful is implemented by modules whose parameters can be exported and
// restored by name: Linear, Sequential and MLPDenoiser.
type Stateful interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// Save writes the state dictionary of module to a safetensors file.
//
// Example:
//
//	model := nn.NewMLPDenoiser[float64](14, 32, nn.DefaultHidden, rng, backend)
//	err := nn.Save(model, "denoiser.safetensors", map[string]string{"run_id": id})
func Save(module Stateful, path string, metadata map[string]string) error {
	return serialization.WriteFile(path, module.StateDict(), metadata)
}

// Load restores module from a safetensors file written by Save and returns
// the file metadata.
func Load(path string, module Stateful) (map[string]string, error) {
	state, metadata, err := serialization.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := module.LoadStateDict(state); err != nil {
		return nil, err
	}
	return metadata, nil
}
