// Package diffusion implements a Gaussian denoising diffusion process over
// fixed-length trajectories of (action, observation) transitions.
//
// A trajectory has shape (batch, horizon, actionDim+observationDim); the first
// actionDim entries of the last axis are actions, the rest observations.
//
// The package provides:
//   - the cosine noise schedule and its derived coefficients (Schedule)
//   - forward noising (QSample) and the reverse posterior (QPosterior, PMeanVariance)
//   - iterative reverse sampling with conditioning (PSampleLoop, ConditionalSample)
//   - weighted training losses (PLosses, Loss, LossWeights)
//
// The denoiser network is supplied by the caller through the Denoiser interface.
package diffusion
