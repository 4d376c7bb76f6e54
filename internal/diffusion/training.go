package diffusion

import (
	"github.com/pkg/errors"

	"github.com/technodrome/diffuser/internal/tensor"
)

// PLosses computes the training loss at timesteps t: x0 is noised with
// fresh noise, both the noisy input and the denoiser reconstruction are
// conditioned, and the reconstruction is compared with the noise
// (PredictEpsilon) or with x0.
func (p *Process[T, B]) PLosses(x0 *tensor.Tensor[T, B], cond Conditioning[T, B], t *tensor.Tensor[int64, B]) (*tensor.Tensor[T, B], Info, error) {
	if err := p.checkTrajectory(x0); err != nil {
		return nil, nil, err
	}
	if h := x0.Shape()[1]; h != p.cfg.Horizon {
		return nil, nil, errors.Wrapf(ErrShapeMismatch, "training horizon %d, loss weights cover %d", h, p.cfg.Horizon)
	}

	noise := tensor.Randn[T](x0.Shape(), p.src, p.backend)
	xNoisy, err := p.QSample(x0, t, noise)
	if err != nil {
		return nil, nil, err
	}
	if xNoisy, err = ApplyConditioning(xNoisy, cond, p.cfg.ActionDim); err != nil {
		return nil, nil, err
	}

	recon := p.model.Forward(xNoisy, cond, t, true)
	if recon == nil || !recon.Shape().Equal(x0.Shape()) {
		return nil, nil, errors.Wrapf(ErrShapeMismatch, "denoiser output %v for input %v", shapeOf(recon), x0.Shape())
	}
	if recon, err = ApplyConditioning(recon, cond, p.cfg.ActionDim); err != nil {
		return nil, nil, err
	}

	target := x0
	if p.cfg.PredictEpsilon {
		target = noise
	}
	return p.loss.Compute(recon, target)
}

// Loss draws one timestep per batch element uniformly from [0, timesteps)
// and returns PLosses at those timesteps.
func (p *Process[T, B]) Loss(x0 *tensor.Tensor[T, B], cond Conditioning[T, B]) (*tensor.Tensor[T, B], Info, error) {
	if err := p.checkTrajectory(x0); err != nil {
		return nil, nil, err
	}
	t := tensor.RandInt[int64](tensor.Shape{x0.Shape()[0]}, p.cfg.Timesteps, p.src, p.backend)
	return p.PLosses(x0, cond, t)
}
