package nn

import (
	"github.com/pkg/errors"

	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/internal/tensor"
)

// Parameter is a named weight tensor of a layer.
type Parameter[T diffusion.Float, B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[T, B]
}

// NewParameter wraps an initialized tensor.
func NewParameter[T diffusion.Float, B tensor.Backend](name string, t *tensor.Tensor[T, B]) *Parameter[T, B] {
	return &Parameter[T, B]{name: name, tensor: t}
}

// Name returns the parameter name.
func (p *Parameter[T, B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[T, B]) Tensor() *tensor.Tensor[T, B] {
	return p.tensor
}

// load replaces the parameter values with raw after checking shape and dtype.
func (p *Parameter[T, B]) load(raw *tensor.RawTensor) error {
	if raw == nil {
		return errors.Wrapf(ErrStateDict, "missing %s", p.name)
	}
	if want := p.tensor.Shape(); !raw.Shape().Equal(want) {
		return errors.Wrapf(ErrStateDict, "%s shape mismatch: expected %v, got %v", p.name, want, raw.Shape())
	}
	if want := p.tensor.DType(); raw.DType() != want {
		return errors.Wrapf(ErrStateDict, "%s dtype mismatch: expected %v, got %v", p.name, want, raw.DType())
	}
	p.tensor = tensor.New[T, B](raw.Clone(), p.tensor.Backend())
	return nil
}
