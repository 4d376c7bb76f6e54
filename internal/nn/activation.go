package nn

import (
	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/internal/tensor"
)

// Swish is the x * sigmoid(x) activation (also known as SiLU).
type Swish[T diffusion.Float, B tensor.Backend] struct{}

// NewSwish creates a new Swish activation module.
func NewSwish[T diffusion.Float, B tensor.Backend]() *Swish[T, B] {
	return &Swish[T, B]{}
}

// Forward applies x / (1 + exp(-x)).
func (s *Swish[T, B]) Forward(input *tensor.Tensor[T, B]) *tensor.Tensor[T, B] {
	return input.Div(input.MulScalar(-1).Exp().AddScalar(1))
}

// Parameters returns nil (Swish has no parameters).
func (s *Swish[T, B]) Parameters() []*Parameter[T, B] {
	return nil
}
