package nn

import (
	"fmt"
	"math"

	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/internal/tensor"
)

// SinusoidalTimeEmbedding maps diffusion timesteps to fixed sinusoidal
// features.
//
// For half = dim/2 frequencies
//
//	freq(i) = exp(-log(10000) * i / max(half-1, 1))
//	emb(t)  = [cos(t*freq(0..half-1)), sin(t*freq(0..half-1))]
//
// An odd dim is padded with one zero column.
//
// Example:
//
//	emb := nn.NewSinusoidalTimeEmbedding[float64](32, backend)
//	features := emb.Forward(t) // t: [batch] int64 -> [batch, 32]
type SinusoidalTimeEmbedding[T diffusion.Float, B tensor.Backend] struct {
	Dim   int
	freqs *tensor.Tensor[T, B] // [1, half]
}

// NewSinusoidalTimeEmbedding pre-computes the frequencies for dim features.
func NewSinusoidalTimeEmbedding[T diffusion.Float, B tensor.Backend](dim int, backend B) *SinusoidalTimeEmbedding[T, B] {
	if dim < 2 {
		panic(fmt.Sprintf("SinusoidalTimeEmbedding: dim must be at least 2, got %d", dim))
	}
	half := dim / 2
	scale := -math.Log(10000.0) / float64(max(half-1, 1))

	freqs := tensor.Zeros[T](tensor.Shape{1, half}, backend)
	data := freqs.Data()
	for i := range data {
		data[i] = T(math.Exp(float64(i) * scale))
	}
	return &SinusoidalTimeEmbedding[T, B]{Dim: dim, freqs: freqs}
}

// Forward embeds timesteps [batch] into [batch, Dim].
func (s *SinusoidalTimeEmbedding[T, B]) Forward(t *tensor.Tensor[int64, B]) *tensor.Tensor[T, B] {
	if len(t.Shape()) != 1 {
		panic(fmt.Sprintf("SinusoidalTimeEmbedding: expected 1D timesteps, got shape %v", t.Shape()))
	}
	batch := t.Shape()[0]

	// [batch, 1] * [1, half] -> [batch, half]
	args := tensor.Cast[T](t).Reshape(batch, 1).Mul(s.freqs)
	parts := []*tensor.Tensor[T, B]{args.Cos(), args.Sin()}
	if s.Dim%2 == 1 {
		parts = append(parts, tensor.Zeros[T](tensor.Shape{batch, 1}, t.Backend()))
	}
	return tensor.Cat(parts, 1)
}
