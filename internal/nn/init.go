package nn

import (
	"math"
	"math/rand"

	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Values are drawn from U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
// using rng, so a seeded source gives reproducible layers.
func Xavier[T diffusion.Float, B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[T, B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t := tensor.Zeros[T](shape, backend)
	data := t.Data()
	for i := range data {
		//nolint:gosec // weight initialization is not security-critical
		data[i] = T((rng.Float64()*2.0 - 1.0) * bound)
	}
	return t
}
