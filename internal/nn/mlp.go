package nn

import (
	"fmt"
	"math/rand"

	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/internal/tensor"
)

// DefaultHidden are the hidden widths of the reference denoiser.
var DefaultHidden = []int{256, 256}

// MLPDenoiser is a small denoiser that treats every horizon step
// independently: each transition is concatenated with the timestep
// embedding and mapped back to a transition by a swish MLP.
//
//	x [B, H, D] ++ emb(t) [B, H, E] -> [B*H, D+E] -> MLP -> [B, H, D]
//
// The conditioning map is ignored; the diffusion process conditions the
// trajectory before and after every call.
type MLPDenoiser[T diffusion.Float, B tensor.Backend] struct {
	transitionDim int
	embedding     *SinusoidalTimeEmbedding[T, B]
	mlp           *Sequential[T, B]
}

// NewMLPDenoiser builds the denoiser for transitionDim features with a
// timeEmbedDim timestep embedding and the given hidden widths
// (DefaultHidden when empty). Weights are drawn from rng.
func NewMLPDenoiser[T diffusion.Float, B tensor.Backend](transitionDim, timeEmbedDim int, hidden []int, rng *rand.Rand, backend B) *MLPDenoiser[T, B] {
	if transitionDim <= 0 {
		panic(fmt.Sprintf("MLPDenoiser: transitionDim must be positive, got %d", transitionDim))
	}
	if len(hidden) == 0 {
		hidden = DefaultHidden
	}

	var modules []Module[T, B]
	in := transitionDim + timeEmbedDim
	for _, width := range hidden {
		modules = append(modules, NewLinear[T](in, width, rng, backend), NewSwish[T, B]())
		in = width
	}
	modules = append(modules, NewLinear[T](in, transitionDim, rng, backend))

	return &MLPDenoiser[T, B]{
		transitionDim: transitionDim,
		embedding:     NewSinusoidalTimeEmbedding[T](timeEmbedDim, backend),
		mlp:           NewSequential(modules...),
	}
}

// Forward predicts a [batch, horizon, transition] tensor from x at
// timesteps t. The training flag has no effect on this model.
func (m *MLPDenoiser[T, B]) Forward(x *tensor.Tensor[T, B], _ diffusion.Conditioning[T, B], t *tensor.Tensor[int64, B], _ bool) *tensor.Tensor[T, B] {
	s := x.Shape()
	if len(s) != 3 || s[2] != m.transitionDim {
		panic(fmt.Sprintf("MLPDenoiser.Forward: expected [batch, horizon, %d], got %v", m.transitionDim, s))
	}
	batch, horizon := s[0], s[1]
	embedDim := m.embedding.Dim

	emb := m.embedding.Forward(t).Reshape(batch, 1, embedDim)
	emb = tensor.Zeros[T](tensor.Shape{batch, horizon, embedDim}, x.Backend()).Add(emb)

	flat := tensor.Cat([]*tensor.Tensor[T, B]{x, emb}, 2).Reshape(batch*horizon, m.transitionDim+embedDim)
	return m.mlp.Forward(flat).Reshape(batch, horizon, m.transitionDim)
}

// Parameters returns all MLP parameters.
func (m *MLPDenoiser[T, B]) Parameters() []*Parameter[T, B] {
	return m.mlp.Parameters()
}

// StateDict returns the MLP parameters keyed "mlp.<index>.<name>".
func (m *MLPDenoiser[T, B]) StateDict() map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	for name, raw := range m.mlp.StateDict() {
		out["mlp."+name] = raw
	}
	return out
}

// LoadStateDict restores weights saved by StateDict.
func (m *MLPDenoiser[T, B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	sub := make(map[string]*tensor.RawTensor, len(stateDict))
	for name, raw := range stateDict {
		if len(name) > 4 && name[:4] == "mlp." {
			sub[name[4:]] = raw
		}
	}
	return m.mlp.LoadStateDict(sub)
}
