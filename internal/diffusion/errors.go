package diffusion

import "github.com/pkg/errors"

// Error kinds returned by the diffusion core. Call sites wrap them with
// context, so match with errors.Is.
var (
	// ErrShapeMismatch reports inconsistent trajectory, conditioning or
	// timestep tensor ranks or sizes.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrIndexOutOfRange reports a timestep outside [0, timesteps) or a
	// conditioning horizon index outside [0, horizon).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidConfiguration reports configuration values the process cannot be built from.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
