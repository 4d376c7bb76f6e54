package diffusion

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the construction parameters of a diffusion process.
type Config struct {
	// Horizon is the number of transitions in a trajectory.
	Horizon int `yaml:"horizon"`

	// ObservationDim and ActionDim split the last trajectory axis into
	// [actions | observations].
	ObservationDim int `yaml:"observation_dim"`
	ActionDim      int `yaml:"action_dim"`

	// Timesteps is the length of the noise schedule.
	Timesteps int `yaml:"n_timesteps"`

	LossType LossType `yaml:"loss_type"`

	// ClipDenoised clamps the reconstructed trajectory to [-1, 1].
	ClipDenoised bool `yaml:"clip_denoised"`

	// PredictEpsilon interprets the denoiser output as noise rather than as
	// the clean trajectory.
	PredictEpsilon bool `yaml:"predict_epsilon"`

	// ActionWeight is the loss weight of the first transition's actions.
	ActionWeight float64 `yaml:"action_weight"`

	// LossDiscount is the per-step discount of the loss weights, in (0, 1].
	LossDiscount float64 `yaml:"loss_discount"`

	// LossWeightsByDimension overrides the weight of observation dimension i.
	LossWeightsByDimension []float64 `yaml:"loss_weights_by_dimension,omitempty"`

	// Seed seeds the default random source. -1 seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns the reference configuration: a 1000 step cosine
// schedule with an epsilon-predicting denoiser and an undiscounted L1 loss.
func DefaultConfig() Config {
	return Config{
		Horizon:        32,
		ObservationDim: 4,
		ActionDim:      2,
		Timesteps:      1000,
		LossType:       LossL1,
		ClipDenoised:   false,
		PredictEpsilon: true,
		ActionWeight:   1.0,
		LossDiscount:   1.0,
		Seed:           -1,
	}
}

// TransitionDim returns ActionDim + ObservationDim.
func (c Config) TransitionDim() int {
	return c.ActionDim + c.ObservationDim
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Horizon <= 0:
		return errors.Wrapf(ErrInvalidConfiguration, "horizon must be positive, got %d", c.Horizon)
	case c.Timesteps <= 0:
		return errors.Wrapf(ErrInvalidConfiguration, "n_timesteps must be positive, got %d", c.Timesteps)
	case c.ObservationDim < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "observation_dim must not be negative, got %d", c.ObservationDim)
	case c.ActionDim < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "action_dim must not be negative, got %d", c.ActionDim)
	case c.TransitionDim() == 0:
		return errors.Wrap(ErrInvalidConfiguration, "transition dimension is zero")
	case !(c.LossDiscount > 0 && c.LossDiscount <= 1):
		return errors.Wrapf(ErrInvalidConfiguration, "loss_discount must be in (0, 1], got %v", c.LossDiscount)
	case !c.LossType.Valid():
		return errors.Wrapf(ErrInvalidConfiguration, "unknown loss_type %q", c.LossType)
	case len(c.LossWeightsByDimension) > c.ObservationDim:
		return errors.Wrapf(ErrInvalidConfiguration, "%d loss_weights_by_dimension for %d observation dimensions",
			len(c.LossWeightsByDimension), c.ObservationDim)
	}
	return nil
}

// LoadConfig reads a YAML file on top of DefaultConfig. Unknown keys are
// rejected and the result is validated.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decode config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
