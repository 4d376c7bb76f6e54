package serialization

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/internal/tensor"
)

// Tensor names and metadata keys of a sample file.
const (
	TensorTrajectories = "trajectories"
	TensorValues       = "values"
	TensorChain        = "chain"

	MetadataFormat    = "format"
	MetadataRunID     = "run_id"
	MetadataCreatedAt = "created_at"
	MetadataConfig    = "config"
	MetadataHorizon   = "horizon"
	MetadataActionDim = "action_dim"

	sampleFormat = "diffuser.sample/v1"
)

// SampleMetadata describes a sampling run: its id, time and YAML config.
func SampleMetadata(runID uuid.UUID, cfg diffusion.Config) (map[string]string, error) {
	config, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config")
	}
	return map[string]string{
		MetadataFormat:    sampleFormat,
		MetadataRunID:     runID.String(),
		MetadataCreatedAt: time.Now().UTC().Format(time.RFC3339),
		MetadataConfig:    string(config),
		MetadataHorizon:   strconv.Itoa(cfg.Horizon),
		MetadataActionDim: strconv.Itoa(cfg.ActionDim),
	}, nil
}

// SampleTensors returns the tensors of s keyed by their file names. The
// chain is included only when it was recorded.
func SampleTensors[T diffusion.Float, B tensor.Backend](s *diffusion.Sample[T, B]) map[string]*tensor.RawTensor {
	out := map[string]*tensor.RawTensor{
		TensorTrajectories: s.Trajectories.Raw(),
		TensorValues:       s.Values.Raw(),
	}
	if s.Chain != nil {
		out[TensorChain] = s.Chain.Raw()
	}
	return out
}

// WriteSample writes a sampling result to path.
func WriteSample[T diffusion.Float, B tensor.Backend](path string, s *diffusion.Sample[T, B], metadata map[string]string) error {
	if s == nil || s.Trajectories == nil || s.Values == nil {
		return errors.Wrap(ErrTensorNotFound, "sample without trajectories or values")
	}
	return WriteFile(path, SampleTensors(s), metadata)
}

// ReadSampleConfig recovers the configuration stored by SampleMetadata.
func ReadSampleConfig(metadata map[string]string) (diffusion.Config, error) {
	if metadata[MetadataFormat] != sampleFormat {
		return diffusion.Config{}, errors.Errorf("not a sample file: format %q", metadata[MetadataFormat])
	}
	return diffusion.ParseConfig([]byte(metadata[MetadataConfig]))
}
