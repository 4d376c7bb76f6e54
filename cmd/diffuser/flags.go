package main

import (
	"flag"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/technodrome/diffuser/internal/diffusion"
)

// newFlagSet returns a flag set with the klog flags and -config registered.
func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	klog.InitFlags(fs)
	configPath := fs.String("config", "", "YAML configuration file (built-in defaults when empty)")
	return fs, configPath
}

func loadConfig(path string) (diffusion.Config, error) {
	if path == "" {
		return diffusion.DefaultConfig(), nil
	}
	return diffusion.LoadConfig(path)
}

// newRun tags the klog logger with a fresh run id.
func newRun(command string) (uuid.UUID, logr.Logger) {
	runID := uuid.New()
	logger := klog.NewKlogr().WithName("diffuser").WithValues("command", command, "run", runID.String())
	return runID, logger
}

// newRand seeds from cfg.Seed, or from the clock when it is negative.
func newRand(cfg diffusion.Config) *rand.Rand {
	seed := cfg.Seed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible weights, not secrets
}

// parseFloats parses a comma separated list such as "0.5,-1,2".
func parseFloats(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d of %q", i, s)
		}
		out[i] = v
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	values, err := parseFloats(s)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(values))
	for i, v := range values {
		if v != float64(int(v)) || v <= 0 {
			return nil, errors.Errorf("%v is not a positive integer", v)
		}
		out[i] = int(v)
	}
	return out, nil
}
