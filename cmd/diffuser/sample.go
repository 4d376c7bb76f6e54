package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/technodrome/diffuser/internal/backend/cpu"
	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/internal/nn"
	"github.com/technodrome/diffuser/internal/report"
	"github.com/technodrome/diffuser/internal/serialization"
	"github.com/technodrome/diffuser/internal/tensor"
)

type backend = *cpu.CPUBackend

type modelFlags struct {
	embed       *int
	hidden      *string
	weights     *string
	saveWeights *string
}

func registerModelFlags(fs *flag.FlagSet) modelFlags {
	return modelFlags{
		embed:       fs.Int("embed", 32, "timestep embedding size of the reference denoiser"),
		hidden:      fs.String("hidden", "256,256", "hidden layer widths of the reference denoiser"),
		weights:     fs.String("weights", "", "load denoiser weights from a safetensors file"),
		saveWeights: fs.String("save-weights", "", "write the denoiser weights to a safetensors file"),
	}
}

// buildModel creates the reference MLP denoiser, restoring or saving its
// weights as requested.
func buildModel(mf modelFlags, cfg diffusion.Config, rng *rand.Rand, runID uuid.UUID, logger logr.Logger) (*nn.MLPDenoiser[float64, backend], error) {
	hidden, err := parseInts(*mf.hidden)
	if err != nil {
		return nil, errors.Wrap(err, "-hidden")
	}
	model := nn.NewMLPDenoiser[float64](cfg.TransitionDim(), *mf.embed, hidden, rng, cpu.New())

	if *mf.weights != "" {
		state, _, err := serialization.ReadFile(*mf.weights)
		if err != nil {
			return nil, err
		}
		if err := model.LoadStateDict(state); err != nil {
			return nil, errors.Wrapf(err, "load %s", *mf.weights)
		}
		logger.V(1).Info("loaded denoiser weights", "path", *mf.weights, "tensors", len(state))
	}

	if *mf.saveWeights != "" {
		meta := map[string]string{serialization.MetadataRunID: runID.String()}
		if err := serialization.WriteFile(*mf.saveWeights, model.StateDict(), meta); err != nil {
			return nil, err
		}
		logger.Info("wrote denoiser weights", "path", *mf.saveWeights)
	}
	return model, nil
}

func runSample(args []string) error {
	fs, configPath := newFlagSet("sample")
	mf := registerModelFlags(fs)
	batch := fs.Int("batch", 4, "number of trajectories to sample")
	start := fs.String("start", "", "comma separated observation fixed at the first horizon step")
	goal := fs.String("goal", "", "comma separated observation fixed at the last horizon step")
	chain := fs.Bool("chain", false, "record the full denoising chain")
	verbose := fs.Bool("verbose", false, "log every reverse step (needs -v=2)")
	timeout := fs.Duration("timeout", 0, "abort sampling after this duration (0 disables)")
	out := fs.String("out", "", "write the sample to a safetensors file")
	plotPath := fs.String("plot", "", "write a trajectory plot to this file (.png, .svg, .pdf)")
	plotX := fs.Int("plot-x", -1, "transition dimension on the plot x axis (first observation when negative)")
	plotY := fs.Int("plot-y", -1, "transition dimension on the plot y axis (second observation when negative)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *batch < 1 {
		return errors.Errorf("-batch must be positive, got %d", *batch)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	runID, logger := newRun("sample")
	rng := newRand(cfg)

	model, err := buildModel(mf, cfg, rng, runID, logger)
	if err != nil {
		return err
	}
	p, err := diffusion.New[float64, backend](cfg, model, cpu.New(),
		diffusion.WithLogger(logger), diffusion.WithSource(rng))
	if err != nil {
		return err
	}

	cond := diffusion.Conditioning[float64, backend]{}
	for _, c := range []struct {
		flag, value string
		index       int
	}{{"-start", *start, 0}, {"-goal", *goal, cfg.Horizon - 1}} {
		values, err := parseFloats(c.value)
		if err != nil {
			return errors.Wrap(err, c.flag)
		}
		if values == nil {
			continue
		}
		obs, err := tensor.FromSlice(values, tensor.Shape{len(values)}, cpu.New())
		if err != nil {
			return errors.Wrap(err, c.flag)
		}
		cond[c.index] = obs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	sc := diffusion.DefaultSampleConfig[float64, backend]()
	sc.Verbose = *verbose
	sc.ReturnChain = *chain

	began := time.Now()
	sample, err := p.PSampleLoop(ctx, tensor.Shape{*batch, cfg.Horizon, cfg.TransitionDim()}, cond, sc)
	if err != nil {
		return err
	}
	logger.Info("sampled trajectories", "batch", *batch, "elapsed", time.Since(began).String())

	if err := printSample(sample, cfg.ActionDim); err != nil {
		return err
	}

	if *out != "" {
		meta, err := serialization.SampleMetadata(runID, cfg)
		if err != nil {
			return err
		}
		if err := serialization.WriteSample(*out, sample, meta); err != nil {
			return err
		}
		logger.Info("wrote sample", "path", *out)
	}

	if *plotPath != "" {
		x, y := *plotX, *plotY
		if x < 0 {
			x = cfg.ActionDim
		}
		if y < 0 {
			y = min(cfg.ActionDim+1, cfg.TransitionDim()-1)
		}
		if err := report.PlotTrajectories(sample, x, y, *plotPath); err != nil {
			return err
		}
		logger.Info("wrote trajectory plot", "path", *plotPath)
	}
	return nil
}

// printSample writes every trajectory, best value first, one horizon step
// per row with actions and observations separated by '|'.
func printSample(s *diffusion.Sample[float64, backend], actionDim int) error {
	shape := s.Trajectories.Shape()
	batch, horizon, dim := shape[0], shape[1], shape[2]
	data := s.Trajectories.Data()
	values := s.Values.Data()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', tabwriter.AlignRight)
	for b := 0; b < batch; b++ {
		fmt.Fprintf(w, "trajectory %d\tvalue %.4f\t\n", b, values[b])
		for h := 0; h < horizon; h++ {
			var row strings.Builder
			fmt.Fprintf(&row, "%d\t", h)
			for j := 0; j < dim; j++ {
				if j == actionDim && actionDim > 0 {
					row.WriteString("|\t")
				}
				fmt.Fprintf(&row, "%.4f\t", data[(b*horizon+h)*dim+j])
			}
			fmt.Fprintln(w, row.String())
		}
	}
	return w.Flush()
}
