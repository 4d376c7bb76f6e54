package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"gonum.org/v1/gonum/mat"

	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/internal/report"
)

func runSchedule(args []string) error {
	fs, configPath := newFlagSet("schedule")
	plotPath := fs.String("plot", "", "write a schedule plot to this file (.png, .svg, .pdf)")
	every := fs.Int("every", 1, "print every n-th timestep")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *every < 1 {
		*every = 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	_, logger := newRun("schedule")

	s, err := diffusion.NewCosineSchedule(cfg.Timesteps)
	if err != nil {
		return err
	}

	betas := s.Betas()
	alphasCumProd := s.AlphasCumProd()
	variance := s.PosteriorVariance()
	logVariance := s.PosteriorLogVarianceClipped()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "t\tbeta\talpha_cumprod\tposterior_variance\tposterior_log_variance\t")
	for t := 0; t < s.Timesteps(); t += *every {
		fmt.Fprintf(w, "%d\t%.6g\t%.6g\t%.6g\t%.6g\t\n", t, betas[t], alphasCumProd[t], variance[t], logVariance[t])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if *plotPath != "" {
		if err := report.PlotSchedule(s, *plotPath); err != nil {
			return err
		}
		logger.Info("wrote schedule plot", "path", *plotPath)
	}
	return nil
}

func runWeights(args []string) error {
	fs, configPath := newFlagSet("weights")
	plotPath := fs.String("plot", "", "write a loss weight plot to this file (.png, .svg, .pdf)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	_, logger := newRun("weights")

	weights, err := diffusion.LossWeights(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("loss weights (horizon %d x transition %d, %d actions first):\n", cfg.Horizon, cfg.TransitionDim(), cfg.ActionDim)
	fmt.Printf("%.4g\n", mat.Formatted(weights, mat.Squeeze()))

	if *plotPath != "" {
		if err := report.PlotLossWeights(weights, *plotPath); err != nil {
			return err
		}
		logger.Info("wrote loss weight plot", "path", *plotPath)
	}
	return nil
}
