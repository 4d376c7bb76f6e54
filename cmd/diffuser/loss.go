package main

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/technodrome/diffuser/internal/backend/cpu"
	"github.com/technodrome/diffuser/internal/diffusion"
	"github.com/technodrome/diffuser/internal/tensor"
)

func runLoss(args []string) error {
	fs, configPath := newFlagSet("loss")
	mf := registerModelFlags(fs)
	batch := fs.Int("batch", 8, "number of random trajectories")
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
	runID, logger := newRun("loss")
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

	x0 := tensor.Randn[float64](tensor.Shape{*batch, cfg.Horizon, cfg.TransitionDim()}, rng, cpu.New())
	loss, info, err := p.Loss(x0, nil)
	if err != nil {
		return err
	}

	fmt.Printf("loss (%s): %.6f\n", cfg.LossType, loss.Item())
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-10s %.6f\n", k, info[k])
	}
	return nil
}
