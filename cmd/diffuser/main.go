// Package main provides the diffuser CLI: inspect noise schedules and loss
// weights, sample plans with the reference denoiser, and evaluate the
// training loss.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands = []command{
	{"version", "Show version", runVersion},
	{"schedule", "Print the cosine noise schedule", runSchedule},
	{"weights", "Print the training loss weights", runWeights},
	{"sample", "Sample trajectories with the reference MLP denoiser", runSample},
	{"loss", "Evaluate the training loss on random trajectories", runLoss},
}

func main() {
	defer klog.Flush()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	for _, c := range commands {
		if c.name != os.Args[1] {
			continue
		}
		err := c.run(os.Args[2:])
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if err != nil {
			klog.Flush()
			fmt.Fprintf(os.Stderr, "diffuser %s: %v\n", c.name, err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "diffuser: unknown command %q\n\n", os.Args[1])
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, "diffuser %s - Gaussian trajectory diffusion\n\n", version)
	fmt.Fprintln(os.Stderr, "Usage: diffuser <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Run 'diffuser <command> -h' for command flags.")
}

func runVersion([]string) error {
	fmt.Printf("diffuser %s\n", version)
	return nil
}
