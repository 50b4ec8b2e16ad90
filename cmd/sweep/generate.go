package main

import (
	"log"
	"math/rand"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/lorenzo-12/quantas-link-delay/pkg/generator"
	"github.com/lorenzo-12/quantas-link-delay/pkg/logging"
)

var generateCommand = &cli.Command{
	Action: generate,
	Name:   "generate",
	Usage:  "write configuration files and empty result slots",
	Flags: []cli.Flag{
		algFlag,
		axesFlag,
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "random seed for node selection (0 picks one from the clock)",
		},
		&cli.StringFlag{
			Name:  "log-root",
			Value: "results_all",
			Usage: "result tree as seen from the simulator's working directory",
		},
		&cli.BoolFlag{
			Name:  "reset-results",
			Usage: "overwrite result slots that already hold data",
		},
	},
}

func loadAxes(ctx *cli.Context) (generator.Axes, error) {
	if path := ctx.String(axesFlag.Name); path != "" {
		return generator.LoadAxes(path)
	}
	return generator.DefaultAxes(), nil
}

func generate(ctx *cli.Context) error {
	algs, err := algorithms(ctx)
	if err != nil {
		return err
	}
	axes, err := loadAxes(ctx)
	if err != nil {
		return err
	}

	seed := ctx.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen, err := generator.New(axes, settings.ConfigDir(), settings.ResultsDir,
		generator.WithRand(rand.New(rand.NewSource(seed))),
		generator.WithLogFileRoot(ctx.String("log-root")),
		generator.WithResetResults(ctx.Bool("reset-results")),
	)
	if err != nil {
		return err
	}

	for _, alg := range algs {
		report, err := gen.Write(alg)
		if err != nil {
			return err
		}
		log.Printf("%s: %d config files, %d records, %d result slots, %d errors",
			alg, len(report.ConfigFiles), report.Records, report.ResultSlots, len(report.Errors))
		logging.LogJSON(map[string]any{
			"event":        "configs_generated",
			"algorithm":    alg,
			"seed":         seed,
			"config_files": len(report.ConfigFiles),
			"records":      report.Records,
			"errors":       report.Errors,
		})
	}
	return nil
}
