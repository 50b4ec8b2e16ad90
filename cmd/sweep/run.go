package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/lorenzo-12/quantas-link-delay/pkg/runner"
	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

var runCommand = &cli.Command{
	Action: run,
	Name:   "run",
	Usage:  "run a batch of simulator jobs with bounded concurrency",
	Flags: []cli.Flag{
		algFlag,
		listFlag,
		&cli.StringFlag{
			Name:  "selector",
			Value: "args",
			Usage: "how a job's input reaches make: args or file",
		},
		&cli.IntFlag{
			Name:  "max-concurrency",
			Usage: "overrides SWEEP_MAX_CONCURRENCY",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "write the batch report as JSON to this path",
		},
	},
}

// jobsFor returns the --list jobs, or every config file of alg.
func jobsFor(ctx *cli.Context, alg sweeptypes.Algorithm) ([]sweeptypes.Job, error) {
	if list := ctx.String(listFlag.Name); list != "" {
		return sweeptypes.ParseJobList(list)
	}
	return runner.Discover(settings.ConfigDir(), alg)
}

func newSelector(kind string) (runner.Selector, error) {
	target := runner.MakeTarget{
		Binary: settings.MakeBinary,
		Dir:    settings.Root,
		Makefile: func(alg sweeptypes.Algorithm) string {
			return settings.Makefile(string(alg))
		},
	}
	switch kind {
	case "args":
		return runner.ArgSelector{MakeTarget: target}, nil
	case "file":
		return &runner.FileSelector{MakeTarget: target, WorkDir: filepath.Join(settings.Root, ".sweep")}, nil
	default:
		return nil, fmt.Errorf("unknown selector %q", kind)
	}
}

func run(ctx *cli.Context) error {
	alg, err := singleAlgorithm(ctx)
	if err != nil {
		return err
	}
	jobs, err := jobsFor(ctx, alg)
	if err != nil {
		return err
	}
	sel, err := newSelector(ctx.String("selector"))
	if err != nil {
		return err
	}

	sched := runner.NewScheduler(sel, runner.ExecLauncher{})
	sched.MaxConcurrency = settings.MaxConcurrency
	if n := ctx.Int("max-concurrency"); n > 0 {
		sched.MaxConcurrency = n
	}
	sched.GracePeriod = settings.GracePeriod
	sched.StartStagger = settings.StartStagger

	log.Printf("running %d %s jobs, completions logged to %s", len(jobs), alg, settings.StatusFile(string(alg)))

	sigCtx, cancel := signalContext()
	defer cancel()
	report, runErr := sched.Run(sigCtx, jobs)

	log.Printf("batch %s: %d succeeded, %d failed, %d cancelled, %d not started",
		report.BatchID,
		report.Count(sweeptypes.Succeeded),
		report.Count(sweeptypes.Failed),
		report.Count(sweeptypes.Cancelled),
		len(report.NotStarted))

	if path := ctx.String("report"); path != "" {
		if err := writeReport(path, report); err != nil {
			return err
		}
	}
	if errors.Is(runErr, runner.ErrCancelled) {
		return cli.Exit(runErr.Error(), 1)
	}
	return runErr
}

func writeReport(path string, report runner.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
