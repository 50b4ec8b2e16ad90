package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/lorenzo-12/quantas-link-delay/pkg/config"
	"github.com/lorenzo-12/quantas-link-delay/pkg/logging"
	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

var app = cli.NewApp()

var (
	settings config.Settings
	logFile  io.Closer
)

var (
	algFlag = &cli.StringSliceFlag{
		Name:  "alg",
		Usage: "algorithm to operate on (repeatable, default all)",
	}
	axesFlag = &cli.StringFlag{
		Name:  "axes",
		Usage: "YAML file overriding the default sweep axes",
	}
	listFlag = &cli.StringFlag{
		Name:  "list",
		Usage: `JSON job list, e.g. '[["Alg24Peer","alg24_same_same_same.json"]]'`,
	}
)

func init() {
	app.Name = "sweep"
	app.Usage = "generate, run, monitor and aggregate BRB parameter sweeps"
	app.Before = setup
	app.After = func(*cli.Context) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	}
	app.Commands = []*cli.Command{
		generateCommand,
		runCommand,
		statusCommand,
		aggregateCommand,
		scriptsCommand,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(*cli.Context) error {
	var err error
	if settings, err = config.Load(); err != nil {
		return err
	}
	if settings.LogFile != "" {
		if logFile, err = logging.TeeToFile(settings.LogFile, "sweep"); err != nil {
			return err
		}
	}
	return nil
}

// signalContext is cancelled on the first SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			log.Printf("received %v, stopping", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigs)
	}()
	return ctx, cancel
}

// algorithms resolves --alg, defaulting to every known variant.
func algorithms(ctx *cli.Context) ([]sweeptypes.Algorithm, error) {
	names := ctx.StringSlice(algFlag.Name)
	if len(names) == 0 {
		return sweeptypes.Algorithms(), nil
	}
	algs := make([]sweeptypes.Algorithm, 0, len(names))
	for _, name := range names {
		alg, err := sweeptypes.ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		algs = append(algs, alg)
	}
	return algs, nil
}

func singleAlgorithm(ctx *cli.Context) (sweeptypes.Algorithm, error) {
	algs := ctx.StringSlice(algFlag.Name)
	if len(algs) != 1 {
		return "", cli.Exit("exactly one --alg is required", 2)
	}
	return sweeptypes.ParseAlgorithm(algs[0])
}
