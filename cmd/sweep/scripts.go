package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/lorenzo-12/quantas-link-delay/pkg/scripts"
)

var scriptsCommand = &cli.Command{
	Action: writeScripts,
	Name:   "scripts",
	Usage:  "write cluster submission scripts, one per batch of jobs",
	Flags: []cli.Flag{
		algFlag,
		listFlag,
		&cli.StringFlag{
			Name:  "dir",
			Usage: "output directory (default SWEEP_ROOT)",
		},
		&cli.StringFlag{
			Name:  "binary",
			Value: "./sweep",
			Usage: "sweep binary as seen from the cluster node",
		},
		&cli.StringFlag{
			Name:  "template",
			Usage: "text/template file replacing the default OAR script",
		},
	},
}

func writeScripts(ctx *cli.Context) error {
	alg, err := singleAlgorithm(ctx)
	if err != nil {
		return err
	}
	jobs, err := jobsFor(ctx, alg)
	if err != nil {
		return err
	}

	var tmpl string
	if path := ctx.String("template"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tmpl = string(data)
	}
	dir := ctx.String("dir")
	if dir == "" {
		dir = settings.Root
	}

	w, err := scripts.NewWriter(dir, settings.MaxConcurrency, ctx.String("binary"), tmpl)
	if err != nil {
		return err
	}
	paths, err := w.Write(alg, jobs)
	if err != nil {
		return err
	}
	log.Printf("wrote %d scripts for %d %s jobs", len(paths), len(jobs), alg)
	return nil
}
