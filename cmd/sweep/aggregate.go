package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/lorenzo-12/quantas-link-delay/pkg/aggregator"
	"github.com/lorenzo-12/quantas-link-delay/pkg/collector"
	"github.com/lorenzo-12/quantas-link-delay/pkg/generator"
	"github.com/lorenzo-12/quantas-link-delay/pkg/stats"
	"github.com/lorenzo-12/quantas-link-delay/pkg/storage"
	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

var aggregateCommand = &cli.Command{
	Action: aggregate,
	Name:   "aggregate",
	Usage:  "summarize result files into confidence intervals",
	Flags: []cli.Flag{
		algFlag,
		axesFlag,
		&cli.Float64Flag{
			Name:  "confidence",
			Value: stats.DefaultConfidence,
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "concurrent result decoders (default one per CPU)",
		},
		&cli.StringFlag{
			Name:  "out",
			Value: "summary_{alg}.json",
			Usage: "summary path; {alg} is replaced by the algorithm name",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "also archive summaries in this SQLite database",
		},
		&cli.StringFlag{
			Name:  "collector",
			Usage: "also POST summaries to this collector API (default COLLECTOR_URL)",
		},
		&cli.StringFlag{
			Name:  "compare",
			Usage: "metric to print for the --select combinations",
		},
		&cli.StringSliceFlag{
			Name:  "select",
			Usage: "alg:combination pair for --compare (repeatable)",
		},
	},
}

func aggregate(ctx *cli.Context) error {
	algs, err := algorithms(ctx)
	if err != nil {
		return err
	}

	var gen *generator.Generator
	if ctx.IsSet(axesFlag.Name) {
		axes, err := loadAxes(ctx)
		if err != nil {
			return err
		}
		if gen, err = generator.New(axes, settings.ConfigDir(), settings.ResultsDir); err != nil {
			return err
		}
	}

	var stores []storage.Store
	if path := ctx.String("db"); path != "" {
		db, err := storage.OpenSQLite(path)
		if err != nil {
			return err
		}
		defer db.Close()
		stores = append(stores, db)
	}
	collectorURL := ctx.String("collector")
	if collectorURL == "" {
		collectorURL = settings.CollectorURL
	}

	sigCtx, cancel := signalContext()
	defer cancel()

	summaries := make(map[sweeptypes.Algorithm]*sweeptypes.Summary)
	for _, alg := range algs {
		opts := aggregator.Options{
			Confidence: ctx.Float64("confidence"),
			Workers:    ctx.Int("workers"),
		}
		if gen != nil {
			opts.Expected = gen.Identities(alg)
		}

		summary, err := aggregator.Aggregate(sigCtx, settings.ResultsDir, alg, opts)
		if err != nil {
			return err
		}
		summaries[alg] = summary
		log.Printf("%s: %d combinations, %d gaps", alg, len(summary.Results), len(summary.Gaps))
		for _, g := range summary.Gaps {
			log.Printf("  gap %s %s: %s", g.Identity, g.Metric, g.Reason)
		}

		out := strings.ReplaceAll(ctx.String("out"), "{alg}", string(alg))
		if err := aggregator.WriteJSON(out, summary); err != nil {
			return err
		}
		for _, s := range stores {
			if err := s.AddSummary(summary); err != nil {
				return err
			}
		}
		if collectorURL != "" {
			if err := collector.NewClient(collectorURL).SubmitSummary(summary); err != nil {
				log.Printf("collector: %v", err)
			}
		}
	}

	if metric := ctx.String("compare"); metric != "" {
		sel, err := parseSelections(ctx.StringSlice("select"))
		if err != nil {
			return err
		}
		rows, err := aggregator.Compare(summaries, sel, metric)
		if err != nil {
			return err
		}
		printRows(rows)
	}
	return nil
}

// parseSelections reads alg:combination pairs.
func parseSelections(pairs []string) ([]aggregator.Selection, error) {
	sel := make([]aggregator.Selection, 0, len(pairs))
	for _, p := range pairs {
		name, comb, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("invalid selection %q, want alg:combination", p)
		}
		alg, err := sweeptypes.ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		c, err := sweeptypes.ParseCombination(comb)
		if err != nil {
			return nil, err
		}
		if err := c.Validate(alg); err != nil {
			return nil, err
		}
		sel = append(sel, aggregator.Selection{Algorithm: alg, Combination: c.String()})
	}
	return sel, nil
}

func printRows(rows []aggregator.Row) {
	fmt.Fprintf(os.Stdout, "%-12s %-28s %4s %4s %10s %10s %10s\n", "alg", "combination", "f", "p", "mean", "lower", "upper")
	for _, r := range rows {
		fmt.Fprintf(os.Stdout, "%-12s %-28s %4d %4d %10.3f %10.3f %10.3f\n",
			r.Algorithm, r.Combination, r.F, r.P, r.Mean, r.Lower, r.Upper)
	}
}
