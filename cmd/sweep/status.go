package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/cli/v2"

	"github.com/lorenzo-12/quantas-link-delay/pkg/handler"
	"github.com/lorenzo-12/quantas-link-delay/pkg/progress"
	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

var statusCommand = &cli.Command{
	Action: status,
	Name:   "status",
	Usage:  "show per-job completion from the status logs",
	Flags: []cli.Flag{
		algFlag,
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "refresh period (default SWEEP_STATUS_INTERVAL)",
		},
		&cli.BoolFlag{
			Name:  "once",
			Usage: "print one snapshot and exit",
		},
		&cli.StringFlag{
			Name:  "serve",
			Usage: "also serve /progress and /progress/ws on this address",
		},
	},
}

func status(ctx *cli.Context) error {
	algs, err := algorithms(ctx)
	if err != nil {
		return err
	}
	tracker := progress.NewTracker()
	statusLog := func(alg sweeptypes.Algorithm) string { return settings.StatusFile(string(alg)) }
	if err := progress.TrackConfigs(tracker, settings.ConfigDir(), algs, statusLog); err != nil {
		return err
	}
	if tracker.Len() == 0 {
		log.Printf("no configuration files under %s", settings.ConfigDir())
	}

	interval := settings.StatusInterval
	if d := ctx.Duration("interval"); d > 0 {
		interval = d
	}
	monitor := progress.NewMonitor(tracker, interval, os.Stdout)

	if ctx.Bool("once") {
		_, err := monitor.Poll()
		return err
	}
	monitor.Clear = true

	sigCtx, cancel := signalContext()
	defer cancel()

	if addr := ctx.String("serve"); addr != "" {
		monitor.Clear = false
		defer serveProgress(sigCtx, addr, monitor)()
	}
	return monitor.Run(sigCtx)
}

// serveProgress starts the progress API and returns its shutdown func.
func serveProgress(ctx context.Context, addr string, m *progress.Monitor) func() {
	ph := handler.NewProgressHandler(m)
	go ph.Run(ctx)

	r := mux.NewRouter()
	ph.Register(r)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Printf("Progress API running on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("progress server: %v", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("progress server shutdown: %v", err)
		}
	}
}
