package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scorenet/internal/cloudbalance"
	"scorenet/internal/director"
	"scorenet/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		debounce    time.Duration
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Rescore a problem file incrementally every time it changes",
		Long: `Scores a problem file, then watches it. On every save the file is
reloaded and only the computers and processes that changed are sent to the
session, so the new score costs as much as the edit, not the problem.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if metricsAddr != "" {
				a.cfg.Metrics.Addr = metricsAddr
			}
			if a.cfg.Metrics.Addr != "" {
				a.cfg.Metrics.Enabled = true
				m, err := a.serveMetrics(a.cfg.Metrics.Addr)
				if err != nil {
					return err
				}
				defer m.Close()
			}
			return a.watch(ctx, cmd.OutOrStdout(), args[0], debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before a change is rescored")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (host:port)")
	return cmd
}

func (a *app) watch(ctx context.Context, out io.Writer, path string, debounce time.Duration) error {
	problem, err := cloudbalance.LoadFile(path)
	if err != nil {
		return err
	}
	plan, err := a.plan()
	if err != nil {
		return err
	}
	d, err := director.New(plan, a.cfg.Session, a.cfg.Metrics.Enabled)
	if err != nil {
		return err
	}
	for _, f := range problem.Facts() {
		if err := d.Insert(f); err != nil {
			return err
		}
	}
	sc, err := d.CalculateScore()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", titleStyle.Render(path), renderScore(sc))

	w, err := watch.New(path, debounce)
	if err != nil {
		return err
	}
	return w.Run(ctx, func(context.Context) error {
		next, err := cloudbalance.LoadFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s %s\n", titleStyle.Render(path), badStyle.Render(err.Error()))
			return err
		}
		delta := problem.Merge(next)
		if delta.Empty() {
			return nil
		}
		if err := apply(d, delta); err != nil {
			return err
		}
		sc, err := d.CalculateScore()
		if err != nil {
			return err
		}
		a.logger.Debug("rescored",
			zap.Int("inserted", len(delta.Inserted)),
			zap.Int("updated", len(delta.Updated)),
			zap.Int("retracted", len(delta.Retracted)))
		fmt.Fprintf(out, "%s %s %s\n", titleStyle.Render(path), renderScore(sc),
			mutedStyle.Render(fmt.Sprintf("+%d ~%d -%d", len(delta.Inserted), len(delta.Updated), len(delta.Retracted))))
		return nil
	})
}

func apply(d *director.Director, delta cloudbalance.Delta) error {
	for _, f := range delta.Retracted {
		if err := d.Retract(f); err != nil {
			return err
		}
	}
	for _, f := range delta.Inserted {
		if err := d.Insert(f); err != nil {
			return err
		}
	}
	for _, f := range delta.Updated {
		if err := d.Update(f); err != nil {
			return err
		}
	}
	return nil
}
