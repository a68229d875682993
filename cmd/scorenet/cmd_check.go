package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scorenet/internal/cloudbalance"
	"scorenet/internal/config"
	"scorenet/internal/director"
	"scorenet/internal/network"
)

type checkOptions struct {
	moves    int
	seed     int64
	parallel int
}

func newCheckCmd(a *app) *cobra.Command {
	opts := checkOptions{}
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Cross-check incremental scores against full rescoring",
		Long: `Applies random process moves to every problem file and asserts, after
each move, that the incremental score equals the score of a session rebuilt
from scratch. Files are checked in parallel, one session per file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}
	cmd.Flags().IntVar(&opts.moves, "moves", 200, "random moves per file")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 4, "files checked at once")
	return cmd
}

func (a *app) check(ctx context.Context, out io.Writer, paths []string, opts checkOptions) error {
	plan, err := a.plan()
	if err != nil {
		return err
	}
	sessionCfg := a.cfg.Session
	sessionCfg.EnvironmentMode = config.ModeFullAssert

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.parallel, 1))
	for i, path := range paths {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(opts.seed + int64(i)))
			if err := a.checkFile(ctx, plan, sessionCfg, path, rng, opts.moves); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "%s %s\n", titleStyle.Render(path), goodStyle.Render("ok"))
			return nil
		})
	}
	return g.Wait()
}

func (a *app) checkFile(ctx context.Context, plan *network.Plan, cfg config.SessionConfig,
	path string, rng *rand.Rand, moves int) error {
	problem, err := cloudbalance.LoadFile(path)
	if err != nil {
		return err
	}
	d, err := director.New(plan, cfg, a.cfg.Metrics.Enabled)
	if err != nil {
		return err
	}
	for _, f := range problem.Facts() {
		if err := d.Insert(f); err != nil {
			return err
		}
	}
	if _, err := d.CalculateScore(); err != nil {
		return err
	}
	if len(problem.Processes) == 0 || len(problem.Computers) == 0 {
		return nil
	}
	for move := 0; move < moves; move++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := problem.Processes[rng.Intn(len(problem.Processes))]
		if rng.Intn(10) == 0 {
			p.Computer = nil
		} else {
			p.Computer = problem.Computers[rng.Intn(len(problem.Computers))]
		}
		if err := d.Update(p); err != nil {
			return err
		}
		if _, err := d.CalculateScore(); err != nil {
			return fmt.Errorf("move %d: %w", move, err)
		}
	}
	a.logger.Debug("checked problem", zap.String("file", path), zap.Int("moves", moves))
	return nil
}
