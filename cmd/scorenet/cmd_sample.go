package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/spf13/cobra"

	"scorenet/internal/cloudbalance"
	"scorenet/internal/director"
	"scorenet/internal/session"
)

type sampleOptions struct {
	count    int
	seed     int64
	parallel int
	output   string
}

func newSampleCmd(a *app) *cobra.Command {
	opts := sampleOptions{}
	cmd := &cobra.Command{
		Use:   "sample FILE",
		Short: "Score random assignments of a problem and keep the best",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sample(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().IntVar(&opts.count, "count", 32, "number of random assignments")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 4, "assignments scored at once")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the best assignment to this file")
	return cmd
}

func (a *app) sample(ctx context.Context, out io.Writer, path string, opts sampleOptions) error {
	if opts.count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", opts.count)
	}
	problem, err := cloudbalance.LoadFile(path)
	if err != nil {
		return err
	}
	plan, err := a.plan()
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(opts.seed))
	candidates := make([]*cloudbalance.Solution, opts.count)
	facts := make([][]any, opts.count)
	for i := range candidates {
		c := problem.Clone()
		c.Shuffle(rng)
		candidates[i] = c
		facts[i] = c.Facts()
	}
	scores, err := director.ScoreAll(ctx, plan, session.Options{Metrics: a.cfg.Metrics.Enabled}, facts, opts.parallel)
	if err != nil {
		return err
	}

	best := 0
	for i, s := range scores {
		if s.Compare(scores[best]) > 0 {
			best = i
		}
	}
	fmt.Fprintf(out, "%s %d assignments, best #%d %s\n",
		titleStyle.Render(path), len(scores), best, renderScore(scores[best]))
	if opts.output == "" {
		return nil
	}
	return writeSolution(opts.output, candidates[best])
}
