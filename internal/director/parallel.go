package director

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"scorenet/internal/network"
	"scorenet/internal/score"
	"scorenet/internal/session"
)

// ScoreAll scores independent solutions concurrently, one session per
// solution, all instantiated from the same plan. At most limit sessions run
// at once; limit <= 0 means no limit. Scores are returned in input order.
func ScoreAll(ctx context.Context, plan *network.Plan, opts session.Options, solutions [][]any, limit int) ([]score.Score, error) {
	scores := make([]score.Score, len(solutions))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, facts := range solutions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := session.New(plan, opts)
			if err != nil {
				return err
			}
			for _, f := range facts {
				if err := s.Insert(f); err != nil {
					return fmt.Errorf("solution %d: %w", i, err)
				}
			}
			sc, err := s.CalculateScore()
			if err != nil {
				return fmt.Errorf("solution %d: %w", i, err)
			}
			scores[i] = sc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
