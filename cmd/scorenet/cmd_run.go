package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scorenet/internal/cloudbalance"
	"scorenet/internal/director"
	"scorenet/internal/score"
)

func newRunCmd(a *app) *cobra.Command {
	var explain bool
	var top int
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Score a problem file",
		Long: `Loads a problem from Mangle facts, scores it and prints the score of
every constraint. With --explain the matches of every constraint and the
most penalized computers are listed too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.OutOrStdout(), args[0], explain, top)
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "list matches and indictments")
	cmd.Flags().IntVar(&top, "top", 5, "number of indictments to list with --explain")
	return cmd
}

func (a *app) run(out io.Writer, path string, explain bool, top int) error {
	problem, err := cloudbalance.LoadFile(path)
	if err != nil {
		return err
	}
	plan, err := a.plan()
	if err != nil {
		return err
	}
	sessionCfg := a.cfg.Session
	if explain {
		sessionCfg.MatchTracking = true
	}
	d, err := director.New(plan, sessionCfg, a.cfg.Metrics.Enabled)
	if err != nil {
		return err
	}
	for _, f := range problem.Facts() {
		if err := d.Insert(f); err != nil {
			return err
		}
	}
	total, err := d.CalculateScore()
	if err != nil {
		return err
	}
	a.logger.Info("scored problem",
		zap.String("file", path),
		zap.Int("computers", len(problem.Computers)),
		zap.Int("processes", len(problem.Processes)),
		zap.Stringer("score", total))

	scores, err := d.Session().ConstraintScores()
	if err != nil {
		return err
	}
	writeScores(out, path, total, scores)
	if !explain {
		return nil
	}

	totals, err := d.Session().ConstraintMatchTotals()
	if err != nil {
		return err
	}
	writeMatches(out, totals)
	indictments, err := d.Session().Indictments()
	if err != nil {
		return err
	}
	writeIndictments(out, indictments, top)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeScores(out io.Writer, title string, total score.Score, scores map[string]score.Score) {
	fmt.Fprintf(out, "%s %s\n", titleStyle.Render(title), renderScore(total))
	for _, id := range sortedKeys(scores) {
		fmt.Fprintln(out, indentStyle.Render(nameStyle.Render(id)+scores[id].String()))
	}
}

func writeMatches(out io.Writer, totals map[string]*score.MatchTotal) {
	fmt.Fprintln(out, titleStyle.Render("matches"))
	for _, id := range sortedKeys(totals) {
		t := totals[id]
		fmt.Fprintln(out, indentStyle.Render(fmt.Sprintf("%s %d match(es), weight %s", id, t.Count(), t.Weight)))
		for _, m := range t.Matches {
			fmt.Fprintln(out, indentStyle.Render(indentStyle.Render(
				nameStyle.Render(fmt.Sprint(m.Justification))+mutedStyle.Render(m.Score.String()))))
		}
	}
}

func writeIndictments(out io.Writer, indictments map[any]*score.Indictment, top int) {
	list := make([]*score.Indictment, 0, len(indictments))
	for _, ind := range indictments {
		list = append(list, ind)
	}
	sort.Slice(list, func(i, j int) bool {
		if c := list[i].Score.Compare(list[j].Score); c != 0 {
			return c < 0
		}
		return fmt.Sprint(list[i].Object) < fmt.Sprint(list[j].Object)
	})
	if top >= 0 && len(list) > top {
		list = list[:top]
	}
	fmt.Fprintln(out, titleStyle.Render("indictments"))
	for _, ind := range list {
		fmt.Fprintln(out, indentStyle.Render(fmt.Sprintf("%s%s in %d match(es)",
			nameStyle.Render(fmt.Sprint(ind.Object)), ind.Score, len(ind.Matches))))
	}
}
