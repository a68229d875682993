package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"scorenet/internal/cloudbalance"
)

func newGenerateCmd(a *app) *cobra.Command {
	var computers, processes int
	var seed int64
	var output string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random unassigned problem as Mangle facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if computers < 1 || processes < 0 {
				return fmt.Errorf("need at least one computer and no negative process count")
			}
			s := cloudbalance.Generate(rand.New(rand.NewSource(seed)), computers, processes)
			if output == "" {
				return cloudbalance.Write(cmd.OutOrStdout(), s)
			}
			return writeSolution(output, s)
		},
	}
	cmd.Flags().IntVar(&computers, "computers", 4, "number of computers")
	cmd.Flags().IntVar(&processes, "processes", 12, "number of processes")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, stdout when empty")
	return cmd
}

func writeSolution(path string, s *cloudbalance.Solution) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)
	if err := cloudbalance.Write(w, s); err != nil {
		return err
	}
	return w.Flush()
}
