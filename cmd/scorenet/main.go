// Command scorenet scores cloud balancing problems with the incremental
// constraint network.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scorenet/internal/cloudbalance"
	"scorenet/internal/config"
	"scorenet/internal/logging"
	"scorenet/internal/network"
)

// app carries the global flags and what PersistentPreRunE derives from them.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "scorenet",
		Short: "Incremental constraint scoring for cloud balancing problems",
		Long: `scorenet compiles the cloud balancing constraints into a shared node
network and scores problems stored as Mangle facts. Changing one process
assignment only recomputes the matches that depend on it.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging for every category")

	root.AddCommand(
		newRunCmd(a),
		newCheckCmd(a),
		newSampleCmd(a),
		newGenerateCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}
	if err := logging.Configure(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logging.Get(logging.CategoryCLI)
	return nil
}

// plan compiles the cloud balancing constraints with the configured weights.
func (a *app) plan() (*network.Plan, error) {
	weights, err := a.cfg.ConstraintWeights()
	if err != nil {
		return nil, err
	}
	return network.Build(cloudbalance.Constraints(), network.Options{Weights: weights})
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
