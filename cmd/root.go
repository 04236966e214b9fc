package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"heatsim/config"
	"heatsim/store"
)

type options struct {
	configFile string
	dbPath     string
	cfg        *config.Config
}

// Execute runs the heatsim CLI and exits non-zero on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "heatsim",
		Short:        "Welding thermal simulation service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			if opts.dbPath != "" {
				cfg.DBPath = opts.dbPath
			}
			opts.cfg = cfg
			return cfg.SetupLogging()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "ini config file (default $HEATSIM_CONFIG or "+config.DefaultPath+")")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "sqlite database path, overrides [database] Path")

	root.AddCommand(newServeCmd(opts), newSolveCmd(opts), newSweepCmd(opts))
	return root
}

func (o *options) openStore() (*store.Store, error) {
	return store.Open(o.cfg.DBPath)
}
