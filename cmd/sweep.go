package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"heatsim/queue"
)

func newSweepCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Fail jobs left queued or running by a previous process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := queue.New(st, queue.DefaultConfig(), nil).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "failed %d orphaned job(s)\n", n)
			return nil
		},
	}
}
