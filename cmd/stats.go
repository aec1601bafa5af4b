package cmd

import (
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/pgillich/httpqueue/internal"
)

// newStatsCmd represents the stats command
func newStatsCmd() *cobra.Command {
	return newQueueCmd(&cobra.Command{
		Use:   "stats",
		Short: "Queue statistics",
		Long:  `Read the queue size and bytes by HEAD`,
		Args:  cobra.NoArgs,
	}, internal.NewStatsService, nil)
}

// newVersionCmd represents the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return internal.NewVersionService(cmd.Context(), &internal.QueueConfig{Out: cmd.OutOrStdout()}, logr.Discard()).Run(args)
		},
	}
}
