package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pgillich/httpqueue/internal"
)

// newPollCmd represents the poll command
func newPollCmd() *cobra.Command {
	return newQueueCmd(&cobra.Command{
		Use:     "poll [path]",
		Aliases: []string{"get"},
		Short:   "Poll a message",
		Long:    `Poll one message from the queue by GET and print it as YAML`,
		Args:    cobra.MaximumNArgs(1),
	}, internal.NewPollService, nil)
}
