package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pgillich/httpqueue/internal"
	"github.com/pgillich/httpqueue/internal/queue"
)

// newPutCmd represents the put command
func newPutCmd() *cobra.Command {
	return newQueueCmd(&cobra.Command{
		Use:     "put [payload...]",
		Aliases: []string{"post"},
		Short:   "Put a message",
		Long: `Submit one message to the queue by POST.
The payload is the arguments joined by space, or the standard input if there are no arguments.`,
		Args: cobra.ArbitraryArgs,
	}, internal.NewPutService, func(cmd *cobra.Command) {
		cmd.Flags().String("contentType", queue.DefaultContentType, "Content type of the payload")
		cmd.Flags().StringArray("option", nil, "Message option as name=value, can be repeated")
		cmd.Flags().Bool("withID", false, "Add a generated "+queue.HeaderOptionPrefix+internal.OptionID+" option")
	})
}
