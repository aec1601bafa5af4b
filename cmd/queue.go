package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pgillich/httpqueue/internal"
	"github.com/pgillich/httpqueue/internal/logger"
	"github.com/pgillich/httpqueue/internal/model"
	"github.com/pgillich/httpqueue/internal/transport"
)

// newQueueCmd creates a queue command with its own viper, so the flags of
// different commands are not mixed up.
func newQueueCmd(cmd *cobra.Command, newService model.NewService, addFlags func(*cobra.Command)) *cobra.Command {
	v := viper.New()
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cmd.SetContext(cmd.Parent().Context())

		return RunService(cmd, args, v, &internal.QueueConfig{
			Command: commandLine(cmd),
			In:      cmd.InOrStdin(),
			Out:     cmd.OutOrStdout(),
			ErrOut:  cmd.ErrOrStderr(),
		}, newService)
	}

	cmd.Flags().String("endpoint", "http://localhost:8080/queue", "Queue base URL")
	cmd.Flags().String("path", "", "Path, appended to the endpoint")
	cmd.Flags().String("transport", transport.KindHTTP, "Transport: http or nats")
	cmd.Flags().Duration("timeout", 30*time.Second, "Request timeout of the transport (0: no timeout)")
	cmd.Flags().String("natsURL", "nats://127.0.0.1:4222", "NATS server address (nats transport)")
	cmd.Flags().String("natsSubject", "httpqueue", "NATS subject of the HTTP bridge (nats transport)")
	cmd.Flags().String("instance", "#0", "Client instance")
	cmd.Flags().String("otlpURL", "", "OTLP HTTP trace collector URL, for example http://localhost:4318/v1/traces")
	cmd.Flags().Bool("metrics", false, "Dump the client metrics in Prometheus text format to stderr at exit")
	cmd.Flags().String("jaegerURL", "", "Jaeger collector address, for example http://localhost:14268/api/traces")
	if addFlags != nil {
		addFlags(cmd)
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		logger.GetLogger(cmd.Use).Error(err, "Unable to bind flags")
		panic(err)
	}

	return cmd
}
