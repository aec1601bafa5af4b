/*
Copyright © 2022 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"emperror.dev/errors"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pgillich/httpqueue/internal/logger"
	"github.com/pgillich/httpqueue/internal/model"
)

const (
	flagConfig   = "config"
	flagLogLevel = "logLevel"
	envPrefix    = "HTTPQUEUE"
)

// newRootCmd represents the base command when called without any subcommands
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "httpqueue",
		Short: "HTTP message queue client",
		Long: `Client of a message queue server, accessed over plain HTTP.
A message is polled by GET, submitted by POST and the queue statistics is read by HEAD.
Message options are carried in MESSAGE_<name> headers.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := cmd.Flags().GetString(flagLogLevel)
			if err != nil {
				return errors.WrapIf(err, "log level flag")
			}

			return logger.SetLevel(level)
		},
	}

	rootCmd.PersistentFlags().String(flagConfig, "", "config file (default is $HOME/.httpqueue.yaml)")
	rootCmd.PersistentFlags().String(flagLogLevel, "warning", "Log level (trace, debug, info, warning, error)")

	rootCmd.AddCommand(newPollCmd(), newPutCmd(), newStatsCmd(), newVersionCmd())

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute(ctx context.Context, args []string) {
	if err := ExecuteE(ctx, args, os.Stdin, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// ExecuteE runs the command line on a new command tree, reading in and writing out.
// Metrics (--metrics) are written to errOut.
func ExecuteE(ctx context.Context, args []string, in io.Reader, out io.Writer, errOut io.Writer) error {
	rootCmd := newRootCmd()
	ctx = context.WithValue(ctx, model.CtxKeyCmd, strings.Join(append([]string{rootCmd.Use}, args...), " "))
	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		logger.GetLogger(rootCmd.Use).Error(err, "Bad", "args", args)

		return err //nolint:wrapcheck // cobra
	}

	return nil
}

// readConfig reads in config file and ENV variables if set.
func readConfig(v *viper.Viper, cfgFile string, log logr.Logger) error {
	if cfgFile != "" {
		// Use config file from the flag.
		v.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.WrapIf(err, "home dir")
		}

		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".httpqueue")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := v.ReadInConfig(); err == nil {
		log.Info("Using config file", "path", v.ConfigFileUsed())
	} else if cfgFile != "" {
		return errors.WrapIfWithDetails(err, "unable to read config file", "path", cfgFile)
	}

	return nil
}

func RunService(cmd *cobra.Command, args []string, v *viper.Viper, config interface{}, newService model.NewService) error {
	commandLine := cmd.Context().Value(model.CtxKeyCmd)
	log := logger.GetLogger(cmd.Use).WithValues(logger.KeyCmd, commandLine)

	cfgFile, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return errors.WrapIf(err, "config flag")
	}
	if err := readConfig(v, cfgFile, log); err != nil {
		return err
	}
	if err := v.Unmarshal(config); err != nil {
		return errors.WrapIf(err, "unable to decode config")
	}

	return errors.Wrap(newService(cmd.Context(), config, log).Run(args), "service run")
}

func commandLine(cmd *cobra.Command) string {
	return fmt.Sprintf("%+v", cmd.Context().Value(model.CtxKeyCmd))
}
