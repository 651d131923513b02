package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/williamokano/deploy4dev/pkg/config"
	"github.com/williamokano/deploy4dev/pkg/deploy"
	"github.com/williamokano/deploy4dev/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string) int {
	var (
		deployFile string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:           "deploy4dev",
		Short:         "Deploy Helper Tool",
		Long:          "Runs local pre-actions, remote SSH actions and local post-actions described by a JSON deployment file.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Init(logLevel, logFormat)
			log := logger.Get()

			path := deployFile
			if path == "" {
				path = config.DefaultFile
			}
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}

			return deploy.New(*log).Run(cmd.Context(), path)
		},
	}

	cmd.Flags().StringVarP(&deployFile, "deploy", "d", config.DefaultFile, "Path to the deployment configuration file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&logFormat, "log-format", "console", "Log format: console, json")
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, config.ErrNotFound):
		return 0
	default:
		log := logger.Get()
		log.Error().Err(err).Msg("deployment failed")
		return 1
	}
}
