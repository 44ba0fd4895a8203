// Package main implements the semtransform command. semtransform hosts
// record transformations (header filters and field routers) on NATS and can
// apply them offline to newline-delimited JSON records.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information, overridden with -ldflags at release time.
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "semtransform"

// Exit codes
const (
	ExitSuccess      = 0
	ExitInvalid      = 1
	ExitRuntimeError = 2
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	logLevel  string
	logFormat string
	logSource bool
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(ExitRuntimeError)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   appName,
		Short: "Per-record header filters and field routers on NATS",
		Long: `semtransform applies per-record transformations to records flowing over NATS.

Two transformations are available:
  header_filter  drops records by the presence of a header
  field_router   moves a body field to a new field or a header

Examples:
  # Run the processors defined in a config file
  semtransform run --config semtransform.yaml

  # Check a config file without connecting to NATS
  semtransform validate --config semtransform.yaml

  # Route a field in a file of records
  semtransform apply --transform field_router --set sourceKey=user.id --set destKey=userId records.ndjson`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := setupLogger(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat, opts.logSource)
			if err != nil {
				return invalidUsage(err)
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", getEnv("SEMTRANSFORM_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: SEMTRANSFORM_LOG_LEVEL)")
	flags.StringVar(&opts.logFormat, "log-format", getEnv("SEMTRANSFORM_LOG_FORMAT", "json"),
		"Log format: json, text (env: SEMTRANSFORM_LOG_FORMAT)")
	flags.BoolVar(&opts.logSource, "log-source", getEnvBool("SEMTRANSFORM_LOG_SOURCE", false),
		"Include source locations in log entries (env: SEMTRANSFORM_LOG_SOURCE)")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return invalidUsage(err)
	})

	root.AddCommand(
		newRunCmd(),
		newApplyCmd(),
		newValidateCmd(),
		newSchemaCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build %s)\n", appName, Version, BuildTime)
		},
	}
}
