package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/record"
	"github.com/c360/semtransform/transform"
)

// maxRecordLine bounds a single NDJSON record.
const maxRecordLine = 10 * 1024 * 1024

type applyOptions struct {
	kinds       []string
	set         []string
	skipInvalid bool
}

type applyStats struct {
	read, written, dropped, skipped int
}

func newApplyCmd() *cobra.Command {
	opts := &applyOptions{}
	cmd := &cobra.Command{
		Use:   "apply [file]",
		Short: "Apply a transformation to newline-delimited JSON records",
		Long: `Read records (one JSON envelope per line) from a file or stdin, apply the
transformation and write surviving records to stdout. Dropped records are not
written.

Options are passed with --set using the same names as the processor
configuration. Repeat --transform to chain transformations; all of them are
built from the same options.

Examples:
  semtransform apply --transform header_filter --set headerKey=x-debug records.ndjson
  cat records.ndjson | semtransform apply --transform field_router \
      --set sourceKey=crn --set regexPattern='crn:v1:([a-z]+):.*' --set regexFormat='app_$1'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := buildTransformation(opts.kinds, opts.set)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return errors.WrapInvalid(err, "CLI", "apply", "open input")
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			stats, err := applyRecords(t, in, cmd.OutOrStdout(), opts.skipInvalid)
			slog.Info("Apply finished",
				"read", stats.read,
				"written", stats.written,
				"dropped", stats.dropped,
				"skipped", stats.skipped)
			return err
		},
	}

	cmd.Flags().StringArrayVarP(&opts.kinds, "transform", "t", nil,
		"Transformation kind: header_filter or field_router (repeatable)")
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "Transformation option as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.skipInvalid, "skip-invalid", false, "Log and skip lines that are not valid records")
	_ = cmd.MarkFlagRequired("transform")
	return cmd
}

// parseProperties turns key=value pairs into transformation options.
func parseProperties(pairs []string) (transform.Properties, error) {
	props := make(transform.Properties, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, invalidUsage(fmt.Errorf("option %q is not key=value", pair))
		}
		props[key] = value
	}
	return props, nil
}

func buildTransformation(kinds, pairs []string) (transform.Transformation, error) {
	props, err := parseProperties(pairs)
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", "apply")

	chain := make(transform.Chain, 0, len(kinds))
	for _, kind := range kinds {
		t, err := transform.New(kind, props, transform.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		chain = append(chain, t)
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

// applyRecords streams records from r through t to w. Records written
// before an error are flushed.
func applyRecords(t transform.Transformation, r io.Reader, w io.Writer, skipInvalid bool) (applyStats, error) {
	out := bufio.NewWriter(w)
	stats, err := applyLines(t, r, out, skipInvalid)
	if flushErr := out.Flush(); flushErr != nil && err == nil {
		err = errors.WrapFatal(flushErr, "CLI", "apply", "flush output")
	}
	return stats, err
}

func applyLines(t transform.Transformation, r io.Reader, out *bufio.Writer, skipInvalid bool) (applyStats, error) {
	var stats applyStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxRecordLine)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		stats.read++

		rec, err := record.Unmarshal(data)
		if err != nil {
			if skipInvalid {
				stats.skipped++
				slog.Warn("Skipping invalid record", "line", line, "error", err)
				continue
			}
			return stats, errors.WrapInvalid(fmt.Errorf("line %d: %w", line, err), "CLI", "apply", "decode record")
		}

		result, outcome := transform.Run(t, rec)
		if result == nil {
			stats.dropped++
			continue
		}
		slog.Debug("Record transformed", "line", line, "record_id", rec.ID, "outcome", outcome)

		encoded, err := record.Marshal(result)
		if err != nil {
			return stats, err
		}
		if _, err := out.Write(append(encoded, '\n')); err != nil {
			return stats, errors.WrapFatal(err, "CLI", "apply", "write record")
		}
		stats.written++
	}
	if err := scanner.Err(); err != nil {
		return stats, errors.WrapInvalid(err, "CLI", "apply", "read input")
	}
	return stats, nil
}
