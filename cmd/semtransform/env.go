package main

import (
	"os"
	"strconv"
	"time"

	"github.com/c360/semtransform/errors"
)

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// invalidUsage marks err as a user error so the process exits with
// ExitInvalid.
func invalidUsage(err error) error {
	return errors.WrapInvalid(err, "CLI", "Execute", "argument validation")
}

// exitCode maps an error returned by a subcommand to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.IsInvalid(err):
		return ExitInvalid
	default:
		return ExitRuntimeError
	}
}
