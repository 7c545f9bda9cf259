// Package logging provides structured logging utilities for flux-kube.
//
// All diagnostic output goes through log/slog and is written to stderr, so
// that stdout carries nothing but command results and can be piped safely.
//
// # Usage Patterns
//
// Configure the process-wide logger once, from the root command:
//
//	logger, err := logging.Setup(os.Stderr, logging.FormatText, debug)
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "deployments.list")
//	logger.Info("listing deployments",
//	    logging.Namespace("default"),
//	    logging.ResourceType("deployments"))
//
// # Security Considerations
//
//   - API server URLs have IP addresses redacted to prevent topology leakage
//   - Bearer tokens are never logged directly, only their length
package logging
