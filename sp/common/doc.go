// Package common provides the configuration, logging and metrics shared by
// all dPair packages.
//
// Key Components:
//
//   - SocketConfig: Parameters of a pair socket (timeouts, maximum message
//     size, socket buffers and TCP options). DefaultSocketConfig returns the
//     values used when nothing is configured.
//
//   - ResponderConfig / InitiatorConfig: Parameters of the two sides of a
//     request/reply exchange (address, payloads, expected lengths, number of
//     exchanges). BenchConfig configures an in-process benchmark run.
//
//   - Logger: Custom logging implementation plugged into Dragonboat's logger
//     package, so every package can obtain a named logger with
//     logger.GetLogger and share one output format.
//
//   - Metrics: Per-transport counters and exchange histograms in the
//     prometheus text format (VictoriaMetrics/metrics).
package common
