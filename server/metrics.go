package server

import "time"

// MetricsCollector is an optional interface for collecting server metrics.
// Implementations can send metrics to monitoring systems like Prometheus,
// StatsD, DataDog, etc.
//
// Methods are called from session goroutines and should be non-blocking.
// If a method takes significant time, it should dispatch the work
// asynchronously.
//
// The server checks for a nil collector before calling methods,
// so implementations don't need to handle nil receivers.
type MetricsCollector interface {
	// RecordCommand records metrics for a command execution.
	// cmd is the command name ("PORT", "RETR", "QUIT").
	// success indicates whether the command completed successfully.
	// duration is how long the command took to execute.
	RecordCommand(cmd string, success bool, duration time.Duration)

	// RecordTransfer records metrics for a file transfer.
	// operation is always "RETR".
	// bytes is the number of bytes sent on the data connection.
	RecordTransfer(operation string, bytes int64, duration time.Duration)

	// RecordConnection records metrics for connection attempts.
	// reason is "accepted" or "global_limit_reached".
	RecordConnection(accepted bool, reason string)

	// RecordAuthentication records the outcome of a login handshake.
	RecordAuthentication(success bool, user string)
}
