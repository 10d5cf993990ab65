package engine

import "context"

// Telemetry is notified after every command execution, successful or
// not. For successes the notification happens after the mutation and
// its outbox rows have committed. A telemetry error surfaces to the
// caller; the committed write is not rolled back.
type Telemetry interface {
	OnCommandExecuted(ctx context.Context, result *CommandResult) error
}

// TelemetryFunc adapts a function to the Telemetry interface.
type TelemetryFunc func(ctx context.Context, result *CommandResult) error

// OnCommandExecuted implements Telemetry.
func (f TelemetryFunc) OnCommandExecuted(ctx context.Context, result *CommandResult) error {
	return f(ctx, result)
}
