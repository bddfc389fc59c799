package runware

import (
	"log/slog"
)

// dispatcher routes inbound frames to pending tasks. It holds a non-owning
// reference to the client's registry.
type dispatcher struct {
	registry  *taskRegistry
	logger    *slog.Logger
	onReceive func(*Frame)
}

// Dispatch classifies a frame and acts on it. It never blocks on a caller.
func (d *dispatcher) Dispatch(frame *Frame) {
	if d.onReceive != nil {
		d.onReceive(frame)
	}

	for _, err := range frame.Dropped {
		d.logger.Warn("dropping malformed entry", slog.Any("error", err))
	}

	switch {
	case len(frame.Errors) > 0:
		for _, desc := range frame.Errors {
			d.handleError(desc)
		}
	case len(frame.Data) > 0:
		for _, result := range frame.Data {
			d.handleResult(result)
		}
	default:
		d.logger.Debug("received frame without errors or data")
	}
}

func (d *dispatcher) handleError(desc ErrorDescriptor) {
	d.logger.Error("error received",
		slog.String("code", desc.Code),
		slog.String("message", desc.Message),
		slog.String("parameter", desc.Parameter),
		slog.String("task_type", desc.TaskType),
		slog.String("task_uuid", desc.TaskUUID),
	)

	// Errors without a task identifier are not attributed to any caller.
	if desc.TaskUUID == "" {
		return
	}
	if !d.registry.Fail(desc.TaskUUID, desc.RemoteError()) {
		d.logger.Debug("error for unknown task", slog.String("task_uuid", desc.TaskUUID))
	}
}

func (d *dispatcher) handleResult(result Result) {
	d.logger.Debug("received result",
		slog.String("task_type", result.TaskType),
		slog.String("task_uuid", result.TaskUUID),
	)

	if result.TaskUUID == "" {
		return
	}

	switch d.registry.Deliver(result.TaskUUID, result) {
	case DeliverUnknown:
		// Late or surplus results for a task that already resolved end up here.
		d.logger.Warn("result for unknown task",
			slog.String("task_type", result.TaskType),
			slog.String("task_uuid", result.TaskUUID),
		)
	case DeliverResolved:
		d.logger.Debug("task resolved", slog.String("task_uuid", result.TaskUUID))
	}
}
