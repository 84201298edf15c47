// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package events delivers operator notifications about operation outcomes.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/supermq/pkg/events"
)

const eventPrefix = "clm.operation."

var _ events.Event = (*operationEvent)(nil)

type operationEvent struct {
	clm.Event
}

func (oe operationEvent) Encode() (map[string]any, error) {
	val := map[string]any{
		"operation":    eventPrefix + string(oe.Kind),
		"operation_id": oe.OperationID,
		"message":      oe.Message,
		"occurred_at":  oe.OccurredAt.Format(time.RFC3339Nano),
	}
	if oe.TargetSerial != "" {
		val["target_serial"] = oe.TargetSerial
	}
	if oe.ResultSerial != "" {
		val["result_serial"] = oe.ResultSerial
	}
	if oe.ErrorKind != "" {
		val["error_kind"] = oe.ErrorKind
	}

	return val, nil
}

type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that writes events to the log. Partial
// failures are logged as errors since they leave work for an operator.
func NewLogNotifier(logger *slog.Logger) clm.Notifier {
	return &logNotifier{logger: logger}
}

func (ln *logNotifier) Notify(ctx context.Context, event clm.Event) error {
	msg, err := operationEvent{event}.Encode()
	if err != nil {
		return err
	}
	attrs := make([]any, 0, len(msg))
	for k, v := range msg {
		attrs = append(attrs, slog.Any(k, v))
	}

	level := slog.LevelWarn
	if event.Kind == clm.EventPartialFailure {
		level = slog.LevelError
	}
	ln.logger.Log(ctx, level, "operator notification", attrs...)

	return nil
}

type fanout []clm.Notifier

// Fanout returns a notifier delivering every event to all notifiers. It
// reports the first delivery error after trying all of them.
func Fanout(notifiers ...clm.Notifier) clm.Notifier {
	return fanout(notifiers)
}

func (f fanout) Notify(ctx context.Context, event clm.Event) error {
	var first error
	for _, n := range f {
		if err := n.Notify(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
