package coordinator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/petasbytes/go-director/internal/provider"
	"github.com/petasbytes/go-director/internal/telemetry"
	"github.com/petasbytes/go-director/memory"
	"github.com/petasbytes/go-director/tools"
)

// dispatch runs every call and returns one tool message per call, in call
// order regardless of completion order. It fails only when ctx ends.
func (c *Coordinator) dispatch(ctx context.Context, log *zap.Logger, calls []memory.ToolCall) ([]memory.Message, error) {
	results := make([]memory.Message, len(calls))

	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, call := range calls {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = c.invoke(ctx, log, call)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// invoke runs one call. Failures become error tool messages carrying the
// failure description.
func (c *Coordinator) invoke(ctx context.Context, log *zap.Logger, call memory.ToolCall) memory.Message {
	if c.debug {
		log.Debug("dispatch", zap.String("tool", call.Name), zap.String("call_id", call.ID), zap.Int("input_size", len(call.Arguments)))
	}

	start := time.Now()
	out, err := c.tools.Invoke(ctx, call.Name, call.Arguments)
	durationMs := time.Since(start).Milliseconds()

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	fields := map[string]any{
		"tool_name":   call.Name,
		"duration_ms": durationMs,
		"input_size":  len(call.Arguments),
		"output_size": len(out),
		"turn_id":     turnID,
		"error":       nil,
	}

	if err != nil {
		// Only the error code is recorded; the description may echo the payload.
		fields["error"] = errorKind(err)
		telemetry.Emit("tool_exec", fields)
		if c.debug {
			log.Debug("tool failed", zap.String("tool", call.Name), zap.String("call_id", call.ID), zap.Error(err))
		}
		return memory.NewToolErrorMessage(call, err.Error())
	}

	telemetry.Emit("tool_exec", fields)
	if c.debug {
		log.Debug("tool result", zap.String("tool", call.Name), zap.String("call_id", call.ID), zap.Int("output_size", len(out)))
	}
	return memory.NewToolResultMessage(call, out)
}

// errorKind is a payload-free label for telemetry.
func errorKind(err error) string {
	var te *tools.ToolError
	if errors.As(err, &te) {
		return string(te.Code)
	}
	var me *provider.ModelError
	if errors.As(err, &me) {
		return string(me.Kind)
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	}
	return "error"
}
