package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

// RetryPolicy bounds queue retry behavior for msg.handle workers so a
// poisoned message cannot loop forever.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize clamps nack options for the given attempt count. An unset
// disposition defaults to retry so work is never silently dropped; past
// MaxAttempts a retry becomes a dead-letter or a permanent failure. An
// explicit dead-letter or failure from the handler is kept as-is.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	switch out.Disposition {
	case queue.NackDispositionRetry, queue.NackDispositionDeadLetter, queue.NackDispositionFailed:
	default:
		out.Disposition = queue.NackDispositionRetry
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts && out.Disposition == queue.NackDispositionRetry {
		if p.DeadLetterOnMax {
			out.Disposition = queue.NackDispositionDeadLetter
		} else {
			out.Disposition = queue.NackDispositionFailed
		}
	}
	return out
}

// BoundedDelivery wraps a queue delivery so every Nack passes through the
// retry policy.
type BoundedDelivery struct {
	delivery queue.Delivery
	policy   RetryPolicy
	attempt  int
}

func NewBoundedDelivery(delivery queue.Delivery, policy RetryPolicy, attempt int) *BoundedDelivery {
	return &BoundedDelivery{delivery: delivery, policy: policy, attempt: attempt}
}

func (d *BoundedDelivery) Message() *job.ExecutionMessage {
	if d == nil || d.delivery == nil {
		return nil
	}
	return d.delivery.Message()
}

func (d *BoundedDelivery) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Ack(ctx)
}

func (d *BoundedDelivery) Nack(ctx context.Context, opts queue.NackOptions) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Nack(ctx, d.policy.Normalize(opts, d.attempt))
}

// LoggingHook reports worker lifecycle events through the resolved glog
// logger so queue processing shows up next to dispatcher logs.
type LoggingHook struct {
	logger glog.Logger
}

func NewLoggingHook(name string, provider glog.LoggerProvider, logger glog.Logger) *LoggingHook {
	_, resolved := glog.Resolve(name, provider, logger)
	return &LoggingHook{logger: glog.Ensure(resolved)}
}

func (h *LoggingHook) OnStart(ctx context.Context, event worker.Event) {
	h.log(ctx, false, "job started", event)
}

func (h *LoggingHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.log(ctx, false, "job succeeded", event)
}

func (h *LoggingHook) OnFailure(ctx context.Context, event worker.Event) {
	h.log(ctx, true, "job failed", event)
}

func (h *LoggingHook) OnRetry(ctx context.Context, event worker.Event) {
	h.log(ctx, true, "job retrying", event)
}

func (h *LoggingHook) log(ctx context.Context, failure bool, message string, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	logger := h.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	args := []any{
		"job_id", eventJobID(event),
		"attempt", event.Attempt,
		"duration_ms", event.Duration.Milliseconds(),
	}
	if event.Delay > 0 {
		args = append(args, "delay_ms", event.Delay.Milliseconds())
	}
	if event.Err != nil {
		args = append(args, "error", event.Err.Error())
	}
	if failure {
		logger.Error(message, args...)
		return
	}
	logger.Info(message, args...)
}

func eventJobID(event worker.Event) string {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if message == nil {
		return ""
	}
	return strings.TrimSpace(message.JobID)
}

var (
	_ queue.Delivery = (*BoundedDelivery)(nil)
	_ worker.Hook    = (*LoggingHook)(nil)
)
