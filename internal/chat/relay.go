package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/crash-data-etl/internal/observability"
)

// ErrUnavailable is returned for any upstream failure: transport errors,
// non-success statuses, and malformed responses alike.
var ErrUnavailable = errors.New("AI service unavailable")

// Completer sends messages to a chat completion model.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Relay answers chat requests through a Completer.
type Relay struct {
	completer Completer
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewRelay creates a relay.
func NewRelay(completer Completer, logger *slog.Logger, metrics *observability.Metrics) *Relay {
	return &Relay{completer: completer, logger: logger, metrics: metrics}
}

// Answer builds the prompt messages for req and returns the model's reply.
// It makes exactly one upstream call and never retries.
func (r *Relay) Answer(ctx context.Context, req Request) (string, error) {
	messages := BuildMessages(req)
	r.logger.Info("calling completion API",
		"mode", req.Mode,
		"follow_up", req.IsFollowUp,
		"message_count", len(messages),
		"rows", len(req.Data),
	)

	start := time.Now()
	answer, err := r.completer.Complete(ctx, messages)
	r.metrics.ChatDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.ChatRequests.WithLabelValues(req.Mode, "error").Inc()
		r.logger.Error("completion failed", "mode", req.Mode, "error", err)
		return "", ErrUnavailable
	}

	r.metrics.ChatRequests.WithLabelValues(req.Mode, "success").Inc()
	return answer, nil
}
