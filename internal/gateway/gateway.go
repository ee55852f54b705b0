// Package gateway defines the payment gateway capability consumed by the
// outbox dispatcher, plus a latency and failure simulator used when no real
// gateway is configured.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	outboxDomain "github.com/allisson/payments/internal/outbox/domain"
)

// ErrGatewayDeclined indicates the gateway reported a non-success outcome.
// The dispatcher treats every failure uniformly regardless of cause.
var ErrGatewayDeclined = errors.New("payment gateway declined the request")

// Gateway executes a payment attempt for an outbox event. A nil return means
// the payment was accepted downstream; any error counts as a failed attempt.
// Implementations are not assumed to be idempotent on the far side.
type Gateway interface {
	Process(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// SimulatorConfig holds the tunables of the simulated gateway.
type SimulatorConfig struct {
	// SuccessRate is the probability of a successful attempt (0.0 to 1.0).
	SuccessRate float64
	// MinLatency and MaxLatency bound the simulated call duration.
	MinLatency time.Duration
	MaxLatency time.Duration
}

// Simulator is a Gateway implementation with configurable latency and
// failure rate, standing in for a real payment provider.
type Simulator struct {
	config SimulatorConfig
	logger *slog.Logger
}

// NewSimulator creates a new gateway Simulator.
func NewSimulator(config SimulatorConfig, logger *slog.Logger) *Simulator {
	return &Simulator{
		config: config,
		logger: logger,
	}
}

// Process simulates a gateway call: sleeps for a random duration inside the
// configured latency window, then succeeds or fails according to SuccessRate.
// Context cancellation aborts the call and counts as a failed attempt.
func (s *Simulator) Process(ctx context.Context, event *outboxDomain.OutboxEvent) error {
	delay := s.config.MinLatency
	if spread := s.config.MaxLatency - s.config.MinLatency; spread > 0 {
		delay += time.Duration(rand.Int64N(int64(spread)))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	success := rand.Float64() < s.config.SuccessRate

	if s.logger != nil {
		s.logger.Info("gateway simulation",
			slog.String("aggregate_id", event.AggregateID.String()),
			slog.Duration("delay", delay),
			slog.Bool("success", success),
		)
	}

	if !success {
		return ErrGatewayDeclined
	}

	return nil
}
