package platform

import (
	"context"
	"time"
)

// Instruments bundles the ambient dependencies handed to each component.
type Instruments struct {
	Logger  Logger
	Metrics MetricsRecorder
	Tracer  Tracer
	Clock   Clock
}

// Option customises Instruments.
type Option func(*Instruments)

// WithLogger sets the structured logger.
func WithLogger(l Logger) Option {
	return func(in *Instruments) {
		if l != nil {
			in.Logger = l
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(in *Instruments) {
		if m != nil {
			in.Metrics = m
		}
	}
}

// WithTracer sets the span tracer.
func WithTracer(t Tracer) Option {
	return func(in *Instruments) {
		if t != nil {
			in.Tracer = t
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(in *Instruments) {
		if c != nil {
			in.Clock = c
		}
	}
}

// NewInstruments applies opts over no-op defaults and the system clock.
func NewInstruments(opts ...Option) Instruments {
	in := Instruments{
		Logger:  NoopLogger{},
		Metrics: noopMetrics{},
		Tracer:  noopTracer{},
		Clock:   SystemClock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&in)
		}
	}
	return in
}

// Run wraps fn in a span and records its duration and outcome.
func (in Instruments) Run(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := in.Tracer.Start(ctx, operation)
	started := time.Now()
	err := fn(ctx)
	in.Metrics.Observe(ctx, operation, err == nil, time.Since(started))
	span.End(err)
	if err != nil {
		in.Logger.Debug("operation failed", "operation", operation, "error", err)
	}
	return err
}
