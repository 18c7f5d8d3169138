package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-grader/internal/observability"
	"github.com/noah-isme/gema-grader/pkg/ai"
)

// ErrRetriesExhausted is matched by the error returned once every attempt failed transiently.
var ErrRetriesExhausted = errors.New("retries exhausted")

// ExhaustedError carries the last transient cause after the attempt budget ran out.
type ExhaustedError struct {
	Op       ai.Operation
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts: %v", e.Op, ErrRetriesExhausted, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Last}
}

// MaxAttempts returns the attempt budget for an operation. Structured
// extraction is the light call and gets one attempt fewer.
func MaxAttempts(op ai.Operation) int {
	if op == ai.OperationExtractStructured {
		return 4
	}
	return 5
}

// Backoff returns the minimum wait before the attempt following failed attempt n.
func Backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt)) * float64(time.Second))
}

// Invoker runs oracle operations with bounded, jittered exponential backoff.
type Invoker struct {
	logger zerolog.Logger
	tracer trace.Tracer
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// Option customises an Invoker.
type Option func(*Invoker)

// WithSleep replaces the wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(i *Invoker) {
		i.sleep = sleep
	}
}

// WithJitter replaces the uniform [0,1) jitter source.
func WithJitter(jitter func() float64) Option {
	return func(i *Invoker) {
		i.jitter = jitter
	}
}

// NewInvoker constructs an Invoker.
func NewInvoker(logger zerolog.Logger, opts ...Option) *Invoker {
	invoker := &Invoker{
		logger: logger.With().Str("component", "retrying_invoker").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/gema-grader/internal/retry"),
		sleep:  sleepContext,
		jitter: rand.Float64,
	}
	for _, opt := range opts {
		opt(invoker)
	}
	return invoker
}

// Do runs fn for op until it succeeds, fails with a non-transient error or the
// attempt budget is spent. Each attempt runs on its own goroutine.
func Do[T any](ctx context.Context, inv *Invoker, op ai.Operation, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	maxAttempts := MaxAttempts(op)

	ctx, span := inv.tracer.Start(ctx, "retry."+string(op), trace.WithAttributes(
		attribute.String("operation", string(op)),
		attribute.Int("max_attempts", maxAttempts),
	))
	defer span.End()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		observability.OracleAttempts().WithLabelValues(string(op)).Inc()

		result, err := runAttempt(ctx, fn)
		if err == nil {
			span.SetAttributes(attribute.Int("attempts", attempt+1))
			return result, nil
		}

		if !ai.IsTransient(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "non_transient")
			return zero, err
		}

		lastErr = err
		if attempt == maxAttempts-1 {
			break
		}

		wait := Backoff(attempt) + time.Duration(inv.jitter()*float64(time.Second))
		observability.OracleRetries().WithLabelValues(string(op)).Inc()
		inv.logger.Warn().
			Err(err).
			Str("operation", string(op)).
			Int("attempt", attempt+1).
			Int("max_attempts", maxAttempts).
			Dur("wait", wait).
			Msg("transient oracle failure, backing off")

		if err := inv.sleep(ctx, wait); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancelled")
			return zero, err
		}
	}

	observability.OracleExhausted().WithLabelValues(string(op)).Inc()
	exhausted := &ExhaustedError{Op: op, Attempts: maxAttempts, Last: lastErr}
	span.RecordError(exhausted)
	span.SetStatus(codes.Error, "retries_exhausted")
	inv.logger.Error().Err(lastErr).Str("operation", string(op)).Int("attempts", maxAttempts).Msg("oracle retries exhausted")
	return zero, exhausted
}

type attemptResult[T any] struct {
	value T
	err   error
}

func runAttempt[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	done := make(chan attemptResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- attemptResult[T]{value: zero, err: fmt.Errorf("oracle call panicked: %v", r)}
			}
		}()
		value, err := fn(ctx)
		done <- attemptResult[T]{value: value, err: err}
	}()

	result := <-done
	return result.value, result.err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
