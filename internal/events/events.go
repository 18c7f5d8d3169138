// Package events broadcasts grading outcomes to NATS and Redis subscribers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Outcome event types.
const (
	TypeGraded = "submission.graded"
	TypeFailed = "submission.failed"
)

// GradingEvent describes the terminal state reached by one submission.
type GradingEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	SubmissionID  uint      `json:"submission_id"`
	AssignmentID  uint      `json:"assignment_id"`
	StudentID     uint      `json:"student_id"`
	Grade         string    `json:"grade,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers grading events.
type Publisher interface {
	Publish(ctx context.Context, event GradingEvent) error
}

// BusConfig selects the transports an event is fanned out to. Nil transports are skipped.
type BusConfig struct {
	NATS         *nats.Conn
	NATSSubject  string
	Redis        *redis.Client
	RedisChannel string
}

type busPublisher struct {
	cfg    BusConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewBusPublisher constructs a publisher over the configured transports.
func NewBusPublisher(cfg BusConfig, logger zerolog.Logger) Publisher {
	return &busPublisher{
		cfg:    cfg,
		logger: logger.With().Str("component", "grading_events").Logger(),
		now:    time.Now,
	}
}

func (p *busPublisher) Publish(ctx context.Context, event GradingEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if p.cfg.NATS != nil && p.cfg.NATSSubject != "" {
		if err := p.cfg.NATS.Publish(p.cfg.NATSSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	if p.cfg.Redis != nil && p.cfg.RedisChannel != "" {
		if err := p.cfg.Redis.Publish(ctx, p.cfg.RedisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("type", event.Type).
		Uint("submission_id", event.SubmissionID).
		Msg("grading event published")
	return nil
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, GradingEvent) error { return nil }
