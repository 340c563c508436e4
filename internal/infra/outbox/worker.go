package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// ClaimStore is a durable outbox that hands records to one worker at a time.
type ClaimStore interface {
	Claim(ctx context.Context, workerID string) (*Envelope, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

type Worker struct {
	Store       ClaimStore
	Producer    Producer
	Interval    time.Duration
	BatchSize   int
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Logger      *slog.Logger
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil && ctx.Err() == nil {
				w.logger().Error("outbox drain failed", "worker", w.ID, "error", err)
			}
		}
	}
}

// Drain delivers up to BatchSize records and reports how many were sent.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for i := 0; i < w.batchSize(); i++ {
		ok, err := w.processOnce(ctx)
		if err != nil {
			return sent, err
		}
		if !ok {
			break
		}
		sent++
	}
	return sent, nil
}

// processOnce reports false when nothing was claimed.
func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	env, err := w.Store.Claim(ctx, w.workerID())
	if err != nil || env == nil {
		return false, err
	}
	payload, headers, err := CloudEvent(env.EventRecord, w.Source)
	if err != nil {
		w.fail(ctx, env, err)
		return true, nil
	}
	topic := TopicFor(w.TopicPrefix, env.Name)
	if err := w.Producer.Publish(ctx, topic, env.Aggregate, payload, headers); err != nil {
		w.fail(ctx, env, err)
		return true, nil
	}
	if err := w.Store.MarkSent(ctx, env.ID); err != nil {
		return true, err
	}
	w.logger().Debug("outbox event published", "event_id", env.ID, "name", env.Name, "topic", topic)
	return true, nil
}

func (w *Worker) fail(ctx context.Context, env *Envelope, cause error) {
	w.logger().Warn("outbox publish failed", "event_id", env.ID, "name", env.Name, "attempts", env.Attempts+1, "error", cause)
	if err := w.Store.MarkFailed(ctx, env.ID, w.nextRetry(env.Attempts), cause.Error()); err != nil {
		w.logger().Error("outbox mark failed", "event_id", env.ID, "error", err)
	}
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return uuid.NewString()
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 50
	}
	return w.BatchSize
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
