package jobs

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"questlog/internal/docstore"
)

// Publisher delivers committed changes to subscribers.
type Publisher interface {
	Publish(ctx context.Context, c docstore.Change) error
}

type Worker struct {
	ID        string
	Repo      *Repo
	DB        *gorm.DB
	Publisher Publisher
	Interval  time.Duration
	Log       zerolog.Logger
}

func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.Log.Info().Str("worker", w.ID).Dur("interval", interval).Msg("worker started")
	for {
		select {
		case <-ctx.Done():
			w.Log.Info().Str("worker", w.ID).Msg("worker stopped")
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				w.Log.Error().Err(err).Str("worker", w.ID).Msg("claim failed")
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	switch job.Type {
	case TypeChangeDispatch:
		w.handleChange(ctx, job)
	default:
		w.markFailed(job, "unknown job type")
	}
}

func (w *Worker) handleChange(ctx context.Context, job *Job) {
	var p changePayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		w.markFailed(job, "bad payload")
		return
	}

	c, err := docstore.LoadChange(w.DB.WithContext(ctx), p.ChangeID)
	if err != nil {
		w.retry(job, "db read error")
		return
	}
	if c == nil {
		w.markDone(job)
		return
	}

	if err := w.Publisher.Publish(ctx, *c); err != nil {
		w.Log.Warn().Err(err).Uint64("job", job.ID).Uint64("change", c.ID).Msg("publish failed")
		w.retry(job, "publish error")
		return
	}
	w.Log.Debug().Uint64("job", job.ID).Uint64("change", c.ID).Str("description", c.Description).Msg("change dispatched")
	w.markDone(job)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		w.markFailed(job, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	if err := w.Repo.RetryLater(job.ID, attempts, next, errMsg); err != nil {
		w.Log.Error().Err(err).Uint64("job", job.ID).Msg("reschedule failed")
	}
}

func (w *Worker) markDone(job *Job) {
	if err := w.Repo.MarkDone(job.ID); err != nil {
		w.Log.Error().Err(err).Uint64("job", job.ID).Msg("mark done failed")
	}
}

func (w *Worker) markFailed(job *Job, errMsg string) {
	w.Log.Warn().Uint64("job", job.ID).Str("reason", errMsg).Msg("job failed")
	if err := w.Repo.MarkFailed(job.ID, errMsg); err != nil {
		w.Log.Error().Err(err).Uint64("job", job.ID).Msg("mark failed failed")
	}
}
