package jobs

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB
}

// EnqueueChange schedules dispatch of a committed change entry. It runs on the
// committing transaction, so the job exists if and only if the change does.
func (r *Repo) EnqueueChange(tx *gorm.DB, changeID uint64, actorID string) error {
	payload, err := json.Marshal(changePayload{ChangeID: changeID})
	if err != nil {
		return err
	}
	now := time.Now()
	j := Job{
		ActorID:     actorID,
		Type:        TypeChangeDispatch,
		Payload:     datatypes.JSON(payload),
		RunAt:       now,
		Status:      StatusPending,
		MaxAttempts: 8,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return tx.Create(&j).Error
}

// Claim one due job atomically using SKIP LOCKED.
// Works on Postgres.
func (r *Repo) Claim(workerID string) (*Job, error) {
	var job Job
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		// requeue stuck RUNNING jobs
		if err := tx.Exec(`
update jobs
set status='PENDING', locked_by=null, locked_at=null, updated_at=now()
where status='RUNNING' and locked_at is not null and locked_at < now() - interval '5 minutes'
`).Error; err != nil {
			return err
		}

		// FOR UPDATE SKIP LOCKED ensures no double-claim
		q := tx.Raw(`
with cte as (
  select id
  from jobs
  where status='PENDING' and run_at <= now()
  order by run_at asc, id asc
  for update skip locked
  limit 1
)
update jobs
set status='RUNNING', locked_by=?, locked_at=now(), updated_at=now()
where id in (select id from cte)
returning *;
`, workerID)

		return q.Scan(&job).Error
	})
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *Repo) MarkDone(id uint64) error {
	return r.DB.Model(&Job{}).Where("id = ?", id).Updates(map[string]any{
		"status":     StatusDone,
		"updated_at": time.Now(),
	}).Error
}

func (r *Repo) MarkFailed(id uint64, errMsg string) error {
	return r.DB.Model(&Job{}).Where("id = ?", id).Updates(map[string]any{
		"status":     StatusFailed,
		"last_error": errMsg,
		"updated_at": time.Now(),
	}).Error
}

func (r *Repo) RetryLater(id uint64, attempts int, runAt time.Time, errMsg string) error {
	return r.DB.Model(&Job{}).Where("id = ?", id).Updates(map[string]any{
		"status":     StatusPending,
		"attempts":   attempts,
		"run_at":     runAt,
		"locked_by":  nil,
		"locked_at":  nil,
		"last_error": errMsg,
		"updated_at": time.Now(),
	}).Error
}
