package jobs

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TypeChangeDispatch = "CHANGE_DISPATCH"
)

const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusFailed  = "FAILED"
)

type Job struct {
	ID      uint64 `gorm:"primaryKey"`
	ActorID string `gorm:"size:64;index"`

	Type    string         `gorm:"type:text;not null"` // CHANGE_DISPATCH
	Payload datatypes.JSON `gorm:"not null"`

	RunAt  time.Time `gorm:"index;not null"`
	Status string    `gorm:"index;not null;default:'PENDING'"` // PENDING/RUNNING/DONE/FAILED

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:8"`

	LockedBy *string `gorm:"type:text"`
	LockedAt *time.Time

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type changePayload struct {
	ChangeID uint64 `json:"change_id"`
}
