package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"questlog/internal/identity"
)

type User struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"size:16;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u User) Actor() identity.Actor {
	return identity.Actor{ID: u.ID, Role: identity.Role(u.Role)}
}
