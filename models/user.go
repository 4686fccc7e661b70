package models

import (
	"strings"
	"time"
)

type User struct {
	Email        string    `json:"email" gorm:"primaryKey;size:254"`
	FullName     string    `json:"fullname" gorm:"size:128"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizeEmail trims and lower-cases an email so it can be used as the
// user identifier.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
