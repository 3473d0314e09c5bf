package models

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

// User represents a registered account. Users live in the relational database;
// pins and reviews carry only an identity snapshot of their author.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"unique;not null" json:"username"`
	Email       string         `gorm:"unique;not null" json:"email"`
	Password    string         `gorm:"not null" json:"-"`
	DisplayName string         `json:"display_name"`
	Avatar      string         `json:"avatar"`
	IsAdmin     bool           `gorm:"default:false" json:"is_admin"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// UID is the identity id used in realtime store records.
func (u *User) UID() string {
	return strconv.FormatUint(uint64(u.ID), 10)
}

// Snapshot copies the user's identity into the shape embedded in pins.
func (u *User) Snapshot() AuthorSnapshot {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	return AuthorSnapshot{
		UID:   u.UID(),
		Name:  name,
		Photo: u.Avatar,
	}
}
