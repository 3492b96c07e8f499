package models

import (
	"time"

	"gorm.io/gorm"
)

// Staff roles
const (
	RoleManager = "manager"
	RoleHost    = "host"
	RoleStaff   = "staff"
)

type User struct {
	ID        string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	FullName  string     `json:"fullName" gorm:"type:varchar(255);not null"`
	Email     string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password  string     `json:"-" gorm:"type:varchar(255);not null"`
	Role      string     `json:"role" gorm:"type:varchar(20);not null;default:'staff'"`
	IsActive  bool       `json:"isActive" gorm:"not null;default:true"`
	LastLogin *time.Time `json:"lastLogin"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	return nil
}
