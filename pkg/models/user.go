package models

import (
	"time"

	"gorm.io/gorm"
)

const RoleAdmin = "admin"

type User struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FirstName string         `gorm:"type:varchar(100)" json:"firstName"`
	LastName  string         `gorm:"type:varchar(100)" json:"lastName"`
	Email     string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"type:varchar(20);default:'user'" json:"role"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Identity is the authenticated caller of a single request.
type Identity struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
