package domain

import "time"

type User struct {
	ID           uint       `gorm:"column:uid;primaryKey" json:"id"`
	Email        string     `gorm:"column:email;uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
	LastLogin    *time.Time `gorm:"column:last_login" json:"last_login,omitempty"`
	IsActive     bool       `gorm:"column:is_active;not null" json:"is_active"`
	Profile      *Profile   `gorm:"foreignKey:UserID;references:ID" json:"profile,omitempty"`
}

func (User) TableName() string { return "users" }
