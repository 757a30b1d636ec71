package domain

import "time"

// Profile holds the optional personal details shown on the dashboard.
// A user has at most one profile.
type Profile struct {
	ID        uint      `gorm:"column:puid;primaryKey" json:"id"`
	Name      string    `gorm:"column:navn;size:255;not null" json:"name"`
	Address   *string   `gorm:"column:adresse;size:500" json:"address,omitempty"`
	Mobile    *string   `gorm:"column:mobil_nr;size:20" json:"mobile,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
	UserID    uint      `gorm:"column:uid;uniqueIndex;not null" json:"user_id"`
}

func (Profile) TableName() string { return "profiles" }
