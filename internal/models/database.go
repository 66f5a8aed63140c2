package models

import (
	"time"
)

// BaseModel provides common fields for all database models. Rows are hard
// deleted; license deletion must actually remove activations through the
// foreign keys rather than leaving soft-deleted ghosts behind.
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
