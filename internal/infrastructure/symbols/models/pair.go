package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PairModel struct {
	UID       uuid.UUID      `gorm:"primaryKey;column:uid;type:uuid;not null"`
	Symbol    string         `gorm:"column:symbol;type:varchar(32);not null;uniqueIndex"`
	Base      string         `gorm:"column:base;type:varchar(16);not null"`
	Quote     string         `gorm:"column:quote;type:varchar(16);not null"`
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;type:timestamp;index"`
}

func (PairModel) TableName() string {
	return "pairs"
}
