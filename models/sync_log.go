package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncLog records the outcome of one client sync batch.
type SyncLog struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	UserID            *string        `json:"userId" gorm:"type:uuid;index"`
	Status            string         `json:"status" gorm:"size:20;not null;index"`
	TotalProcessed    int            `json:"totalProcessed" gorm:"not null"`
	SuccessfulRecords int            `json:"successfulRecords" gorm:"not null"`
	RejectedCount     int            `json:"rejectedCount" gorm:"not null"`
	RejectedRecords   datatypes.JSON `json:"rejectedRecords"`
	CreatedAt         time.Time      `json:"createdAt" gorm:"autoCreateTime;index"`
}

func (SyncLog) TableName() string {
	return "sync_logs"
}
