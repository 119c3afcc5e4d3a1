package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Community is a named locality that basic information records may point at.
type Community struct {
	ID                  string    `json:"id" gorm:"size:64;primaryKey"`
	NameOfCommunity     string    `json:"nameOfCommunity" gorm:"size:255;not null"`
	State               string    `json:"state" gorm:"size:100;not null;index"`
	LocalGovernmentArea string    `json:"localGovernmentArea" gorm:"size:100;not null"`
	Zone                string    `json:"zone" gorm:"size:20;not null;index"`
	Latitude            *float64  `json:"latitude"`
	Longitude           *float64  `json:"longitude"`
	CreatedBy           *string   `json:"createdBy" gorm:"type:uuid"`
	CreatedAt           time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt           time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (Community) TableName() string {
	return "communities"
}

func (c *Community) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
