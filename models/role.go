package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoleType string

const (
	RoleTypeCollector RoleType = "collector"
	RoleTypeAdmin     RoleType = "admin"
)

// Role groups a permission set under a role type. Guards check either the
// type (collector/admin) or individual permissions.
type Role struct {
	ID          string     `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string     `json:"name" gorm:"size:255;uniqueIndex;not null"`
	Permissions StringList `json:"permissions" gorm:"not null"`
	RoleType    RoleType   `json:"roleType" gorm:"type:varchar(20);not null;default:'collector'"`
	CreatedBy   *string    `json:"createdBy" gorm:"type:uuid"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (Role) TableName() string {
	return "roles"
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.RoleType == "" {
		r.RoleType = RoleTypeCollector
	}
	if r.Permissions == nil {
		r.Permissions = StringList{}
	}
	return nil
}

// HasAnyPermission reports whether the role grants at least one of perms.
func (r *Role) HasAnyPermission(perms ...string) bool {
	if r == nil {
		return false
	}
	for _, want := range perms {
		for _, have := range r.Permissions {
			if have == want {
				return true
			}
		}
	}
	return false
}

func IsValidRoleType(t RoleType) bool {
	return t == RoleTypeCollector || t == RoleTypeAdmin
}
