package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInvited   UserStatus = "invited"
	UserStatusSuspended UserStatus = "suspended"
)

type User struct {
	ID                  string     `json:"id" gorm:"type:uuid;primaryKey"`
	FullName            string     `json:"fullName" gorm:"size:255;not null"`
	Email               string     `json:"email" gorm:"size:256;uniqueIndex;not null"`
	RoleID              string     `json:"roleId" gorm:"type:uuid;not null;index"`
	Password            string     `json:"-" gorm:"size:255"`
	Status              UserStatus `json:"status" gorm:"type:varchar(20);not null;default:'invited'"`
	IsEmailVerified     bool       `json:"isEmailVerified" gorm:"not null;default:false"`
	InvitationToken     *string    `json:"-" gorm:"size:255;index"`
	InvitationExpiresAt *time.Time `json:"invitationExpiresAt,omitempty"`
	InvitedBy           *string    `json:"invitedBy,omitempty" gorm:"type:uuid"`
	CreatedAt           time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt           time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`

	Role *Role `json:"role,omitempty" gorm:"foreignKey:RoleID;constraint:OnDelete:RESTRICT"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = UserStatusInvited
	}
	return nil
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// RoleType returns the type of the loaded role, or "" when the role was not preloaded.
func (u *User) RoleType() RoleType {
	if u.Role == nil {
		return ""
	}
	return u.Role.RoleType
}

func (u *User) IsAdmin() bool {
	return u.RoleType() == RoleTypeAdmin
}

func (u *User) IsCollector() bool {
	return u.RoleType() == RoleTypeCollector
}

func IsValidUserStatus(s UserStatus) bool {
	switch s {
	case UserStatusActive, UserStatusInvited, UserStatusSuspended:
		return true
	}
	return false
}
