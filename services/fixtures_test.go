package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/database/dbtest"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	return dbtest.New(t)
}

func createRole(t *testing.T, db *gorm.DB, name string, roleType models.RoleType) *models.Role {
	t.Helper()
	role := &models.Role{
		Name:        name,
		RoleType:    roleType,
		Permissions: models.StringList(models.PermissionsFor(roleType)),
	}
	require.NoError(t, db.Create(role).Error)
	return role
}

func createUser(t *testing.T, db *gorm.DB, email, password string, roleType models.RoleType) *models.User {
	t.Helper()
	var role models.Role
	err := db.Where("role_type = ?", roleType).First(&role).Error
	if err != nil {
		role = *createRole(t, db, string(roleType)+"-role", roleType)
	}
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{
		FullName:        "Test " + string(roleType),
		Email:           email,
		RoleID:          role.ID,
		Password:        hash,
		Status:          models.UserStatusActive,
		IsEmailVerified: true,
	}
	require.NoError(t, db.Create(user).Error)
	user.Role = &role
	return user
}
