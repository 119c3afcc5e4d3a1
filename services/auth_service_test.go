package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamsucomsoft/onv-ncne-api/config"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

var testJWTConfig = config.JWTConfig{
	Secret:           "test-secret",
	ExpiryHours:      1,
	Issuer:           "onv-ncne-api-test",
	RefreshTokenDays: 30,
}

func TestLoginIssuesTokens(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "admin@example.com", "Adminpass1", models.RoleTypeAdmin)
	jwtSvc := NewJWTService(db, testJWTConfig)
	auth := NewAuthService(db, jwtSvc)

	res, err := auth.Login(context.Background(), "admin@example.com", "Adminpass1", ClientInfo{IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	require.NotNil(t, res.User.Role)
	assert.Equal(t, models.RoleTypeAdmin, res.User.Role.RoleType)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, int64(3600), res.ExpiresIn)

	id, err := jwtSvc.ValidateAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "c@example.com", "Collectorpass", models.RoleTypeCollector)
	auth := NewAuthService(db, NewJWTService(db, testJWTConfig))
	ctx := context.Background()

	_, err := auth.Login(ctx, "c@example.com", "wrong", ClientInfo{})
	assert.Equal(t, http.StatusUnauthorized, utils.StatusOf(err))
	assert.Equal(t, "Invalid credentials", utils.MessageOf(err))

	_, err = auth.Login(ctx, "nobody@example.com", "Collectorpass", ClientInfo{})
	assert.Equal(t, http.StatusUnauthorized, utils.StatusOf(err))

	require.NoError(t, db.Model(u).Update("is_email_verified", false).Error)
	_, err = auth.Login(ctx, "c@example.com", "Collectorpass", ClientInfo{})
	assert.Equal(t, http.StatusUnauthorized, utils.StatusOf(err))
}

func TestRefreshAndRevoke(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "c@example.com", "Collectorpass", models.RoleTypeCollector)
	jwtSvc := NewJWTService(db, testJWTConfig)
	ctx := context.Background()

	pair, err := jwtSvc.GenerateTokenPair(ctx, user, ClientInfo{DeviceID: "tablet-1"})
	require.NoError(t, err)

	refreshed, err := jwtSvc.RefreshAccessToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, refreshed.RefreshToken)

	require.NoError(t, jwtSvc.RevokeRefreshToken(ctx, pair.RefreshToken))
	_, err = jwtSvc.RefreshAccessToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)

	assert.ErrorIs(t, jwtSvc.RevokeRefreshToken(ctx, "missing"), ErrRefreshTokenNotFound)

	removed, err := jwtSvc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestValidateAccessTokenRejectsExpiredAndForeign(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "c@example.com", "Collectorpass", models.RoleTypeCollector)
	jwtSvc := NewJWTService(db, testJWTConfig)

	token, _, err := jwtSvc.generateAccessToken(user.ID, user.Email)
	require.NoError(t, err)

	jwtSvc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = jwtSvc.ValidateAccessToken(token)
	assert.Error(t, err)

	other := NewJWTService(db, config.JWTConfig{Secret: "other", ExpiryHours: 1})
	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestSeedDefaultUsersIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	auth := NewAuthService(db, NewJWTService(db, testJWTConfig))
	cfg := config.SeedConfig{
		AdminEmail: "superadmin@example.com", AdminPassword: "Superpass", AdminName: "Super Admin",
		CollectorEmail: "collector@example.com", CollectorPassword: "Collectorpass", CollectorName: "Abu Isah",
	}
	ctx := context.Background()

	require.NoError(t, auth.SeedDefaultUsers(ctx, cfg))
	require.NoError(t, auth.SeedDefaultUsers(ctx, cfg))

	var users int64
	db.Model(&models.User{}).Count(&users)
	assert.Equal(t, int64(2), users)

	var role models.Role
	require.NoError(t, db.Where("name = ?", RoleSuperAdmin).First(&role).Error)
	assert.Equal(t, models.RoleTypeAdmin, role.RoleType)
	assert.ElementsMatch(t, models.AdminPermissions, []string(role.Permissions))

	res, err := auth.Login(ctx, "collector@example.com", "Collectorpass", ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "Abu Isah", res.User.FullName)
	assert.Equal(t, models.RoleTypeCollector, res.User.RoleType())
}
