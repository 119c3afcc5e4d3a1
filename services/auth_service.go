package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/config"
	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

// Seeded role names.
const (
	RoleSuperAdmin = "super_admin"
	RoleCollector  = "collector"
)

type AuthService struct {
	db  *gorm.DB
	jwt *JWTService
}

func NewAuthService(db *gorm.DB, jwt *JWTService) *AuthService {
	return &AuthService{db: db, jwt: jwt}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	*TokenPair
	User *models.User `json:"user"`
}

// Login checks credentials and issues a token pair. Unknown, unverified and
// wrong-password logins are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Role").Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.Unauthorized("Invalid credentials")
		}
		return nil, utils.Internal("Login failed", err)
	}
	if !user.IsEmailVerified || !utils.CheckPasswordHash(password, user.Password) {
		logger.L().Info("🔍 Rejected login", zap.String("email", email))
		return nil, utils.Unauthorized("Invalid credentials")
	}
	if user.Status == models.UserStatusSuspended {
		return nil, utils.Forbidden("Account is suspended")
	}

	pair, err := s.jwt.GenerateTokenPair(ctx, &user, client)
	if err != nil {
		return nil, utils.Internal("Failed to issue tokens", err)
	}
	logger.L().Info("✅ User logged in", zap.String("user_id", user.ID))
	return &LoginResult{TokenPair: pair, User: &user}, nil
}

// LoadUser fetches a user with its role for request authentication.
func (s *AuthService) LoadUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.Unauthorized("User not found")
		}
		return nil, utils.Internal("Failed to load user", err)
	}
	return &user, nil
}

// SeedDefaultUsers makes sure the super admin and collector roles exist with
// current permission sets, and creates their default accounts once.
func (s *AuthService) SeedDefaultUsers(ctx context.Context, cfg config.SeedConfig) error {
	admin, err := s.ensureRole(ctx, RoleSuperAdmin, models.RoleTypeAdmin)
	if err != nil {
		return err
	}
	if err := s.ensureUser(ctx, admin, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		return err
	}

	collector, err := s.ensureRole(ctx, RoleCollector, models.RoleTypeCollector)
	if err != nil {
		return err
	}
	return s.ensureUser(ctx, collector, cfg.CollectorEmail, cfg.CollectorPassword, cfg.CollectorName)
}

func (s *AuthService) ensureRole(ctx context.Context, name string, roleType models.RoleType) (*models.Role, error) {
	perms := models.StringList(models.PermissionsFor(roleType))

	var role models.Role
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	switch {
	case err == nil:
		role.Permissions = perms
		role.RoleType = roleType
		if err := s.db.WithContext(ctx).Model(&role).Select("permissions", "role_type").Updates(&role).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		role = models.Role{Name: name, RoleType: roleType, Permissions: perms}
		if err := s.db.WithContext(ctx).Create(&role).Error; err != nil {
			return nil, err
		}
		logger.L().Info("✅ Role seeded", zap.String("role", name))
	default:
		return nil, err
	}
	return &role, nil
}

func (s *AuthService) ensureUser(ctx context.Context, role *models.Role, email, password, name string) error {
	if email == "" || password == "" {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	user := &models.User{
		FullName:        name,
		Email:           email,
		RoleID:          role.ID,
		Password:        hash,
		Status:          models.UserStatusActive,
		IsEmailVerified: true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}
	logger.L().Info("✅ User seeded", zap.String("email", email), zap.String("role", role.Name))
	return nil
}
