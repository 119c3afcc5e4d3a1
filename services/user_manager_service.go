package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

const InvitationTTL = 7 * 24 * time.Hour

type CreateUserInput struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	RoleID   string `json:"roleId" binding:"required,uuid"`
}

type UpdateUserInput struct {
	FullName *string            `json:"fullName"`
	Email    *string            `json:"email" binding:"omitempty,email"`
	Password *string            `json:"password" binding:"omitempty,min=6"`
	RoleID   *string            `json:"roleId" binding:"omitempty,uuid"`
	Status   *models.UserStatus `json:"status"`
}

type InviteUserInput struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	RoleID   string `json:"roleId" binding:"required,uuid"`
}

type AcceptInvitationInput struct {
	Password        string `json:"password" binding:"required,min=6"`
	InvitationToken string `json:"invitationToken" binding:"required,uuid"`
}

type RoleInput struct {
	Name        string          `json:"name" binding:"required"`
	Permissions []string        `json:"permissions" binding:"required"`
	Type        models.RoleType `json:"type" binding:"required"`
}

// Paginated is a page of items with its metadata.
type Paginated struct {
	Data interface{}    `json:"data"`
	Meta utils.PageMeta `json:"meta"`
}

type UserManagerService struct {
	db     *gorm.DB
	mailer Mailer
	now    func() time.Time
}

func NewUserManagerService(db *gorm.DB, mailer Mailer) *UserManagerService {
	return &UserManagerService{db: db, mailer: mailer, now: time.Now}
}

func (s *UserManagerService) emailTaken(ctx context.Context, email string, exceptID string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (s *UserManagerService) requireRole(ctx context.Context, id string) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Role not found")
		}
		return nil, utils.Internal("Failed to load role", err)
	}
	return &role, nil
}

func (s *UserManagerService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	taken, err := s.emailTaken(ctx, in.Email, "")
	if err != nil {
		return nil, utils.Internal("Failed to create user", err)
	}
	if taken {
		return nil, utils.Conflict("User with this email already exists")
	}
	role, err := s.requireRole(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, utils.Internal("Failed to hash password", err)
	}

	user := &models.User{
		FullName:        in.FullName,
		Email:           in.Email,
		RoleID:          role.ID,
		Password:        hash,
		Status:          models.UserStatusActive,
		IsEmailVerified: true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, utils.Internal("Failed to create user", err)
	}
	user.Role = role
	logger.L().Info("✅ User created", zap.String("user_id", user.ID))
	return user, nil
}

func (s *UserManagerService) ListUsers(ctx context.Context, p utils.Pagination) (*Paginated, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, utils.Internal("Failed to fetch users", err)
	}
	var users []models.User
	if err := p.Scope(s.db.WithContext(ctx)).Preload("Role").Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, utils.Internal("Failed to fetch users", err)
	}
	return &Paginated{Data: users, Meta: p.Meta(total)}, nil
}

func (s *UserManagerService) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("User not found")
		}
		return nil, utils.Internal("Failed to fetch user", err)
	}
	return &user, nil
}

func (s *UserManagerService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.FullName != nil {
		updates["full_name"] = *in.FullName
	}
	if in.Email != nil && *in.Email != user.Email {
		taken, err := s.emailTaken(ctx, *in.Email, id)
		if err != nil {
			return nil, utils.Internal("Failed to update user", err)
		}
		if taken {
			return nil, utils.Conflict("User with this email already exists")
		}
		updates["email"] = *in.Email
	}
	if in.RoleID != nil {
		if _, err := s.requireRole(ctx, *in.RoleID); err != nil {
			return nil, err
		}
		updates["role_id"] = *in.RoleID
	}
	if in.Password != nil {
		hash, err := utils.HashPassword(*in.Password)
		if err != nil {
			return nil, utils.Internal("Failed to hash password", err)
		}
		updates["password"] = hash
	}
	if in.Status != nil {
		if !models.IsValidUserStatus(*in.Status) {
			return nil, utils.BadRequest("Invalid user status")
		}
		updates["status"] = *in.Status
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, utils.Internal("Failed to update user", err)
		}
	}
	return s.GetUser(ctx, id)
}

func (s *UserManagerService) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error; err != nil {
		return utils.Internal("Failed to delete user", err)
	}
	logger.L().Info("✅ User deleted", zap.String("user_id", id))
	return nil
}

// InviteUser creates an invited account and mails the invitation link.
// Mail failures are logged; the invitation stands.
func (s *UserManagerService) InviteUser(ctx context.Context, in InviteUserInput, invitedBy string) (*models.User, error) {
	taken, err := s.emailTaken(ctx, in.Email, "")
	if err != nil {
		return nil, utils.Internal("Failed to invite user", err)
	}
	if taken {
		return nil, utils.Conflict("User with this email already exists")
	}
	role, err := s.requireRole(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	expires := s.now().Add(InvitationTTL)
	user := &models.User{
		FullName:            in.FullName,
		Email:               in.Email,
		RoleID:              role.ID,
		Status:              models.UserStatusInvited,
		InvitationToken:     &token,
		InvitationExpiresAt: &expires,
	}
	if invitedBy != "" {
		user.InvitedBy = &invitedBy
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, utils.Internal("Failed to invite user", err)
	}
	user.Role = role

	if s.mailer != nil {
		if err := s.mailer.SendInvitation(ctx, user.Email, user.FullName, token); err != nil {
			logger.L().Warn("⚠️  Invitation email failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	logger.L().Info("✅ User invited", zap.String("user_id", user.ID), zap.String("invited_by", invitedBy))
	return user, nil
}

func (s *UserManagerService) RevokeInvitation(ctx context.Context, id string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Status != models.UserStatusInvited {
		return utils.BadRequest("Can only revoke invitations for invited users")
	}
	if err := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error; err != nil {
		return utils.Internal("Failed to revoke invitation", err)
	}
	return nil
}

func (s *UserManagerService) AcceptInvitation(ctx context.Context, in AcceptInvitationInput) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("invitation_token = ? AND status = ?", in.InvitationToken, models.UserStatusInvited).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Invalid invitation token")
		}
		return nil, utils.Internal("Failed to accept invitation", err)
	}
	if user.InvitationExpiresAt != nil && user.InvitationExpiresAt.Before(s.now()) {
		return nil, utils.BadRequest("Invitation has expired")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, utils.Internal("Failed to hash password", err)
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"password":              hash,
		"status":                models.UserStatusActive,
		"invitation_token":      nil,
		"invitation_expires_at": nil,
		"is_email_verified":     true,
	}).Error; err != nil {
		return nil, utils.Internal("Failed to accept invitation", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(ctx, user.Email, user.FullName); err != nil {
			logger.L().Warn("⚠️  Welcome email failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return s.GetUser(ctx, user.ID)
}

// ExpireInvitations clears tokens of invitations that expired more than
// grace ago and returns how many were cleared.
func (s *UserManagerService) ExpireInvitations(ctx context.Context, grace time.Duration) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("status = ? AND invitation_token IS NOT NULL AND invitation_expires_at < ?", models.UserStatusInvited, s.now().Add(-grace)).
		Update("invitation_token", nil)
	return res.RowsAffected, res.Error
}

func validateRole(in RoleInput) error {
	if !models.IsValidRoleType(in.Type) {
		return utils.BadRequest("Invalid role type")
	}
	return nil
}

func (s *UserManagerService) CreateRole(ctx context.Context, in RoleInput, createdBy string) (*models.Role, error) {
	if err := validateRole(in); err != nil {
		return nil, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Role{}).Where("name = ?", in.Name).Count(&n).Error; err != nil {
		return nil, utils.Internal("Failed to create role", err)
	}
	if n > 0 {
		return nil, utils.Conflict("Role with this name already exists")
	}

	role := &models.Role{Name: in.Name, Permissions: models.StringList(in.Permissions), RoleType: in.Type}
	if createdBy != "" {
		role.CreatedBy = &createdBy
	}
	if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
		return nil, utils.Internal("Failed to create role", err)
	}
	return role, nil
}

func (s *UserManagerService) ListRoles(ctx context.Context, p utils.Pagination) (*Paginated, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Role{}).Count(&total).Error; err != nil {
		return nil, utils.Internal("Failed to fetch roles", err)
	}
	var roles []models.Role
	if err := p.Scope(s.db.WithContext(ctx)).Order("name").Find(&roles).Error; err != nil {
		return nil, utils.Internal("Failed to fetch roles", err)
	}
	return &Paginated{Data: roles, Meta: p.Meta(total)}, nil
}

func (s *UserManagerService) GetRole(ctx context.Context, id string) (*models.Role, error) {
	return s.requireRole(ctx, id)
}

func (s *UserManagerService) UpdateRole(ctx context.Context, id string, in RoleInput) (*models.Role, error) {
	if err := validateRole(in); err != nil {
		return nil, err
	}
	role, err := s.requireRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != role.Name {
		var n int64
		s.db.WithContext(ctx).Model(&models.Role{}).Where("name = ? AND id <> ?", in.Name, id).Count(&n)
		if n > 0 {
			return nil, utils.Conflict("Role with this name already exists")
		}
	}
	role.Name = in.Name
	role.Permissions = models.StringList(in.Permissions)
	role.RoleType = in.Type
	if err := s.db.WithContext(ctx).Model(role).Select("name", "permissions", "role_type").Updates(role).Error; err != nil {
		return nil, utils.Internal("Failed to update role", err)
	}
	return role, nil
}

func (s *UserManagerService) DeleteRole(ctx context.Context, id string) error {
	if _, err := s.requireRole(ctx, id); err != nil {
		return err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role_id = ?", id).Count(&n).Error; err != nil {
		return utils.Internal("Failed to delete role", err)
	}
	if n > 0 {
		return utils.Conflict("Cannot delete role with assigned users")
	}
	if err := s.db.WithContext(ctx).Delete(&models.Role{}, "id = ?", id).Error; err != nil {
		return utils.Internal("Failed to delete role", err)
	}
	return nil
}
