package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/groupchat/backend/internal/models"
	"github.com/groupchat/backend/internal/storage"
	"github.com/groupchat/backend/internal/validation"
	"github.com/groupchat/backend/pkg/utils"
	"gorm.io/gorm"
)

type UserService struct {
	DB            *gorm.DB
	Media         storage.MediaStore
	Audit         *AuditService
	MaxImageBytes int64
}

func NewUserService(db *gorm.DB, media storage.MediaStore, audit *AuditService, maxImageBytes int64) *UserService {
	return &UserService{DB: db, Media: media, Audit: audit, MaxImageBytes: maxImageBytes}
}

type ListUsersParams struct {
	Pagination utils.PaginationParams
	Name       string
	Email      string
}

func (s *UserService) List(ctx context.Context, params ListUsersParams) ([]models.User, utils.Page, error) {
	query := s.DB.WithContext(ctx).Model(&models.User{})
	if name := strings.TrimSpace(params.Name); name != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if email := strings.TrimSpace(params.Email); email != "" {
		query = query.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(email)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, utils.Page{}, dependency("Failed to count users", err)
	}

	var users []models.User
	if err := utils.ApplyPagination(query.Order("created_at DESC"), params.Pagination).Find(&users).Error; err != nil {
		return nil, utils.Page{}, dependency("Failed to list users", err)
	}
	return users, params.Pagination.Describe(total), nil
}

func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, userLookupError(err)
	}
	return &user, nil
}

// GetByEmail optionally includes the user's memberships with their groups.
func (s *UserService) GetByEmail(ctx context.Context, email string, includeMembers bool) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, invalid("Email is required")
	}

	query := s.DB.WithContext(ctx)
	if includeMembers {
		query = query.Preload("Members").Preload("Members.ChatGroup")
	}

	var user models.User
	if err := query.First(&user, "email = ?", email).Error; err != nil {
		return nil, userLookupError(err)
	}
	for i := range user.Members {
		if user.Members[i].ChatGroup != nil && !models.HasRole(&user.Members[i], models.ModerateRoles) {
			user.Members[i].ChatGroup.InviteCode = ""
		}
	}
	return &user, nil
}

// Update edits the caller's own profile. A new avatar replaces the old one,
// which is deleted first.
func (s *UserService) Update(ctx context.Context, actor Actor, userID uuid.UUID, input validation.UpdateUserInput, image *storage.Upload) (*models.User, error) {
	if actor.UserID != userID {
		return nil, forbidden("You can only update your own profile")
	}
	input.Normalize()
	if err := validationError(validation.Validate(&input)); err != nil {
		return nil, err
	}
	if image != nil {
		if err := checkImage(image, s.MaxImageBytes); err != nil {
			return nil, err
		}
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	emailChanged := input.Email != user.Email
	if emailChanged {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ? AND id <> ?", input.Email, userID).Count(&count).Error; err != nil {
			return nil, dependency("Failed to check email", err)
		}
		if count > 0 {
			return nil, invalid("Email is already in use")
		}
	}

	updates := map[string]interface{}{
		"name":  input.Name,
		"email": input.Email,
	}
	if emailChanged {
		updates["is_email_verified"] = false
	}
	if image != nil {
		if user.AvatarURL != nil {
			if err := s.Media.Delete(ctx, storage.FolderAvatar, *user.AvatarURL); err != nil {
				return nil, dependency("Failed to delete existing image", err)
			}
		}
		avatarURL, err := s.Media.Upload(ctx, storage.FolderAvatar, *image)
		if err != nil {
			return nil, dependency("Failed to upload image", err)
		}
		updates["avatar_url"] = avatarURL
	}

	if err := s.DB.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, dependency("Failed to update user", err)
	}

	actor.audit(s.Audit, ActionUserUpdate, ResourceUser, userID, map[string]interface{}{
		"email_changed":  emailChanged,
		"avatar_changed": image != nil,
	})
	return s.Get(ctx, userID)
}

// Delete removes the caller's own account with all of its memberships. The
// avatar goes first; if that fails the account is kept. Accounts that still
// administer a group are refused so no group is left without an ADMIN.
func (s *UserService) Delete(ctx context.Context, actor Actor, userID uuid.UUID) error {
	if actor.UserID != userID {
		return forbidden("You can only delete your own account")
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	var adminCount int64
	if err := s.DB.WithContext(ctx).Model(&models.Member{}).Where("user_id = ? AND role = ?", userID, models.RoleAdmin).Count(&adminCount).Error; err != nil {
		return dependency("Failed to check memberships", err)
	}
	if adminCount > 0 {
		return forbidden("Delete the chat groups you administer before deleting your account")
	}

	if user.AvatarURL != nil {
		if err := s.Media.Delete(ctx, storage.FolderAvatar, *user.AvatarURL); err != nil {
			return dependency("Failed to delete user image", err)
		}
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.Member{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return dependency("Failed to delete user", err)
	}

	actor.audit(s.Audit, ActionUserDelete, ResourceUser, userID, nil)
	return nil
}

func userLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("User not found")
	}
	return dependency("Failed to load user", err)
}
