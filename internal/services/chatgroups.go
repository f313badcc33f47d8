package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/groupchat/backend/internal/models"
	"github.com/groupchat/backend/internal/storage"
	"github.com/groupchat/backend/internal/validation"
	"github.com/groupchat/backend/pkg/logger"
	"github.com/groupchat/backend/pkg/utils"
	"gorm.io/gorm"
)

// ChatGroupService owns chat groups and their memberships. Every mutating
// operation checks the acting member's role before touching storage or media.
type ChatGroupService struct {
	DB            *gorm.DB
	Media         storage.MediaStore
	Audit         *AuditService
	MaxImageBytes int64
}

func NewChatGroupService(db *gorm.DB, media storage.MediaStore, audit *AuditService, maxImageBytes int64) *ChatGroupService {
	return &ChatGroupService{DB: db, Media: media, Audit: audit, MaxImageBytes: maxImageBytes}
}

type ListChatGroupsParams struct {
	Pagination   utils.PaginationParams
	Name         string
	IncludeAdmin bool
}

// Authorize loads the member acting on a group and checks it holds one of
// the required roles. The member must belong to groupID and, when
// actorUserID is set, to that user. Any mismatch is reported as forbidden.
func (s *ChatGroupService) Authorize(ctx context.Context, groupID, memberID, actorUserID uuid.UUID, required models.RoleSet, deniedMessage string) (*models.Member, error) {
	var member models.Member
	err := s.DB.WithContext(ctx).
		Where("id = ? AND chat_group_id = ?", memberID, groupID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, forbidden(deniedMessage)
	}
	if err != nil {
		return nil, dependency("Failed to load membership", err)
	}

	if actorUserID != uuid.Nil && member.UserID != actorUserID {
		return nil, forbidden(deniedMessage)
	}
	if !models.HasRole(&member, required) {
		return nil, forbidden(deniedMessage)
	}
	return &member, nil
}

// List returns public chat groups. Invite codes are never included.
func (s *ChatGroupService) List(ctx context.Context, params ListChatGroupsParams) ([]models.ChatGroup, utils.Page, error) {
	query := s.DB.WithContext(ctx).Model(&models.ChatGroup{}).Where("is_public = ?", true)
	if name := strings.TrimSpace(params.Name); name != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, utils.Page{}, dependency("Failed to count chat groups", err)
	}

	if params.IncludeAdmin {
		query = query.Preload("Members", "role = ?", models.RoleAdmin).Preload("Members.User")
	}

	var groups []models.ChatGroup
	if err := utils.ApplyPagination(query.Order("created_at DESC"), params.Pagination).Find(&groups).Error; err != nil {
		return nil, utils.Page{}, dependency("Failed to list chat groups", err)
	}

	for i := range groups {
		groups[i].InviteCode = ""
	}
	return groups, params.Pagination.Describe(total), nil
}

// ListForUser returns the groups userID belongs to. The invite code is kept
// only where the user moderates the group.
func (s *ChatGroupService) ListForUser(ctx context.Context, userID uuid.UUID, p utils.PaginationParams) ([]models.ChatGroup, utils.Page, error) {
	query := s.DB.WithContext(ctx).Model(&models.ChatGroup{}).
		Joins("JOIN members ON members.chat_group_id = chat_groups.id").
		Where("members.user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, utils.Page{}, dependency("Failed to count chat groups", err)
	}

	var groups []models.ChatGroup
	err := utils.ApplyPagination(query.Order("chat_groups.created_at DESC"), p).
		Preload("Members", "user_id = ?", userID).
		Find(&groups).Error
	if err != nil {
		return nil, utils.Page{}, dependency("Failed to list chat groups", err)
	}

	for i := range groups {
		if !moderates(groups[i].Members, userID) {
			groups[i].InviteCode = ""
		}
	}
	return groups, p.Describe(total), nil
}

// Get returns one group. The invite code is shown only to its moderators.
func (s *ChatGroupService) Get(ctx context.Context, actor Actor, groupID uuid.UUID, includeUsers bool) (*models.ChatGroup, error) {
	group, err := s.loadGroup(ctx, groupID, includeUsers)
	if err != nil {
		return nil, err
	}
	if !moderates(group.Members, actor.UserID) {
		group.InviteCode = ""
	}
	return group, nil
}

// Create stores the image, then the group and its founding ADMIN member in
// one transaction. The image is removed again if the transaction fails.
func (s *ChatGroupService) Create(ctx context.Context, actor Actor, input validation.CreateChatGroupInput, image *storage.Upload) (*models.ChatGroup, error) {
	input.Normalize()
	if err := validationError(validation.Validate(&input)); err != nil {
		return nil, err
	}
	if err := checkImage(image, s.MaxImageBytes); err != nil {
		return nil, err
	}

	imageURL, err := s.Media.Upload(ctx, storage.FolderChatAvatar, *image)
	if err != nil {
		return nil, dependency("Failed to upload image", err)
	}

	group := models.ChatGroup{
		Name:        input.Name,
		Description: input.Description,
		ImageURL:    imageURL,
		IsPublic:    input.IsPublic,
		InviteCode:  uuid.NewString(),
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		founder := models.Member{
			UserID:      actor.UserID,
			ChatGroupID: group.ID,
			Role:        models.RoleAdmin,
		}
		return tx.Create(&founder).Error
	})
	if err != nil {
		if cleanupErr := s.Media.Delete(ctx, storage.FolderChatAvatar, imageURL); cleanupErr != nil {
			logger.ErrorWithUser(actor.UserID.String(), "chatgroup_image_cleanup_failed", cleanupErr, map[string]interface{}{
				"image_url": imageURL,
			})
		}
		return nil, dependency("Failed to create chat group", err)
	}

	actor.audit(s.Audit, ActionChatGroupCreate, ResourceChatGroup, group.ID, map[string]interface{}{
		"name":      group.Name,
		"is_public": group.IsPublic,
	})
	return s.loadGroup(ctx, group.ID, true)
}

// Update changes name and description, replacing the image when a new one
// is supplied. The old image is deleted before the new one is uploaded.
func (s *ChatGroupService) Update(ctx context.Context, actor Actor, groupID, moderatorID uuid.UUID, input validation.UpdateChatGroupInput, image *storage.Upload) (*models.ChatGroup, error) {
	input.Normalize()
	if err := validationError(validation.Validate(&input)); err != nil {
		return nil, err
	}
	if image != nil {
		if err := checkImage(image, s.MaxImageBytes); err != nil {
			return nil, err
		}
	}

	if _, err := s.Authorize(ctx, groupID, moderatorID, actor.UserID, models.ModerateRoles, "You are not authorized to update this chat group"); err != nil {
		return nil, err
	}

	var group models.ChatGroup
	if err := s.DB.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		return nil, s.groupLookupError(err)
	}

	updates := map[string]interface{}{"name": input.Name}
	if input.Description != nil {
		if *input.Description == "" {
			updates["description"] = nil
		} else {
			updates["description"] = *input.Description
		}
	}
	if image != nil {
		if err := s.Media.Delete(ctx, storage.FolderChatAvatar, group.ImageURL); err != nil {
			return nil, dependency("Failed to delete existing image", err)
		}
		imageURL, err := s.Media.Upload(ctx, storage.FolderChatAvatar, *image)
		if err != nil {
			return nil, dependency("Failed to upload image", err)
		}
		updates["image_url"] = imageURL
	}

	if err := s.DB.WithContext(ctx).Model(&group).Updates(updates).Error; err != nil {
		return nil, dependency("Failed to update chat group", err)
	}

	actor.audit(s.Audit, ActionChatGroupUpdate, ResourceChatGroup, groupID, map[string]interface{}{
		"name":          input.Name,
		"image_changed": image != nil,
	})
	return s.loadGroup(ctx, groupID, true)
}

// Delete removes the group image first; if that fails the group is kept.
func (s *ChatGroupService) Delete(ctx context.Context, actor Actor, groupID, adminID uuid.UUID) error {
	if _, err := s.Authorize(ctx, groupID, adminID, actor.UserID, models.DestructiveRoles, "You are not authorized to delete this chat group"); err != nil {
		return err
	}

	var group models.ChatGroup
	if err := s.DB.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		return s.groupLookupError(err)
	}

	if err := s.Media.Delete(ctx, storage.FolderChatAvatar, group.ImageURL); err != nil {
		return dependency("Failed to delete chat group image", err)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_group_id = ?", groupID).Delete(&models.Member{}).Error; err != nil {
			return err
		}
		return tx.Delete(&group).Error
	})
	if err != nil {
		return dependency("Failed to delete chat group", err)
	}

	actor.audit(s.Audit, ActionChatGroupDelete, ResourceChatGroup, groupID, map[string]interface{}{
		"name": group.Name,
	})
	return nil
}

func (s *ChatGroupService) AddMember(ctx context.Context, actor Actor, groupID, moderatorID, userID uuid.UUID) (*models.ChatGroup, error) {
	moderator, err := s.Authorize(ctx, groupID, moderatorID, actor.UserID, models.ModerateRoles, "You are not authorized to add new users to this chat group")
	if err != nil {
		return nil, err
	}
	if moderator.UserID == userID {
		return nil, invalid("You cannot add yourself to this chat group")
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Select("id").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("User not found")
		}
		return nil, dependency("Failed to load user", err)
	}

	exists, err := s.isMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, invalid("User is already a member of this chat group")
	}

	member := models.Member{UserID: userID, ChatGroupID: groupID, Role: models.RoleMember}
	if err := s.DB.WithContext(ctx).Create(&member).Error; err != nil {
		return nil, dependency("Failed to add user to chat group", err)
	}

	actor.audit(s.Audit, ActionMemberAdd, ResourceChatGroup, groupID, map[string]interface{}{
		"member_id":      member.ID.String(),
		"target_user_id": userID.String(),
	})
	return s.loadGroup(ctx, groupID, true)
}

func (s *ChatGroupService) RemoveMember(ctx context.Context, actor Actor, groupID, moderatorID, memberID uuid.UUID) (*models.ChatGroup, error) {
	if memberID == moderatorID {
		return nil, forbidden("You cannot remove yourself from this chat group")
	}
	if _, err := s.Authorize(ctx, groupID, moderatorID, actor.UserID, models.ModerateRoles, "You are not authorized to remove users from this chat group"); err != nil {
		return nil, err
	}

	target, err := s.memberInGroup(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	if target.Role == models.RoleAdmin {
		return nil, forbidden("The chat group admin cannot be removed")
	}

	if err := s.DB.WithContext(ctx).Delete(target).Error; err != nil {
		return nil, dependency("Failed to remove member from chat group", err)
	}

	actor.audit(s.Audit, ActionMemberRemove, ResourceChatGroup, groupID, map[string]interface{}{
		"member_id":      target.ID.String(),
		"target_user_id": target.UserID.String(),
	})
	return s.loadGroup(ctx, groupID, true)
}

// ChangeRole refuses a self-change before looking at the rest of the input.
func (s *ChatGroupService) ChangeRole(ctx context.Context, actor Actor, groupID, moderatorID uuid.UUID, input validation.ChangeRoleInput) (*models.ChatGroup, error) {
	input.MemberID = strings.TrimSpace(input.MemberID)
	if id, err := uuid.Parse(input.MemberID); err == nil && id == moderatorID {
		return nil, forbidden("You are not authorized to change your role")
	}
	if err := validationError(validation.Validate(&input)); err != nil {
		return nil, err
	}
	if !models.AssignableRoles.Contains(input.Role) {
		return nil, invalid("Role must be one of MODERATOR, MEMBER")
	}

	if _, err := s.Authorize(ctx, groupID, moderatorID, actor.UserID, models.ModerateRoles, "You are not authorized to change roles in this chat group"); err != nil {
		return nil, err
	}

	target, err := s.memberInGroup(ctx, groupID, uuid.MustParse(input.MemberID))
	if err != nil {
		return nil, err
	}
	if target.Role == models.RoleAdmin {
		return nil, forbidden("The chat group admin's role cannot be changed")
	}

	previous := target.Role
	if err := s.DB.WithContext(ctx).Model(target).Update("role", input.Role).Error; err != nil {
		return nil, dependency("Failed to change member role", err)
	}

	actor.audit(s.Audit, ActionMemberRoleChange, ResourceChatGroup, groupID, map[string]interface{}{
		"member_id":     target.ID.String(),
		"previous_role": string(previous),
		"role":          string(input.Role),
	})
	return s.loadGroup(ctx, groupID, true)
}

func (s *ChatGroupService) ChangePrivacy(ctx context.Context, actor Actor, groupID, moderatorID uuid.UUID, input validation.ChangePrivacyInput) (*models.ChatGroup, error) {
	if err := validationError(validation.Validate(&input)); err != nil {
		return nil, err
	}
	if _, err := s.Authorize(ctx, groupID, moderatorID, actor.UserID, models.ModerateRoles, "You are not authorized to change the privacy of this chat group"); err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Model(&models.ChatGroup{}).Where("id = ?", groupID).Update("is_public", *input.IsPublic).Error; err != nil {
		return nil, dependency("Failed to change chat group privacy", err)
	}

	actor.audit(s.Audit, ActionChatGroupPrivacy, ResourceChatGroup, groupID, map[string]interface{}{
		"is_public": *input.IsPublic,
	})
	return s.loadGroup(ctx, groupID, true)
}

// RotateInviteCode replaces the invite code, invalidating the previous one.
func (s *ChatGroupService) RotateInviteCode(ctx context.Context, actor Actor, groupID, moderatorID uuid.UUID) (*models.ChatGroup, error) {
	if _, err := s.Authorize(ctx, groupID, moderatorID, actor.UserID, models.ModerateRoles, "You are not authorized to update the invite code of this chat group"); err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Model(&models.ChatGroup{}).Where("id = ?", groupID).Update("invite_code", uuid.NewString()).Error; err != nil {
		return nil, dependency("Failed to update invite code", err)
	}

	actor.audit(s.Audit, ActionChatGroupInviteCode, ResourceChatGroup, groupID, nil)
	return s.loadGroup(ctx, groupID, true)
}

// Join adds the caller to the group holding inviteCode as a MEMBER.
func (s *ChatGroupService) Join(ctx context.Context, actor Actor, inviteCode string, input validation.JoinInput) (*models.Member, error) {
	inviteCode = strings.TrimSpace(inviteCode)
	if inviteCode == "" {
		return nil, invalid("Invite code is required")
	}
	input.UserID = strings.TrimSpace(input.UserID)
	if err := validationError(validation.Validate(&input)); err != nil {
		return nil, err
	}
	if input.UserID != "" && uuid.MustParse(input.UserID) != actor.UserID {
		return nil, forbidden("You can only join a chat group as yourself")
	}

	var group models.ChatGroup
	if err := s.DB.WithContext(ctx).First(&group, "invite_code = ?", inviteCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Chat group not found")
		}
		return nil, dependency("Failed to load chat group", err)
	}

	exists, err := s.isMember(ctx, group.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, invalid("You are already a member of this chat group")
	}

	member := models.Member{UserID: actor.UserID, ChatGroupID: group.ID, Role: models.RoleMember}
	if err := s.DB.WithContext(ctx).Create(&member).Error; err != nil {
		return nil, dependency("Failed to join chat group", err)
	}

	actor.audit(s.Audit, ActionMemberJoin, ResourceChatGroup, group.ID, map[string]interface{}{
		"member_id": member.ID.String(),
	})

	group.InviteCode = ""
	member.ChatGroup = &group
	return &member, nil
}

// Leave removes the caller's own membership. The ADMIN has to delete the
// group instead.
func (s *ChatGroupService) Leave(ctx context.Context, actor Actor, groupID uuid.UUID) error {
	var member models.Member
	err := s.DB.WithContext(ctx).
		Where("chat_group_id = ? AND user_id = ?", groupID, actor.UserID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("You are not a member of this chat group")
	}
	if err != nil {
		return dependency("Failed to load membership", err)
	}
	if member.Role == models.RoleAdmin {
		return forbidden("The chat group admin cannot leave the chat group")
	}

	if err := s.DB.WithContext(ctx).Delete(&member).Error; err != nil {
		return dependency("Failed to leave chat group", err)
	}

	actor.audit(s.Audit, ActionMemberLeave, ResourceChatGroup, groupID, map[string]interface{}{
		"member_id": member.ID.String(),
	})
	return nil
}

// AuditTrail lists what happened to a group, newest first. Moderators only.
func (s *ChatGroupService) AuditTrail(ctx context.Context, actor Actor, groupID, moderatorID uuid.UUID, p utils.PaginationParams) ([]models.AuditLog, utils.Page, error) {
	if _, err := s.Authorize(ctx, groupID, moderatorID, actor.UserID, models.ModerateRoles, "You are not authorized to view the audit trail of this chat group"); err != nil {
		return nil, utils.Page{}, err
	}
	if s.Audit == nil {
		return []models.AuditLog{}, p.Describe(0), nil
	}

	logs, total, err := s.Audit.ListForChatGroup(ctx, groupID, p)
	if err != nil {
		return nil, utils.Page{}, dependency("Failed to list audit logs", err)
	}
	return logs, p.Describe(total), nil
}

func (s *ChatGroupService) loadGroup(ctx context.Context, groupID uuid.UUID, includeUsers bool) (*models.ChatGroup, error) {
	query := s.DB.WithContext(ctx).Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
	if includeUsers {
		query = query.Preload("Members.User")
	}

	var group models.ChatGroup
	if err := query.First(&group, "id = ?", groupID).Error; err != nil {
		return nil, s.groupLookupError(err)
	}
	return &group, nil
}

func (s *ChatGroupService) memberInGroup(ctx context.Context, groupID, memberID uuid.UUID) (*models.Member, error) {
	var member models.Member
	err := s.DB.WithContext(ctx).
		Where("id = ? AND chat_group_id = ?", memberID, groupID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Member not found")
	}
	if err != nil {
		return nil, dependency("Failed to load member", err)
	}
	return &member, nil
}

func (s *ChatGroupService) isMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Member{}).
		Where("chat_group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, dependency("Failed to check membership", err)
	}
	return count > 0, nil
}

func (s *ChatGroupService) groupLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("Chat group not found")
	}
	return dependency("Failed to load chat group", err)
}

func moderates(members []models.Member, userID uuid.UUID) bool {
	if userID == uuid.Nil {
		return false
	}
	for i := range members {
		if members[i].UserID == userID && models.HasRole(&members[i], models.ModerateRoles) {
			return true
		}
	}
	return false
}
