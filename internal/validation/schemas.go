package validation

import (
	"strings"

	"github.com/groupchat/backend/internal/models"
)

type CreateChatGroupInput struct {
	Name        string  `json:"name" form:"name" label:"Name" validate:"required,min=1,max=50"`
	Description *string `json:"description" form:"description" label:"Description" validate:"omitempty,max=255"`
	IsPublic    bool    `json:"isPublic" form:"isPublic"`
}

func (in *CreateChatGroupInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimOptional(in.Description)
}

type UpdateChatGroupInput struct {
	Name        string  `json:"name" form:"name" label:"Name" validate:"required,min=1,max=50"`
	Description *string `json:"description" form:"description" label:"Description" validate:"omitempty,max=255"`
}

// Normalize trims fields. A nil Description means the field was not sent;
// an empty one clears the stored description.
func (in *UpdateChatGroupInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	if in.Description != nil {
		trimmed := strings.TrimSpace(*in.Description)
		in.Description = &trimmed
	}
}

type ChangeRoleInput struct {
	MemberID string      `json:"memberId" form:"memberId" label:"Member ID" validate:"required,uuid"`
	Role     models.Role `json:"role" form:"role" label:"Role" validate:"required,oneof=MODERATOR MEMBER"`
}

type ChangePrivacyInput struct {
	IsPublic *bool `json:"isPublic" form:"isPublic" label:"isPublic" validate:"required"`
}

type JoinInput struct {
	UserID string `json:"userId" form:"userId" label:"User ID" validate:"omitempty,uuid"`
}

type SignUpInput struct {
	Name     string `json:"name" form:"name" label:"Name" validate:"required,min=1,max=255"`
	Email    string `json:"email" form:"email" label:"Email" validate:"required,email"`
	Password string `json:"password" form:"password" label:"Password" validate:"required,min=8,max=72"`
}

func (in *SignUpInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

type SignInInput struct {
	Email    string `json:"email" form:"email" label:"Email" validate:"required,email"`
	Password string `json:"password" form:"password" label:"Password" validate:"required"`
}

func (in *SignInInput) Normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

type RefreshInput struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken" label:"Refresh token" validate:"required"`
}

type UpdateUserInput struct {
	Name  string `json:"name" form:"name" label:"Name" validate:"required,min=1,max=255"`
	Email string `json:"email" form:"email" label:"Email" validate:"required,email"`
}

func (in *UpdateUserInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
