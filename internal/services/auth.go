package services

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/groupchat/backend/internal/mail"
	"github.com/groupchat/backend/internal/models"
	"github.com/groupchat/backend/internal/storage"
	"github.com/groupchat/backend/internal/validation"
	"github.com/groupchat/backend/pkg/logger"
	"github.com/groupchat/backend/pkg/utils"
	"gorm.io/gorm"
)

type AuthService struct {
	DB            *gorm.DB
	Tokens        *utils.TokenManager
	Mailer        mail.Mailer
	Media         storage.MediaStore
	Audit         *AuditService
	ClientURL     string
	MaxImageBytes int64
}

// Session is what a successful sign-in hands back to the client.
type Session struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken,omitempty"`
}

// SignUp creates an unverified account and mails a verification link. A
// mail failure is logged but does not undo the account.
func (s *AuthService) SignUp(ctx context.Context, actor Actor, input validation.SignUpInput, image *storage.Upload) (*models.User, error) {
	input.Normalize()
	if err := validationError(validation.Validate(&input)); err != nil {
		return nil, err
	}
	if image != nil {
		if err := checkImage(image, s.MaxImageBytes); err != nil {
			return nil, err
		}
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		return nil, dependency("Failed to check email", err)
	}
	if count > 0 {
		return nil, invalid("Email is already in use")
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, dependency("Failed to hash password", err)
	}

	user := models.User{Name: input.Name, Email: input.Email, PasswordHash: hash}
	if image != nil {
		avatarURL, err := s.Media.Upload(ctx, storage.FolderAvatar, *image)
		if err != nil {
			return nil, dependency("Failed to upload image", err)
		}
		user.AvatarURL = &avatarURL
	}

	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if user.AvatarURL != nil {
			if cleanupErr := s.Media.Delete(ctx, storage.FolderAvatar, *user.AvatarURL); cleanupErr != nil {
				logger.Error("avatar_cleanup_failed", cleanupErr, map[string]interface{}{
					"image_url": *user.AvatarURL,
				})
			}
		}
		return nil, dependency("Failed to create user", err)
	}

	s.sendVerification(ctx, &user)

	actor.UserID = user.ID
	actor.audit(s.Audit, ActionUserRegister, ResourceUser, user.ID, map[string]interface{}{
		"email": user.Email,
	})
	return &user, nil
}

func (s *AuthService) SignIn(ctx context.Context, actor Actor, input validation.SignInInput) (*Session, error) {
	input.Normalize()
	if err := validationError(validation.Validate(&input)); err != nil {
		return nil, err
	}

	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "email = ?", input.Email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, unauthenticated("Invalid email or password")
	}
	if err != nil {
		return nil, dependency("Failed to load user", err)
	}
	if !utils.CheckPassword(user.PasswordHash, input.Password) {
		return nil, unauthenticated("Invalid email or password")
	}

	session, err := s.issue(&user, true)
	if err != nil {
		return nil, err
	}

	actor.UserID = user.ID
	actor.audit(s.Audit, ActionUserLogin, ResourceUser, user.ID, nil)
	return session, nil
}

// Refresh trades a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, input validation.RefreshInput) (*Session, error) {
	input.RefreshToken = strings.TrimSpace(input.RefreshToken)
	if err := validationError(validation.Validate(&input)); err != nil {
		return nil, err
	}

	claims, err := s.Tokens.Validate(utils.PurposeRefresh, input.RefreshToken)
	if err != nil {
		return nil, unauthenticated("Invalid or expired refresh token")
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.issue(user, false)
}

func (s *AuthService) VerifyEmail(ctx context.Context, actor Actor, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalid("Token is required")
	}

	claims, err := s.Tokens.Validate(utils.PurposeEmailVerification, token)
	if err != nil {
		return nil, invalid("Invalid or expired verification token")
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(user.Email, claims.Email) {
		return nil, invalid("Invalid or expired verification token")
	}

	if !user.IsEmailVerified {
		if err := s.DB.WithContext(ctx).Model(user).Update("is_email_verified", true).Error; err != nil {
			return nil, dependency("Failed to verify email", err)
		}
		user.IsEmailVerified = true

		actor.UserID = user.ID
		actor.audit(s.Audit, ActionUserVerifyEmail, ResourceUser, user.ID, nil)
	}
	return user, nil
}

// Authenticate resolves an access token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.Tokens.Validate(utils.PurposeAccess, token)
	if err != nil {
		return nil, unauthenticated("Invalid or expired token")
	}
	return s.userFromClaims(ctx, claims)
}

func (s *AuthService) userFromClaims(ctx context.Context, claims *utils.Claims) (*models.User, error) {
	if claims.UserID == uuid.Nil {
		return nil, unauthenticated("Invalid token subject")
	}

	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "id = ?", claims.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, unauthenticated("User no longer exists")
	}
	if err != nil {
		return nil, dependency("Failed to load user", err)
	}
	return &user, nil
}

func (s *AuthService) issue(user *models.User, withRefresh bool) (*Session, error) {
	access, err := s.Tokens.Generate(utils.PurposeAccess, user.ID, user.Email)
	if err != nil {
		return nil, dependency("Failed to issue token", err)
	}
	session := &Session{User: user, AccessToken: access}

	if withRefresh {
		refresh, err := s.Tokens.Generate(utils.PurposeRefresh, user.ID, user.Email)
		if err != nil {
			return nil, dependency("Failed to issue token", err)
		}
		session.RefreshToken = refresh
	}
	return session, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *models.User) {
	if s.Mailer == nil {
		return
	}
	token, err := s.Tokens.Generate(utils.PurposeEmailVerification, user.ID, user.Email)
	if err != nil {
		logger.ErrorWithUser(user.ID.String(), "verification_token_failed", err, nil)
		return
	}

	link := strings.TrimRight(s.ClientURL, "/") + "/auth/verify-email?token=" + url.QueryEscape(token)
	if err := s.Mailer.SendEmailVerification(ctx, user.Email, user.Name, link); err != nil {
		logger.ErrorWithUser(user.ID.String(), "verification_email_failed", err, map[string]interface{}{
			"email": user.Email,
		})
	}
}
