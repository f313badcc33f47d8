package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/groupchat/backend/internal/middleware"
	"github.com/groupchat/backend/internal/services"
	"github.com/groupchat/backend/internal/validation"
	"github.com/groupchat/backend/pkg/utils"
)

type AuthHandler struct {
	Service *services.AuthService
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{Service: service}
}

func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var input validation.SignUpInput
	if err := parseBody(c, &input); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	image, closer, err := formImage(c)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid image")
	}
	defer closeQuietly(closer)

	user, err := h.Service.SignUp(c.UserContext(), actorFrom(c), input, image)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, "User created", fiber.Map{"user": user})
}

func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var input validation.SignInInput
	if err := parseBody(c, &input); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := h.Service.SignIn(c.UserContext(), actorFrom(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Sign in successful", session)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input validation.RefreshInput
	if err := parseBody(c, &input); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := h.Service.Refresh(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Token refreshed successfully", session)
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	user, err := h.Service.VerifyEmail(c.UserContext(), actorFrom(c), c.Query("token"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Email verified successfully", fiber.Map{"user": user})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, "User fetched successfully", fiber.Map{"user": currentUser})
}
