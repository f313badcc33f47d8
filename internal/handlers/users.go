package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/groupchat/backend/internal/services"
	"github.com/groupchat/backend/internal/validation"
	"github.com/groupchat/backend/pkg/utils"
)

type UsersHandler struct {
	Service *services.UserService
}

func NewUsersHandler(service *services.UserService) *UsersHandler {
	return &UsersHandler{Service: service}
}

func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, page, err := h.Service.List(c.UserContext(), services.ListUsersParams{
		Pagination: utils.ParsePagination(c),
		Name:       c.Query("name"),
		Email:      c.Query("email"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return utils.Paginated(c, "Users fetched successfully", "users", users, page)
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	userID, msg := requireID(c.Params("id"), "User ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	user, err := h.Service.Get(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "User fetched successfully", fiber.Map{"user": user})
}

func (h *UsersHandler) GetByEmail(c *fiber.Ctx) error {
	user, err := h.Service.GetByEmail(c.UserContext(), c.Params("email"), queryBool(c, "includeMembers"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "User fetched successfully", fiber.Map{"user": user})
}

func (h *UsersHandler) Update(c *fiber.Ctx) error {
	userID, msg := requireID(c.Params("id"), "User ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	var input validation.UpdateUserInput
	if err := parseBody(c, &input); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	image, closer, err := formImage(c)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid image")
	}
	defer closeQuietly(closer)

	user, err := h.Service.Update(c.UserContext(), actorFrom(c), userID, input, image)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "User updated successfully", fiber.Map{"user": user})
}

func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	userID, msg := requireID(c.Params("id"), "User ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	if err := h.Service.Delete(c.UserContext(), actorFrom(c), userID); err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "User deleted successfully", nil)
}
