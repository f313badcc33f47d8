package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/groupchat/backend/internal/middleware"
	"github.com/groupchat/backend/internal/services"
	"github.com/groupchat/backend/internal/validation"
	"github.com/groupchat/backend/pkg/utils"
)

type ChatGroupsHandler struct {
	Service *services.ChatGroupService
}

func NewChatGroupsHandler(service *services.ChatGroupService) *ChatGroupsHandler {
	return &ChatGroupsHandler{Service: service}
}

func (h *ChatGroupsHandler) List(c *fiber.Ctx) error {
	groups, page, err := h.Service.List(c.UserContext(), services.ListChatGroupsParams{
		Pagination:   utils.ParsePagination(c),
		Name:         c.Query("name"),
		IncludeAdmin: queryBool(c, "includeAdmin"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return utils.Paginated(c, "Chat Groups fetched successfully", "chatGroups", groups, page)
}

func (h *ChatGroupsHandler) ListMine(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	groups, page, err := h.Service.ListForUser(c.UserContext(), currentUser.ID, utils.ParsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Paginated(c, "Chat Groups fetched successfully", "chatGroups", groups, page)
}

func (h *ChatGroupsHandler) Get(c *fiber.Ctx) error {
	groupID, msg := requireID(c.Params("id"), "Chat Group ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	group, err := h.Service.Get(c.UserContext(), actorFrom(c), groupID, queryBool(c, "includeUsers"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Chat Group fetched successfully", fiber.Map{"chatGroup": group})
}

func (h *ChatGroupsHandler) Create(c *fiber.Ctx) error {
	var input validation.CreateChatGroupInput
	if err := parseBody(c, &input); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	image, closer, err := formImage(c)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid image")
	}
	defer closeQuietly(closer)

	group, err := h.Service.Create(c.UserContext(), actorFrom(c), input, image)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, "Chat Group created successfully", fiber.Map{"chatGroup": group})
}

func (h *ChatGroupsHandler) Update(c *fiber.Ctx) error {
	groupID, msg := requireID(c.Params("id"), "Chat Group ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}
	moderatorID, msg := requireID(c.Query("moderatorId"), "Moderator ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	var input validation.UpdateChatGroupInput
	if err := parseBody(c, &input); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	image, closer, err := formImage(c)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid image")
	}
	defer closeQuietly(closer)

	group, err := h.Service.Update(c.UserContext(), actorFrom(c), groupID, moderatorID, input, image)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Chat Group updated successfully", fiber.Map{"chatGroup": group})
}

func (h *ChatGroupsHandler) Delete(c *fiber.Ctx) error {
	groupID, msg := requireID(c.Params("id"), "Chat Group ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}
	adminID, msg := requireID(c.Query("adminId"), "Admin ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	if err := h.Service.Delete(c.UserContext(), actorFrom(c), groupID, adminID); err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Chat Group deleted successfully", nil)
}

func (h *ChatGroupsHandler) AddUser(c *fiber.Ctx) error {
	groupID, msg := requireID(c.Params("id"), "Chat Group ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}
	moderatorID, msg := requireID(c.Query("moderatorId"), "Moderator ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}
	userID, msg := requireID(c.Query("userId"), "User ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	group, err := h.Service.AddMember(c.UserContext(), actorFrom(c), groupID, moderatorID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "User added to chat group", fiber.Map{"chatGroup": group})
}

func (h *ChatGroupsHandler) RemoveUser(c *fiber.Ctx) error {
	groupID, msg := requireID(c.Params("id"), "Chat Group ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}
	moderatorID, msg := requireID(c.Query("moderatorId"), "Moderator ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}
	memberID, msg := requireID(c.Query("memberId"), "Member ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	group, err := h.Service.RemoveMember(c.UserContext(), actorFrom(c), groupID, moderatorID, memberID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "User removed from chat group successfully", fiber.Map{"chatGroup": group})
}

func (h *ChatGroupsHandler) ChangeRole(c *fiber.Ctx) error {
	groupID, msg := requireID(c.Params("id"), "Chat Group ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}
	moderatorID, msg := requireID(c.Query("moderatorId"), "Moderator ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	var input validation.ChangeRoleInput
	if err := parseBody(c, &input); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	group, err := h.Service.ChangeRole(c.UserContext(), actorFrom(c), groupID, moderatorID, input)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Member role changed successfully", fiber.Map{"chatGroup": group})
}

func (h *ChatGroupsHandler) ChangePrivacy(c *fiber.Ctx) error {
	groupID, msg := requireID(c.Params("id"), "Chat Group ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}
	moderatorID, msg := requireID(c.Query("moderatorId"), "Moderator ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	var input validation.ChangePrivacyInput
	if err := parseBody(c, &input); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	group, err := h.Service.ChangePrivacy(c.UserContext(), actorFrom(c), groupID, moderatorID, input)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Chat Group privacy changed successfully", fiber.Map{"chatGroup": group})
}

func (h *ChatGroupsHandler) UpdateInviteCode(c *fiber.Ctx) error {
	groupID, msg := requireID(c.Params("id"), "Chat Group ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}
	moderatorID, msg := requireID(c.Query("moderatorId"), "Moderator ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	group, err := h.Service.RotateInviteCode(c.UserContext(), actorFrom(c), groupID, moderatorID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Invite code updated successfully", fiber.Map{"chatGroup": group})
}

func (h *ChatGroupsHandler) Join(c *fiber.Ctx) error {
	var input validation.JoinInput
	if err := parseBody(c, &input); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	member, err := h.Service.Join(c.UserContext(), actorFrom(c), c.Params("inviteCode"), input)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Joined chat group successfully", fiber.Map{"member": member})
}

func (h *ChatGroupsHandler) Leave(c *fiber.Ctx) error {
	groupID, msg := requireID(c.Params("id"), "Chat Group ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	if err := h.Service.Leave(c.UserContext(), actorFrom(c), groupID); err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Left chat group successfully", nil)
}

func (h *ChatGroupsHandler) AuditTrail(c *fiber.Ctx) error {
	groupID, msg := requireID(c.Params("id"), "Chat Group ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}
	moderatorID, msg := requireID(c.Query("moderatorId"), "Moderator ID")
	if msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	logs, page, err := h.Service.AuditTrail(c.UserContext(), actorFrom(c), groupID, moderatorID, utils.ParsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Paginated(c, "Audit logs fetched successfully", "auditLogs", logs, page)
}
