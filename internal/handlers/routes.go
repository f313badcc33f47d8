package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/groupchat/backend/internal/middleware"
)

type Handlers struct {
	Auth       *AuthHandler
	Users      *UsersHandler
	ChatGroups *ChatGroupsHandler
}

// Limits are applied to the endpoints that are cheap to abuse. A nil
// limiter disables limiting for that scope.
type Limits struct {
	SignIn middleware.Limiter
	Join   middleware.Limiter
}

func RegisterRoutes(router fiber.Router, h Handlers, auth *middleware.AuthMiddleware, limits Limits) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/sign-up", h.Auth.SignUp)
	authRoutes.Post("/sign-in", limited(limits.SignIn, "sign-in"), h.Auth.SignIn)
	authRoutes.Post("/refresh", h.Auth.Refresh)
	authRoutes.Get("/verify-email", h.Auth.VerifyEmail)
	authRoutes.Get("/me", auth.RequireAuth, h.Auth.Me)

	userRoutes := router.Group("/user", auth.RequireAuth)
	userRoutes.Get("/", h.Users.List)
	userRoutes.Get("/email/:email", h.Users.GetByEmail)
	userRoutes.Get("/:id", h.Users.Get)
	userRoutes.Patch("/:id", h.Users.Update)
	userRoutes.Delete("/:id", h.Users.Delete)

	groupRoutes := router.Group("/chatgroup", auth.RequireAuth)
	groupRoutes.Get("/", h.ChatGroups.List)
	groupRoutes.Get("/mine", h.ChatGroups.ListMine)
	groupRoutes.Post("/", h.ChatGroups.Create)
	groupRoutes.Post("/join/:inviteCode", limited(limits.Join, "join"), h.ChatGroups.Join)
	groupRoutes.Get("/:id", h.ChatGroups.Get)
	groupRoutes.Patch("/:id", h.ChatGroups.Update)
	groupRoutes.Delete("/:id", h.ChatGroups.Delete)
	groupRoutes.Post("/:id/add-user", h.ChatGroups.AddUser)
	groupRoutes.Delete("/:id/remove-user", h.ChatGroups.RemoveUser)
	groupRoutes.Patch("/:id/change-role", h.ChatGroups.ChangeRole)
	groupRoutes.Patch("/:id/change-privacy", h.ChatGroups.ChangePrivacy)
	groupRoutes.Patch("/:id/update-invite-code", h.ChatGroups.UpdateInviteCode)
	groupRoutes.Delete("/:id/leave", h.ChatGroups.Leave)
	groupRoutes.Get("/:id/audit", h.ChatGroups.AuditTrail)
}

func limited(limiter middleware.Limiter, scope string) fiber.Handler {
	if limiter == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.RateLimit(limiter, scope)
}
