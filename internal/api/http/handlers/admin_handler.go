package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/ticket-tracker/internal/api/dto"
	"github.com/deskline/ticket-tracker/internal/auth"
	"github.com/deskline/ticket-tracker/internal/domain"
	"github.com/deskline/ticket-tracker/internal/service"
	apperrors "github.com/deskline/ticket-tracker/pkg/util/errorutil"
)

// AdminHandler exposes user directory and role management endpoints.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: adminService}
}

// ListUsers GET /api/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	principal, role, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	users, err := h.admin.ListUsers(c.UserContext(), principal, role)
	if err != nil {
		return err
	}
	items := make([]dto.UserRoleResponse, 0, len(users))
	for _, u := range users {
		items = append(items, dto.UserRoleResponse{ID: u.ID, Email: u.Email, Role: u.Role, IsAdmin: u.IsAdmin})
	}
	return c.JSON(fiber.Map{"data": items})
}

// SetRole PUT /api/users/:id/role.
func (h *AdminHandler) SetRole(c *fiber.Ctx) error {
	principal, role, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	isAdmin := req.Role == domain.RoleTagAdmin
	if req.IsAdmin != nil {
		isAdmin = *req.IsAdmin
	}
	if err := h.admin.SetUserRole(c.UserContext(), principal, role, c.Params("id"), req.Role, isAdmin); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
