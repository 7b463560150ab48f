package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-identity-service/internal/api/dto"
	"github.com/spec-kit/clinic-identity-service/internal/domain"
	"github.com/spec-kit/clinic-identity-service/internal/repository"
	"github.com/spec-kit/clinic-identity-service/internal/service"
	apperrors "github.com/spec-kit/clinic-identity-service/pkg/util"
)

// AdminHandler exposes the account management surface.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: adminService}
}

// ListAccounts handles GET /admin/users.
func (h *AdminHandler) ListAccounts(c *fiber.Ctx) error {
	filter := repository.ListFilter{
		Status: domain.AccountStatus(c.Query("status")),
		Search: c.Query("search"),
	}
	if role := c.Query("role"); role != "" {
		if !domain.ValidRole(role) {
			return apperrors.NewValidationError("invalid role filter", nil)
		}
		filter.Role = domain.RoleAlias[role]
	}

	accounts, err := h.admin.ListAccounts(c.UserContext(), filter)
	if err != nil {
		return err
	}

	views := make([]dto.AdminAccountView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, dto.NewAdminAccountView(account))
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"users": views,
			"total": len(views),
		},
	})
}

// GetAccount handles GET /admin/users/:id.
func (h *AdminHandler) GetAccount(c *fiber.Ctx) error {
	account, err := h.admin.GetAccount(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": dto.NewAdminAccountView(account)}})
}

// UpdateAccount handles PUT /admin/users/:id.
func (h *AdminHandler) UpdateAccount(c *fiber.Ctx) error {
	var req dto.AdminUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.AdminUpdateInput{Fields: req.Fields()}
	if req.Status != nil {
		input.Status = *req.Status
	}

	account, err := h.admin.UpdateAccount(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "user updated successfully",
		"data":    fiber.Map{"user": dto.NewAdminAccountView(account)},
	})
}

// SendPasswordReset handles POST /admin/users/:id/reset-password.
func (h *AdminHandler) SendPasswordReset(c *fiber.Ctx) error {
	if err := h.admin.SendPasswordReset(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "password reset email sent"})
}

// SendVerification handles POST /admin/users/:id/send-verification.
func (h *AdminHandler) SendVerification(c *fiber.Ctx) error {
	if err := h.admin.SendVerification(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "verification email sent"})
}
