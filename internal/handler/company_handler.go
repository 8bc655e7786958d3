package handler

import (
	"shrimp-trace/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CompanyHandler struct {
	service service.CompanyService
}

func NewCompanyHandler(s service.CompanyService) *CompanyHandler {
	return &CompanyHandler{service: s}
}

// GET /api/v1/profile
func (h *CompanyHandler) GetProfile(c *fiber.Ctx) error {
	actor := currentActor(c)
	if actor.IsOperator() {
		return c.JSON(fiber.Map{"id": actor.ID, "kind": actor.Kind, "name": actor.Name})
	}
	company, err := h.service.GetProfile(actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(company.ToResponse())
}

// PUT /api/v1/profile
func (h *CompanyHandler) UpdateProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	company, err := h.service.UpdateProfile(currentActor(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Profile updated", "data": company.ToResponse()})
}

// GetFarmingCompanies is the public directory of farms
// GET /api/v1/companies
func (h *CompanyHandler) GetFarmingCompanies(c *fiber.Ctx) error {
	companies, err := h.service.ListFarmingCompanies()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch companies"})
	}
	return c.JSON(companies)
}
