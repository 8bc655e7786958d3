package handler

import (
	"shrimp-trace/internal/model"
	"shrimp-trace/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type RequestHandler struct {
	service service.PurchaseRequestService
}

func NewRequestHandler(s service.PurchaseRequestService) *RequestHandler {
	return &RequestHandler{service: s}
}

// POST /api/v1/requests
func (h *RequestHandler) CreateRequest(c *fiber.Ctx) error {
	var req service.CreatePurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	pr, err := h.service.CreateRequest(currentActor(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Purchase request sent", "data": pr})
}

// GET /api/v1/requests/incoming
func (h *RequestHandler) GetIncoming(c *fiber.Ctx) error {
	requests, err := h.service.GetIncoming(currentActor(c))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch requests"})
	}
	return c.JSON(requests)
}

// GetOutgoing lists the exporter's own requests
// Query params: status (pending, approved, rejected; default all)
func (h *RequestHandler) GetOutgoing(c *fiber.Ctx) error {
	status := model.RequestStatus(c.Query("status"))
	switch status {
	case "", model.RequestPending, model.RequestApproved, model.RequestRejected:
	default:
		return c.Status(400).JSON(fiber.Map{"error": "Invalid status"})
	}

	requests, err := h.service.GetOutgoing(currentActor(c), status)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch requests"})
	}
	return c.JSON(requests)
}

// GET /api/v1/purchases
func (h *RequestHandler) GetPurchases(c *fiber.Ctx) error {
	products, err := h.service.GetPurchasedProducts(currentActor(c))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch purchases"})
	}
	return c.JSON(products)
}

func (h *RequestHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, h.service.Approve)
}

func (h *RequestHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, h.service.Reject)
}

func (h *RequestHandler) decide(c *fiber.Ctx, fn func(service.Actor, uuid.UUID) (*model.PurchaseRequest, error)) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	pr, err := fn(currentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Request " + string(pr.Status), "data": pr})
}

// DELETE /api/v1/requests/:id
func (h *RequestHandler) DeleteRequest(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.service.DeleteRequest(currentActor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Request deleted"})
}
