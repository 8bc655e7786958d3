package handler

import (
	"shrimp-trace/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

// GetCatalog lists every product on the marketplace
// GET /api/v1/catalog
func (h *ProductHandler) GetCatalog(c *fiber.Ctx) error {
	if code := c.Query("support_code"); code != "" {
		product, err := h.service.GetBySupportCode(code)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(product)
	}

	products, err := h.service.GetCatalog()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch catalog"})
	}
	return c.JSON(products)
}

func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetOwnProducts(currentActor(c))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch products"})
	}
	return c.JSON(products)
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.service.CreateProduct(currentActor(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req service.UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.service.UpdateProduct(c.UserContext(), currentActor(c), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": product})
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.service.DeleteProduct(c.UserContext(), currentActor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

// GetMovements lists the stock journal of a product, newest first
// GET /api/v1/products/:id/movements
func (h *ProductHandler) GetMovements(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	movements, err := h.service.GetMovements(currentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(movements)
}
