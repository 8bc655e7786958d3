package handler

import (
	"errors"
	"fmt"

	"shrimp-trace/internal/model"
	"shrimp-trace/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PackageHandler struct {
	service service.PackageService
}

func NewPackageHandler(s service.PackageService) *PackageHandler {
	return &PackageHandler{service: s}
}

func toResponses(pkgs []model.Package) []model.PackageResponse {
	out := make([]model.PackageResponse, 0, len(pkgs))
	for i := range pkgs {
		out = append(out, pkgs[i].ToResponse())
	}
	return out
}

// CreatePackage splits a package off a purchased product.
// A package whose QR image could not be rendered is still created; the
// response carries a warning and artifact_status "pending".
// POST /api/v1/packages
func (h *PackageHandler) CreatePackage(c *fiber.Ctx) error {
	var req service.CreatePackageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	pkg, err := h.service.CreatePackage(c.UserContext(), currentActor(c), &req)
	if err != nil && !(pkg != nil && errors.Is(err, service.ErrArtifactGenerationFailed)) {
		return respondError(c, err)
	}

	body := fiber.Map{"message": "Package created", "data": pkg.ToResponse()}
	if err != nil {
		body["warning"] = err.Error()
	}
	return c.Status(201).JSON(body)
}

// GET /api/v1/packages
func (h *PackageHandler) GetPackages(c *fiber.Ctx) error {
	pkgs, err := h.service.ListPackages(currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toResponses(pkgs))
}

// GET /api/v1/packages/:id
func (h *PackageHandler) GetPackage(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	pkg, err := h.service.GetPackage(currentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pkg.ToResponse())
}

// DownloadQR serves the QR image as qr_<batch>.png
// GET /api/v1/packages/:id/qr
func (h *PackageHandler) DownloadQR(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	art, err := h.service.GetArtifact(c.UserContext(), currentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, art.Filename))
	return c.Send(art.PNG)
}

// LookupTrace is what a scanned label resolves to. No authentication.
// GET /api/v1/trace/:batch
func (h *PackageHandler) LookupTrace(c *fiber.Ctx) error {
	rec, err := h.service.LookupTrace(c.UserContext(), c.Params("batch"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rec)
}

// GET /api/v1/admin/packages
func (h *PackageHandler) GetAllPackages(c *fiber.Ctx) error {
	pkgs, err := h.service.ListAll()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch packages"})
	}
	return c.JSON(toResponses(pkgs))
}

// GET /api/v1/admin/packages/pending-artifacts
func (h *PackageHandler) GetPendingArtifacts(c *fiber.Ctx) error {
	pkgs, err := h.service.ListPendingArtifacts()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch packages"})
	}
	return c.JSON(toResponses(pkgs))
}

// RegenerateQR re-renders one package's QR image. With ?missing_only=true
// a package that already has a ready image is returned untouched.
// POST /api/v1/admin/packages/:id/qr
func (h *PackageHandler) RegenerateQR(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	regenerate, message := h.service.RegenerateArtifact, "QR code regenerated"
	if c.QueryBool("missing_only") {
		regenerate, message = h.service.EnsureArtifact, "QR code available"
	}
	pkg, err := regenerate(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": message, "data": pkg.ToResponse()})
}

// RegenerateQRRequest lists packages to re-render; empty means all pending
type RegenerateQRRequest struct {
	PackageIDs []uuid.UUID `json:"package_ids"`
}

// POST /api/v1/admin/packages/qr/regenerate
func (h *PackageHandler) RegenerateQRBulk(c *fiber.Ctx) error {
	var req RegenerateQRRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
		}
	}

	results, err := h.service.RegenerateArtifacts(c.UserContext(), req.PackageIDs)
	if err != nil {
		return respondError(c, err)
	}

	failed := 0
	for _, r := range results {
		if !r.Ready {
			failed++
		}
	}
	return c.JSON(fiber.Map{
		"total":   len(results),
		"failed":  failed,
		"results": results,
	})
}
