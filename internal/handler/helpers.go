package handler

import (
	"errors"
	"log"

	"shrimp-trace/internal/middleware"
	"shrimp-trace/internal/model"
	"shrimp-trace/internal/service"
	"shrimp-trace/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// currentActor reads the account RequireAuth stored in Locals.
func currentActor(c *fiber.Ctx) service.Actor {
	var actor service.Actor
	if id, ok := c.Locals(middleware.LocalAccountID).(uuid.UUID); ok {
		actor.ID = id
	}
	if kind, ok := c.Locals(middleware.LocalKind).(model.AccountKind); ok {
		actor.Kind = kind
	}
	if name, ok := c.Locals(middleware.LocalName).(string); ok {
		actor.Name = name
	}
	return actor
}

func parseIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(400, "Invalid "+name)
	}
	return id, nil
}

var statusByError = []struct {
	err    error
	status int
}{
	{service.ErrValidation, 400},
	{service.ErrInvalidQuantity, 400},
	{service.ErrInvalidWeightPrecision, 400},
	{service.ErrInvalidDateFormat, 400},
	{service.ErrExpirationNotAfter, 400},
	{service.ErrOwnProduct, 400},
	{service.ErrInvalidCredentials, 401},
	{service.ErrSessionReplaced, 401},
	{service.ErrAccountInactive, 401},
	{jwt.ErrInvalidToken, 401},
	{service.ErrForbidden, 403},
	{service.ErrWrongCompanyKind, 403},
	{service.ErrPurchaseNotApproved, 403},
	{service.ErrProductNotFound, 404},
	{service.ErrPackageNotFound, 404},
	{service.ErrRequestNotFound, 404},
	{service.ErrCompanyNotFound, 404},
	{service.ErrAccountNotFound, 404},
	{service.ErrDuplicateRequest, 409},
	{service.ErrPhoneTaken, 409},
	{service.ErrDuplicateIdentifier, 409},
	{service.ErrInvalidStatusTransition, 409},
}

// respondError writes err with the status its kind maps to.
func respondError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		return c.Status(409).JSON(fiber.Map{
			"error":     err.Error(),
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	}

	var artErr *service.ArtifactError
	if errors.As(err, &artErr) {
		status := 502
		if errors.Is(err, service.ErrArtifactPending) {
			status = 409
		}
		return c.Status(status).JSON(fiber.Map{
			"error":           err.Error(),
			"batch_number":    artErr.BatchNumber,
			"artifact_status": artErr.Status,
			"artifact_error":  artErr.Reason,
		})
	}

	if errors.Is(err, service.ErrConcurrencyContention) {
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(503).JSON(fiber.Map{"error": service.ErrConcurrencyContention.Error(), "retryable": true})
	}

	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(fiber.Map{"error": err.Error()})
		}
	}

	log.Printf("%s %s: %v", c.Method(), c.Path(), err)
	return c.Status(500).JSON(fiber.Map{"error": "Internal server error"})
}
