package handler

import (
	"shrimp-trace/internal/middleware"
	"shrimp-trace/internal/model"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles every HTTP handler the API exposes.
type Handlers struct {
	Auth      *AuthHandler
	Company   *CompanyHandler
	Product   *ProductHandler
	Request   *RequestHandler
	Package   *PackageHandler
	Dashboard *DashboardHandler
}

// RegisterRoutes mounts the /api/v1 tree on app.
func RegisterRoutes(app *fiber.App, h Handlers, sessions middleware.SessionStore) {
	api := app.Group("/api/v1")
	priv := middleware.RequirePrivilege

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/operator/login", h.Auth.OperatorLogin)
	auth.Post("/validate-token", h.Auth.ValidateToken)
	auth.Post("/logout", middleware.RequireAuth(sessions), h.Auth.Logout)

	api.Get("/catalog", h.Product.GetCatalog)
	api.Get("/companies", h.Company.GetFarmingCompanies)
	api.Get("/trace/:batch", h.Package.LookupTrace)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(sessions))

	protected.Get("/profile", h.Company.GetProfile)
	protected.Put("/profile", h.Company.UpdateProfile)
	protected.Get("/dashboard/stats", priv(model.PrivDashboardView), h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/package-movement", priv(model.PrivDashboardView), h.Dashboard.GetPackageMovement)

	// Farming company
	protected.Get("/products", priv(model.PrivProductView), h.Product.GetProducts)
	protected.Post("/products", priv(model.PrivProductCreate), h.Product.CreateProduct)
	protected.Put("/products/:id", priv(model.PrivProductUpdate), h.Product.UpdateProduct)
	protected.Delete("/products/:id", priv(model.PrivProductDelete), h.Product.DeleteProduct)
	protected.Get("/products/:id/movements", priv(model.PrivProductUpdate), h.Product.GetMovements)
	protected.Get("/requests/incoming", priv(model.PrivRequestReview), h.Request.GetIncoming)
	protected.Post("/requests/:id/approve", priv(model.PrivRequestReview), h.Request.Approve)
	protected.Post("/requests/:id/reject", priv(model.PrivRequestReview), h.Request.Reject)
	protected.Delete("/requests/:id", priv(model.PrivRequestReview), h.Request.DeleteRequest)

	// Exporting company
	protected.Post("/requests", priv(model.PrivRequestCreate), h.Request.CreateRequest)
	protected.Get("/requests/outgoing", priv(model.PrivRequestCreate), h.Request.GetOutgoing)
	protected.Get("/purchases", priv(model.PrivRequestCreate), h.Request.GetPurchases)
	protected.Post("/packages", priv(model.PrivPackageCreate), h.Package.CreatePackage)
	protected.Get("/packages", priv(model.PrivPackageView), h.Package.GetPackages)
	protected.Get("/packages/:id", priv(model.PrivPackageView), h.Package.GetPackage)
	protected.Get("/packages/:id/qr", priv(model.PrivPackageView), h.Package.DownloadQR)

	// Operator
	admin := protected.Group("/admin")
	admin.Get("/packages", priv(model.PrivPackageViewAll), h.Package.GetAllPackages)
	admin.Get("/packages/pending-artifacts", priv(model.PrivPackageViewAll), h.Package.GetPendingArtifacts)
	admin.Post("/packages/qr/regenerate", priv(model.PrivPackageRegenerQR), h.Package.RegenerateQRBulk)
	admin.Post("/packages/:id/qr", priv(model.PrivPackageRegenerQR), h.Package.RegenerateQR)
}
