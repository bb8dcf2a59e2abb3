package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/custodia-api/internal/application/auth"
	"github.com/jhoicas/custodia-api/internal/application/ledger"
	"github.com/jhoicas/custodia-api/internal/application/report"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *ledger.Engine
	Report    *report.UseCase
	AuthUC    *auth.AuthUseCase
	JWTSecret string
	Log       zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC, deps.Log)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	writers := RequireRole(RoleAdmin, RoleCustodian)

	// Albaranes
	docs := protected.Group("/documents")
	docHandler := NewDocumentHandler(deps.Ledger, deps.Report, deps.Log)
	docs.Post("/", writers, docHandler.Create)
	docs.Get("/", docHandler.List)
	docs.Get("/:id", docHandler.Get)
	docs.Get("/:id/ac21.pdf", docHandler.DownloadAC21)
	docs.Post("/:id/items", writers, docHandler.AppendItems)
	docs.Delete("/:id", RequireRole(RoleAdmin), docHandler.Delete)

	// Inventario y movimientos
	invHandler := NewInventoryHandler(deps.Ledger, deps.Log)
	inv := protected.Group("/inventory")
	inv.Get("/snapshots", invHandler.ListSnapshots)
	inv.Get("/snapshot", invHandler.GetSnapshot)
	inv.Get("/history", invHandler.History)
	protected.Patch("/movements/:id", writers, invHandler.UpdateMovement)

	// Catálogo
	catHandler := NewCatalogHandler(deps.Ledger, deps.Log)
	cat := protected.Group("/catalog")
	cat.Get("/", catHandler.List)
	cat.Put("/:code/type", writers, catHandler.AssignType)
}
