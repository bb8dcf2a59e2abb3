package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/custodia-api/internal/application/dto"
	"github.com/jhoicas/custodia-api/internal/application/ledger"
)

// CatalogHandler catálogo de productos (protegido).
type CatalogHandler struct {
	ledger *ledger.Engine
	log    zerolog.Logger
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(l *ledger.Engine, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{ledger: l, log: log}
}

// List godoc
// @Summary      Listar catálogo
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "máximo 500"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200 {object}  map[string]interface{}
// @Router       /api/catalog [get]
func (h *CatalogHandler) List(c *fiber.Ctx) error {
	var q dto.PageQuery
	if err := bindQuery(c, &q); err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.ledger.ListCatalog(c.Context(), q.Limit, q.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.CatalogEntryResponse, 0, len(list))
	for _, ce := range list {
		out = append(out, dto.ToCatalogEntryResponse(ce))
	}
	return c.JSON(fiber.Map{"total": len(out), "entries": out})
}

// AssignType godoc
// @Summary      Asignar tipo a una entrada de catálogo
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        code  path  string                        true  "código"
// @Param        body  body  dto.AssignCatalogTypeRequest  true  "tipo"
// @Success      200 {object}  dto.CatalogEntryResponse
// @Failure      404 {object}  dto.ErrorResponse
// @Router       /api/catalog/{code}/type [put]
func (h *CatalogHandler) AssignType(c *fiber.Ctx) error {
	var in dto.AssignCatalogTypeRequest
	if err := bindAndValidate(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	ce, err := h.ledger.AssignCatalogType(c.Context(), c.Params("code"), in.Type)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToCatalogEntryResponse(ce))
}
