package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/custodia-api/internal/application/dto"
	"github.com/jhoicas/custodia-api/internal/application/ledger"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
	"github.com/jhoicas/custodia-api/internal/domain/repository"
)

// InventoryHandler consultas de la proyección de inventario y corrección de movimientos (protegido).
type InventoryHandler struct {
	ledger *ledger.Engine
	log    zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(l *ledger.Engine, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{ledger: l, log: log}
}

// ListSnapshots godoc
// @Summary      Inventario actual
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        state     query  string  false  "IN_CUSTODY | OUT_OF_CUSTODY"
// @Param        code      query  string  false  "prefijo de código"
// @Param        location  query  string  false  "ubicación"
// @Success      200 {object}  map[string]interface{}
// @Failure      400 {object}  dto.ErrorResponse
// @Router       /api/inventory/snapshots [get]
func (h *InventoryHandler) ListSnapshots(c *fiber.Ctx) error {
	var q dto.SnapshotListQuery
	if err := bindQuery(c, &q); err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.ledger.ListSnapshots(c.Context(), repository.SnapshotFilter{
		State:       entity.CustodyState(q.State),
		CatalogCode: q.Code,
		Location:    q.Location,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.SnapshotResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.ToSnapshotResponse(s))
	}
	return c.JSON(fiber.Map{"total": len(out), "snapshots": out})
}

// GetSnapshot godoc
// @Summary      Estado de un equipo
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        code    query  string  true   "código de catálogo"
// @Param        serial  query  string  false  "número de serie"
// @Success      200 {object}  dto.SnapshotResponse
// @Failure      404 {object}  dto.ErrorResponse
// @Router       /api/inventory/snapshot [get]
func (h *InventoryHandler) GetSnapshot(c *fiber.Ctx) error {
	var q dto.PairQuery
	if err := bindQuery(c, &q); err != nil {
		return writeError(c, h.log, err)
	}
	s, err := h.ledger.GetSnapshot(c.Context(), q.Code, q.Serial)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToSnapshotResponse(s))
}

// History godoc
// @Summary      Historial de movimientos de un equipo
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        code    query  string  true   "código de catálogo"
// @Param        serial  query  string  false  "número de serie"
// @Success      200 {array}   dto.MovementResponse
// @Failure      404 {object}  dto.ErrorResponse
// @Router       /api/inventory/history [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	var q dto.PairQuery
	if err := bindQuery(c, &q); err != nil {
		return writeError(c, h.log, err)
	}
	movs, err := h.ledger.GetMovementHistory(c.Context(), q.Code, q.Serial)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToMovementResponses(movs))
}

// UpdateMovement godoc
// @Summary      Corregir cantidad o notas de un movimiento
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del movimiento"
// @Param        body  body  dto.UpdateMovementRequest  true  "quantity y/o notes"
// @Success      200 {object}  dto.MovementResponse
// @Failure      400 {object}  dto.ErrorResponse
// @Failure      404 {object}  dto.ErrorResponse
// @Router       /api/movements/{id} [patch]
func (h *InventoryHandler) UpdateMovement(c *fiber.Ctx) error {
	var in dto.UpdateMovementRequest
	if err := bindAndValidate(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	m, err := h.ledger.UpdateMovement(c.Context(), c.Params("id"), ledger.MovementCorrection{
		Quantity: in.Quantity,
		Notes:    in.Notes,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToMovementResponse(m))
}
