package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/custodia-api/internal/application/dto"
	"github.com/jhoicas/custodia-api/internal/application/ledger"
	"github.com/jhoicas/custodia-api/internal/application/report"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
	"github.com/jhoicas/custodia-api/internal/domain/repository"
)

// DocumentHandler maneja albaranes: alta, líneas, consulta, borrado y AC-21 (protegido).
type DocumentHandler struct {
	ledger *ledger.Engine
	report *report.UseCase
	log    zerolog.Logger
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(l *ledger.Engine, r *report.UseCase, log zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{ledger: l, report: r, log: log}
}

// Create godoc
// @Summary      Registrar albarán
// @Description  Crea el albarán y un movimiento por línea. Con principal_document_id se añade una página de continuación.
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateDocumentRequest  true  "cabecera y líneas"
// @Success      201   {object}  dto.LedgerResultResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/documents [post]
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDocumentRequest
	if err := bindAndValidate(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.ledger.CreateDocument(c.Context(), ledger.CreateDocumentInput{
		Number:      in.Number,
		Type:        entity.DocumentType(in.Type),
		Direction:   entity.TransferDirection(in.Direction),
		Date:        parseDate(in.Date),
		PrincipalID: in.PrincipalID,
		Origin:      in.Origin,
		Destination: in.Destination,
		Notes:       in.Notes,
		Metadata:    in.Metadata,
		CreatedBy:   GetUserID(c),
		Items:       toLineItems(in.Items),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toResultResponse(res))
}

// AppendItems godoc
// @Summary      Añadir líneas a un albarán
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del albarán"
// @Param        body  body  dto.AppendItemsRequest  true  "líneas"
// @Success      200   {object}  dto.LedgerResultResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/items [post]
func (h *DocumentHandler) AppendItems(c *fiber.Ctx) error {
	var in dto.AppendItemsRequest
	if err := bindAndValidate(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.ledger.AppendLineItems(c.Context(), c.Params("id"), toLineItems(in.Items))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toResultResponse(res))
}

// Get godoc
// @Summary      Detalle de albarán
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del albarán"
// @Success      200 {object}  dto.DocumentDetailResponse
// @Failure      404 {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	detail, err := h.ledger.GetDocument(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.DocumentDetailResponse{
		Document:  dto.ToDocumentResponse(detail.Document),
		Movements: dto.ToMovementResponses(detail.Movements),
		Pages:     dto.ToDocumentResponses(detail.Pages),
	})
}

// List godoc
// @Summary      Listar albaranes
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        type       query  string  false  "INVENTORY | TRANSFER | DESTRUCTION | HAND_DELIVERY | OTHER"
// @Param        direction  query  string  false  "INCOMING | OUTGOING"
// @Param        number     query  string  false  "prefijo del número"
// @Param        from       query  string  false  "fecha desde (YYYY-MM-DD)"
// @Param        to         query  string  false  "fecha hasta (YYYY-MM-DD)"
// @Success      200 {object}  map[string]interface{}
// @Failure      400 {object}  dto.ErrorResponse
// @Router       /api/documents [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	var q dto.DocumentListQuery
	if err := bindQuery(c, &q); err != nil {
		return writeError(c, h.log, err)
	}
	f := repository.DocumentFilter{
		Type:         entity.DocumentType(q.Type),
		Direction:    entity.TransferDirection(q.Direction),
		NumberPrefix: q.Number,
		Limit:        q.Limit,
		Offset:       q.Offset,
	}
	if q.From != "" {
		t := parseDate(q.From)
		f.From = &t
	}
	if q.To != "" {
		t := parseDate(q.To)
		f.To = &t
	}
	list, err := h.ledger.ListDocuments(c.Context(), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"total":     len(list),
		"documents": dto.ToDocumentResponses(list),
	})
}

// Delete godoc
// @Summary      Eliminar albarán
// @Description  Deshace su efecto sobre el inventario. Un principal arrastra sus continuaciones.
// @Tags         documents
// @Security     Bearer
// @Param        id  path  string  true  "ID del albarán"
// @Success      204
// @Failure      403 {object}  dto.ErrorResponse
// @Failure      404 {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [delete]
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	if err := h.ledger.DeleteDocument(c.Context(), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DownloadAC21 godoc
// @Summary      Descargar AC-21 en PDF
// @Tags         documents
// @Security     Bearer
// @Produce      application/pdf
// @Param        id  path  string  true  "ID del albarán"
// @Success      200 {file}    file
// @Failure      404 {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/ac21.pdf [get]
func (h *DocumentHandler) DownloadAC21(c *fiber.Ctx) error {
	pdfBytes, filename, err := h.report.DownloadPDF(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}

func toLineItems(in []dto.LineItemRequest) []ledger.LineItem {
	out := make([]ledger.LineItem, 0, len(in))
	for _, it := range in {
		out = append(out, ledger.LineItem{
			CatalogCode:  it.CatalogCode,
			SerialNumber: it.SerialNumber,
			Quantity:     it.Quantity,
			Description:  it.Description,
			Location:     it.Location,
			Notes:        it.Notes,
		})
	}
	return out
}

func toResultResponse(res *ledger.Result) dto.LedgerResultResponse {
	return dto.LedgerResultResponse{
		Document:   dto.ToDocumentResponse(res.Document),
		Movements:  dto.ToMovementResponses(res.Movements),
		Duplicates: res.Duplicates,
	}
}

// parseDate interpreta YYYY-MM-DD ya validado; vacío devuelve fecha cero.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.ParseInLocation(dto.DateLayout, s, time.UTC)
	return t
}
