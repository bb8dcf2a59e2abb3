// Package report arma la representación AC-21 de un albarán a partir del libro (solo lectura).
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/custodia-api/internal/application/ledger"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
)

// DocumentReader lectura de un albarán con sus movimientos.
type DocumentReader interface {
	GetDocument(ctx context.Context, documentID string) (*ledger.DocumentDetail, error)
}

// AC21Renderer convierte la carga AC-21 en un PDF.
type AC21Renderer interface {
	RenderAC21(ctx context.Context, doc *AC21) ([]byte, error)
}

// Party interviniente del albarán (remitente, destinatario, testigo...).
type Party struct {
	Role     string `json:"role"`
	Name     string `json:"name"`
	IDNumber string `json:"id_number"`
	Unit     string `json:"unit"`
}

// AC21Line una línea de material del albarán.
type AC21Line struct {
	CatalogCode  string
	SerialNumber string
	Quantity     decimal.Decimal
	State        entity.CustodyState
	Location     string
	Notes        string
}

// AC21 datos necesarios para pintar el formulario.
type AC21 struct {
	Number      string
	Type        entity.DocumentType
	Direction   entity.TransferDirection
	Date        time.Time
	PageNumber  int
	TotalPages  int
	Origin      string
	Destination string
	Notes       string
	Parties     []Party
	Accessories []string
	Lines       []AC21Line
}

// metadata es la parte del JSON opaco del albarán que el formulario muestra.
type metadata struct {
	Parties     []Party  `json:"parties"`
	Accessories []string `json:"accessories"`
}

// UseCase genera el AC-21 de un albarán.
type UseCase struct {
	reader   DocumentReader
	renderer AC21Renderer
}

// NewUseCase construye el caso de uso.
func NewUseCase(reader DocumentReader, renderer AC21Renderer) *UseCase {
	return &UseCase{reader: reader, renderer: renderer}
}

// Build arma la carga AC-21. El metadata ilegible se ignora: no bloquea el informe.
func (uc *UseCase) Build(ctx context.Context, documentID string) (*AC21, error) {
	detail, err := uc.reader.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	d := detail.Document
	out := &AC21{
		Number:      d.Number,
		Type:        d.Type,
		Direction:   d.Direction,
		Date:        d.Date,
		PageNumber:  d.PageNumber,
		TotalPages:  d.TotalPages,
		Origin:      d.Origin,
		Destination: d.Destination,
		Notes:       d.Notes,
		Lines:       make([]AC21Line, 0, len(detail.Movements)),
	}
	if len(d.Metadata) > 0 {
		var md metadata
		if json.Unmarshal(d.Metadata, &md) == nil {
			out.Parties = md.Parties
			out.Accessories = md.Accessories
		}
	}
	for _, m := range detail.Movements {
		out.Lines = append(out.Lines, AC21Line{
			CatalogCode:  m.CatalogCode,
			SerialNumber: m.SerialNumber,
			Quantity:     m.Quantity,
			State:        m.StateAfter,
			Location:     m.Location,
			Notes:        m.Notes,
		})
	}
	return out, nil
}

// DownloadPDF devuelve el PDF y un nombre de archivo sugerido.
func (uc *UseCase) DownloadPDF(ctx context.Context, documentID string) ([]byte, string, error) {
	// 1. Cargar datos
	doc, err := uc.Build(ctx, documentID)
	if err != nil {
		return nil, "", err
	}
	// 2. Pintar
	pdfBytes, err := uc.renderer.RenderAC21(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("ac21: generación fallida: %w", err)
	}
	return pdfBytes, fmt.Sprintf("ac21_%s.pdf", doc.Number), nil
}
