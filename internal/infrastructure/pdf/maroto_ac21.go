// Package pdf pinta el formulario AC-21 (albarán de material cifrado) con Maroto v2.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: ALBARÁN AC-21 + tipo   │  N° + Fecha + Página      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ORIGEN / DESTINO                                            │
//	│  TABLA: Código | N° Serie | Cant | Estado | Ubicación       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ACCESORIOS + OBSERVACIONES                                  │
//	│  FIRMAS: una columna por interviniente                       │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/custodia-api/internal/application/report"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var _ report.AC21Renderer = (*MarotoAC21Renderer)(nil)

// MarotoAC21Renderer implementa report.AC21Renderer.
type MarotoAC21Renderer struct {
	issuer string
}

// NewMarotoAC21Renderer construye el generador. issuer aparece como autor del PDF.
func NewMarotoAC21Renderer(issuer string) *MarotoAC21Renderer {
	return &MarotoAC21Renderer{issuer: issuer}
}

// RenderAC21 genera el PDF y devuelve sus bytes.
func (g *MarotoAC21Renderer) RenderAC21(_ context.Context, doc *report.AC21) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Albarán AC-21 "+doc.Number, true).
		WithAuthor(g.issuer, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(routeRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableRows(doc.Lines)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(notesRows(doc)...)

	if len(doc.Parties) > 0 {
		m.AddRows(line.NewRow(6))
		m.AddRows(signatureRow(doc.Parties))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

func headerRow(doc *report.AC21) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New("ALBARÁN AC-21", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(typeLabel(doc.Type, doc.Direction), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("N° "+doc.Number, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 1,
			}),
			text.New("Fecha: "+doc.Date.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
			text.New(fmt.Sprintf("Página %d de %d", doc.PageNumber, doc.TotalPages), props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
		),
	)
}

func routeRow(doc *report.AC21) core.Row {
	block := func(title, value string) core.Col {
		return col.New(6).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(value, "-"), props.Text{Size: 9, Top: 6}),
		)
	}
	return row.New(13).Add(block("ORIGEN", doc.Origin), block("DESTINO", doc.Destination))
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Código", 3, align.Left),
		h("N° Serie", 3, align.Left),
		h("Cant.", 1, align.Center),
		h("Estado", 2, align.Center),
		h("Ubicación", 3, align.Left),
	)
}

func tableRows(lines []report.AC21Line) []core.Row {
	out := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		out = append(out, row.New(7).Add(
			col.New(3).Add(text.New(l.CatalogCode, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(3).Add(text.New(nonEmpty(l.SerialNumber, "s/n"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(l.Quantity.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(stateLabel(l.State), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(3).Add(text.New(l.Location, props.Text{Size: 8, Top: 1, Left: 1})),
		))
	}
	return out
}

func notesRows(doc *report.AC21) []core.Row {
	var rows []core.Row
	if len(doc.Accessories) > 0 {
		rows = append(rows, row.New(10).Add(col.New(12).Add(
			text.New("ACCESORIOS", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(strings.Join(doc.Accessories, ", "), props.Text{Size: 8, Top: 5}),
		)))
	}
	if doc.Notes != "" {
		rows = append(rows, row.New(12).Add(col.New(12).Add(
			text.New("OBSERVACIONES", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(doc.Notes, props.Text{Size: 8, Top: 5}),
		)))
	}
	return rows
}

// signatureRow: hasta cuatro intervinientes por fila (12 columnas).
func signatureRow(parties []report.Party) core.Row {
	if len(parties) > 4 {
		parties = parties[:4]
	}
	size := 12 / len(parties)
	cols := make([]core.Col, 0, len(parties))
	for _, p := range parties {
		cols = append(cols, col.New(size).Add(
			text.New("______________________", props.Text{Size: 8, Align: align.Center, Top: 8}),
			text.New(p.Name, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Center, Top: 13}),
			text.New(strings.ToUpper(p.Role)+" "+p.IDNumber, props.Text{Size: 7, Align: align.Center, Top: 17, Color: colorGray}),
		))
	}
	return row.New(24).Add(cols...)
}

func typeLabel(t entity.DocumentType, d entity.TransferDirection) string {
	var s string
	switch t {
	case entity.DocumentTypeInventory:
		return "Inventario"
	case entity.DocumentTypeTransfer:
		s = "Traslado"
	case entity.DocumentTypeDestruction:
		s = "Destrucción"
	case entity.DocumentTypeHandDelivery:
		s = "Entrega en mano"
	default:
		s = "Otro"
	}
	if d == entity.DirectionOutgoing {
		return s + " (salida)"
	}
	return s + " (entrada)"
}

func stateLabel(s entity.CustodyState) string {
	if s == entity.StateInCustody {
		return "En custodia"
	}
	return "Fuera de custodia"
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
