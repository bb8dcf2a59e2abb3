package report_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/custodia-api/internal/application/ledger"
	"github.com/jhoicas/custodia-api/internal/application/report"
	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
	"github.com/jhoicas/custodia-api/internal/infrastructure/memory"
)

type fakeRenderer struct {
	got *report.AC21
	err error
}

func (f *fakeRenderer) RenderAC21(_ context.Context, doc *report.AC21) ([]byte, error) {
	f.got = doc
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

func seed(t *testing.T) (*ledger.Engine, *entity.Document) {
	t.Helper()
	e := ledger.NewEngine(memory.NewStore(), zerolog.Nop())
	md, _ := json.Marshal(map[string]any{
		"parties": []map[string]string{
			{"role": "remitente", "name": "Ana Ruiz", "id_number": "123"},
		},
		"accessories": []string{"cable de carga"},
	})
	res, err := e.CreateDocument(context.Background(), ledger.CreateDocumentInput{
		Number:      "AC-100",
		Type:        entity.DocumentTypeTransfer,
		Direction:   entity.DirectionIncoming,
		Date:        time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC),
		Origin:      "Unidad norte",
		Destination: "Almacén central",
		Metadata:    md,
		Items: []ledger.LineItem{
			{CatalogCode: "p001", SerialNumber: "s1"},
			{CatalogCode: "P002", SerialNumber: "S2", Location: "Caja fuerte 2"},
		},
	})
	require.NoError(t, err)
	return e, res.Document
}

func TestBuild_ArmaCargaDesdeElLibro(t *testing.T) {
	e, doc := seed(t)
	uc := report.NewUseCase(e, &fakeRenderer{})

	ac, err := uc.Build(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, "AC-100", ac.Number)
	assert.Equal(t, 1, ac.PageNumber)
	assert.Equal(t, 1, ac.TotalPages)
	require.Len(t, ac.Parties, 1)
	assert.Equal(t, "Ana Ruiz", ac.Parties[0].Name)
	assert.Equal(t, []string{"cable de carga"}, ac.Accessories)
	require.Len(t, ac.Lines, 2)
	assert.Equal(t, "P001", ac.Lines[0].CatalogCode)
	assert.Equal(t, entity.StateInCustody, ac.Lines[0].State)
	assert.Equal(t, "Almacén central", ac.Lines[0].Location)
	assert.Equal(t, "Caja fuerte 2", ac.Lines[1].Location)
}

func TestBuild_MetadataIlegibleNoBloquea(t *testing.T) {
	e := ledger.NewEngine(memory.NewStore(), zerolog.Nop())
	res, err := e.CreateDocument(context.Background(), ledger.CreateDocumentInput{
		Number:   "INV-9",
		Type:     entity.DocumentTypeInventory,
		Metadata: json.RawMessage(`{"parties": "no es una lista"}`),
		Items:    []ledger.LineItem{{CatalogCode: "P001"}},
	})
	require.NoError(t, err)

	ac, err := report.NewUseCase(e, &fakeRenderer{}).Build(context.Background(), res.Document.ID)
	require.NoError(t, err)
	assert.Empty(t, ac.Parties)
	assert.Len(t, ac.Lines, 1)
}

func TestDownloadPDF(t *testing.T) {
	e, doc := seed(t)
	r := &fakeRenderer{}
	uc := report.NewUseCase(e, r)

	b, name, err := uc.DownloadPDF(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "ac21_AC-100.pdf", name)
	assert.Equal(t, "%PDF-fake", string(b))
	require.NotNil(t, r.got)
	assert.Equal(t, "AC-100", r.got.Number)
}

func TestDownloadPDF_Errores(t *testing.T) {
	e, doc := seed(t)

	_, _, err := report.NewUseCase(e, &fakeRenderer{}).DownloadPDF(context.Background(), "no-existe")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	boom := errors.New("fuente no disponible")
	_, _, err = report.NewUseCase(e, &fakeRenderer{err: boom}).DownloadPDF(context.Background(), doc.ID)
	assert.ErrorIs(t, err, boom)
}
