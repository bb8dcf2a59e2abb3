//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/custodia-api/internal/application/ledger"
	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
	"github.com/jhoicas/custodia-api/internal/infrastructure/postgres"
	"github.com/jhoicas/custodia-api/internal/infrastructure/postgres/testhelper"
)

func newEngine(t *testing.T) *ledger.Engine {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return ledger.NewEngine(postgres.NewTxRunner(pool, 2*time.Second), zerolog.Nop(), ledger.WithConflictRetries(5))
}

func createDoc(t *testing.T, e *ledger.Engine, number string, typ entity.DocumentType, dir entity.TransferDirection) *entity.Document {
	t.Helper()
	res, err := e.CreateDocument(context.Background(), ledger.CreateDocumentInput{
		Number:      number,
		Type:        typ,
		Direction:   dir,
		Date:        time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Destination: "Almacén central",
		Items:       []ledger.LineItem{{CatalogCode: "P001", SerialNumber: "S001"}},
	})
	require.NoError(t, err)
	return res.Document
}

func TestPostgres_DeshacerCadena(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	a := createDoc(t, e, "INV-1", entity.DocumentTypeInventory, "")
	b := createDoc(t, e, "TR-1", entity.DocumentTypeTransfer, entity.DirectionIncoming)
	c := createDoc(t, e, "", entity.DocumentTypeTransfer, entity.DirectionOutgoing)
	assert.Equal(t, "S2025-0001", c.Number)

	snap, err := e.GetSnapshot(ctx, "P001", "S001")
	require.NoError(t, err)
	assert.Equal(t, entity.StateOutOfCustody, snap.State)

	require.NoError(t, e.DeleteDocument(ctx, c.ID))
	snap, err = e.GetSnapshot(ctx, "P001", "S001")
	require.NoError(t, err)
	assert.Equal(t, entity.StateInCustody, snap.State)

	require.NoError(t, e.DeleteDocument(ctx, b.ID))
	require.NoError(t, e.DeleteDocument(ctx, a.ID))
	_, err = e.GetSnapshot(ctx, "P001", "S001")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPostgres_DuplicadoNoAbortaElLote(t *testing.T) {
	e := newEngine(t)
	res, err := e.CreateDocument(context.Background(), ledger.CreateDocumentInput{
		Number: "INV-2",
		Type:   entity.DocumentTypeInventory,
		Items: []ledger.LineItem{
			{CatalogCode: "P001", SerialNumber: "S001"},
			{CatalogCode: "P001", SerialNumber: "S001"},
			{CatalogCode: "P002"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, res.Movements, 2)
	assert.Len(t, res.Duplicates, 1)
}

func TestPostgres_NumeracionConcurrente(t *testing.T) {
	e := newEngine(t)
	const n = 20

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := e.NextOutboundNumber(context.Background(), 2025)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[num], "repetido %s", num)
			seen[num] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
	assert.True(t, seen["S2025-0020"])
}

func TestPostgres_ContinuacionYBorradoDeGrupo(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := createDoc(t, e, "AC-7", entity.DocumentTypeInventory, "")

	res, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{
		PrincipalID: p.ID,
		Items:       []ledger.LineItem{{CatalogCode: "P001", SerialNumber: "S002"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "AC-7-P2", res.Document.Number)

	detail, err := e.GetDocument(ctx, p.ID)
	require.NoError(t, err)
	for _, pg := range detail.Pages {
		assert.Equal(t, 2, pg.TotalPages)
	}

	require.NoError(t, e.DeleteDocument(ctx, p.ID))
	list, err := e.ListCatalog(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list, "inventario borrado libera el catálogo")
}

func TestPostgres_AnadirLineasMientrasSeBorraElGrupo(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		p := createDoc(t, e, fmt.Sprintf("AC-%d", 100+i), entity.DocumentTypeInventory, "")
		res, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{
			PrincipalID: p.ID,
			Items:       []ledger.LineItem{{CatalogCode: "P001", SerialNumber: "S002"}},
		})
		require.NoError(t, err)
		cont := res.Document

		var (
			wg        sync.WaitGroup
			appendErr error
			deleteErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, appendErr = e.AppendLineItems(ctx, cont.ID, []ledger.LineItem{{CatalogCode: "P009", SerialNumber: "X"}})
		}()
		go func() {
			defer wg.Done()
			deleteErr = e.DeleteDocument(ctx, p.ID)
		}()
		wg.Wait()

		require.NoError(t, deleteErr)
		if appendErr != nil {
			assert.True(t, errors.Is(appendErr, domain.ErrNotFound), "iteración %d: %v", i, appendErr)
		}
		_, err = e.GetSnapshot(ctx, "P009", "X")
		assert.True(t, errors.Is(err, domain.ErrNotFound), "iteración %d: ninguna línea sobrevive al grupo: %v", i, err)
		hist, err := e.GetMovementHistory(ctx, "P001", "S001")
		if err == nil {
			assert.Empty(t, hist, "iteración %d", i)
		}
	}
}

func TestPostgres_BorrarInventarioConservaInstantaneaSinMovimientos(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	tr, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{
		Number:    "TR-IN",
		Type:      entity.DocumentTypeTransfer,
		Direction: entity.DirectionIncoming,
		Items:     []ledger.LineItem{{CatalogCode: "P001", SerialNumber: "S002"}},
	})
	require.NoError(t, err)
	inv := createDoc(t, e, "INV-1", entity.DocumentTypeInventory, "")

	require.NoError(t, e.DeleteDocument(ctx, tr.Document.ID))
	require.NoError(t, e.DeleteDocument(ctx, inv.ID))

	snap, err := e.GetSnapshot(ctx, "P001", "S002")
	require.NoError(t, err)
	assert.Equal(t, entity.StateOutOfCustody, snap.State)
}
