package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/custodia-api/internal/application/ledger"
	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
	"github.com/jhoicas/custodia-api/internal/domain/repository"
	"github.com/jhoicas/custodia-api/internal/infrastructure/memory"
)

// tickClock avanza un minuto en cada lectura para que los albaranes queden ordenados.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newEngine(t *testing.T) *ledger.Engine {
	t.Helper()
	clock := &tickClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return ledger.NewEngine(memory.NewStore(), zerolog.Nop(), ledger.WithClock(clock.now))
}

func item(code, serial string) ledger.LineItem {
	return ledger.LineItem{CatalogCode: code, SerialNumber: serial}
}

func create(t *testing.T, e *ledger.Engine, number string, typ entity.DocumentType, dir entity.TransferDirection, items ...ledger.LineItem) *entity.Document {
	t.Helper()
	res, err := e.CreateDocument(context.Background(), ledger.CreateDocumentInput{
		Number:      number,
		Type:        typ,
		Direction:   dir,
		Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Destination: "Almacén central",
		Items:       items,
	})
	require.NoError(t, err)
	require.Empty(t, res.Duplicates)
	return res.Document
}

func stateOf(t *testing.T, e *ledger.Engine, code, serial string) entity.CustodyState {
	t.Helper()
	s, err := e.GetSnapshot(context.Background(), code, serial)
	require.NoError(t, err)
	return s.State
}

func assertNoSnapshot(t *testing.T, e *ledger.Engine, code, serial string) {
	t.Helper()
	_, err := e.GetSnapshot(context.Background(), code, serial)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "no debe existir instantánea: %v", err)
}

func TestInventarioCreaYBorraInstantanea(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	a := create(t, e, "INV-1", entity.DocumentTypeInventory, "", item("P001", "S001"))
	assert.Equal(t, entity.StateInCustody, stateOf(t, e, "P001", "S001"))

	require.NoError(t, e.DeleteDocument(ctx, a.ID))
	assertNoSnapshot(t, e, "P001", "S001")

	// el catálogo auto-creado queda huérfano y se elimina
	list, err := e.ListCatalog(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBorrarEntradaVuelveAlInventario(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	create(t, e, "INV-1", entity.DocumentTypeInventory, "", item("P001", "S001"))
	b := create(t, e, "TR-1", entity.DocumentTypeTransfer, entity.DirectionIncoming, item("P001", "S001"))
	assert.Equal(t, entity.StateInCustody, stateOf(t, e, "P001", "S001"))

	require.NoError(t, e.DeleteDocument(ctx, b.ID))
	assert.Equal(t, entity.StateInCustody, stateOf(t, e, "P001", "S001"), "vuelve al estado del inventario, no a OUT_OF_CUSTODY")
}

func TestDeshacerCadenaCompleta(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	a := create(t, e, "INV-1", entity.DocumentTypeInventory, "", item("P001", "S001"))
	b := create(t, e, "TR-1", entity.DocumentTypeTransfer, entity.DirectionIncoming, item("P001", "S001"))
	c := create(t, e, "", entity.DocumentTypeTransfer, entity.DirectionOutgoing, item("P001", "S001"))
	assert.Equal(t, "S2025-0001", c.Number)
	assert.Equal(t, entity.StateOutOfCustody, stateOf(t, e, "P001", "S001"))

	require.NoError(t, e.DeleteDocument(ctx, c.ID))
	snap, err := e.GetSnapshot(ctx, "P001", "S001")
	require.NoError(t, err)
	assert.Equal(t, entity.StateInCustody, snap.State)

	detail, err := e.GetDocument(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, detail.Movements, 1)
	assert.Equal(t, detail.Movements[0].ID, snap.LastMovementID, "la instantánea apunta al movimiento de B")

	require.NoError(t, e.DeleteDocument(ctx, b.ID))
	assert.Equal(t, entity.StateInCustody, stateOf(t, e, "P001", "S001"))

	require.NoError(t, e.DeleteDocument(ctx, a.ID))
	assertNoSnapshot(t, e, "P001", "S001")
}

func TestBorrarAlbaranDelMedio(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	create(t, e, "INV-1", entity.DocumentTypeInventory, "", item("P001", "S001"))
	b := create(t, e, "TR-1", entity.DocumentTypeTransfer, entity.DirectionOutgoing, item("P001", "S001"))
	create(t, e, "TR-2", entity.DocumentTypeTransfer, entity.DirectionIncoming, item("P001", "S001"))

	require.NoError(t, e.DeleteDocument(ctx, b.ID))
	assert.Equal(t, entity.StateInCustody, stateOf(t, e, "P001", "S001"), "el más reciente sigue siendo la entrada")

	hist, err := e.GetMovementHistory(ctx, "P001", "S001")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, entity.DocumentTypeInventory, hist[0].Type)
	assert.Equal(t, entity.DocumentTypeTransfer, hist[1].Type)
}

func TestSinHistorialRestante_PoliticaPorSentido(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	in := create(t, e, "TR-IN", entity.DocumentTypeTransfer, entity.DirectionIncoming, item("P010", "A"))
	require.NoError(t, e.DeleteDocument(ctx, in.ID))
	assert.Equal(t, entity.StateOutOfCustody, stateOf(t, e, "P010", "A"), "entrada deshecha: nunca se recibió")

	out := create(t, e, "", entity.DocumentTypeTransfer, entity.DirectionOutgoing, item("P011", "B"))
	require.NoError(t, e.DeleteDocument(ctx, out.ID))
	snap, err := e.GetSnapshot(ctx, "P011", "B")
	require.NoError(t, err)
	assert.Equal(t, entity.StateInCustody, snap.State, "salida deshecha: nunca salió")
	assert.Empty(t, snap.LastMovementID)

	d := create(t, e, "DES-1", entity.DocumentTypeDestruction, "", item("P012", "C"))
	assert.Equal(t, entity.DirectionOutgoing, d.Direction)
	assert.Equal(t, entity.StateOutOfCustody, stateOf(t, e, "P012", "C"))
}

func TestContinuacionYTotalPaginas(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	principal := create(t, e, "AC-100", entity.DocumentTypeInventory, "", item("P001", "S001"))
	assert.Equal(t, 1, principal.TotalPages)

	res, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{
		PrincipalID: principal.ID,
		Items:       []ledger.LineItem{item("P001", "S002")},
	})
	require.NoError(t, err)
	cont := res.Document
	assert.Equal(t, "AC-100-P2", cont.Number)
	assert.Equal(t, 2, cont.PageNumber)
	assert.Equal(t, entity.DocumentTypeInventory, cont.Type, "hereda el tipo del principal")

	detail, err := e.GetDocument(ctx, principal.ID)
	require.NoError(t, err)
	require.Len(t, detail.Pages, 2)
	for _, p := range detail.Pages {
		assert.Equal(t, 2, p.TotalPages, p.Number)
	}

	// una tercera página enlazada a través de la continuación
	res3, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{PrincipalID: cont.ID})
	require.NoError(t, err)
	assert.Equal(t, "AC-100-P3", res3.Document.Number)
	assert.Equal(t, principal.ID, res3.Document.PrincipalID)

	// borrar la página del medio no provoca colisión en la siguiente
	require.NoError(t, e.DeleteDocument(ctx, cont.ID))
	detail, err = e.GetDocument(ctx, principal.ID)
	require.NoError(t, err)
	require.Len(t, detail.Pages, 2)
	for _, p := range detail.Pages {
		assert.Equal(t, 2, p.TotalPages, p.Number)
	}
	res4, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{PrincipalID: principal.ID})
	require.NoError(t, err)
	assert.Equal(t, "AC-100-P4", res4.Document.Number)
	assertNoSnapshot(t, e, "P001", "S002")

	// borrar el principal elimina el grupo entero
	require.NoError(t, e.DeleteDocument(ctx, principal.ID))
	_, err = e.GetDocument(ctx, res3.Document.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assertNoSnapshot(t, e, "P001", "S001")
}

func TestAnadirLineasTrasBorrarGrupo(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	principal := create(t, e, "AC-300", entity.DocumentTypeInventory, "", item("P001", "S001"))
	res, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{
		PrincipalID: principal.ID,
		Items:       []ledger.LineItem{item("P001", "S002")},
	})
	require.NoError(t, err)
	cont := res.Document

	out, err := e.AppendLineItems(ctx, cont.ID, []ledger.LineItem{item("P009", "X")})
	require.NoError(t, err)
	assert.Len(t, out.Movements, 1)

	require.NoError(t, e.DeleteDocument(ctx, principal.ID))
	assertNoSnapshot(t, e, "P009", "X")

	_, err = e.AppendLineItems(ctx, cont.ID, []ledger.LineItem{item("P009", "Y")})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assertNoSnapshot(t, e, "P009", "Y")
}

func TestContinuacion_TipoDistintoEsInvalido(t *testing.T) {
	e := newEngine(t)
	principal := create(t, e, "AC-200", entity.DocumentTypeInventory, "")

	_, err := e.CreateDocument(context.Background(), ledger.CreateDocumentInput{
		PrincipalID: principal.ID,
		Type:        entity.DocumentTypeTransfer,
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "type", verr.Errors[0].Field)
}

func TestNumeroConSufijoDeContinuacionRechazado(t *testing.T) {
	e := newEngine(t)
	_, err := e.CreateDocument(context.Background(), ledger.CreateDocumentInput{
		Number: "AC-100-P2",
		Type:   entity.DocumentTypeInventory,
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestNumeroDuplicadoRechazado(t *testing.T) {
	e := newEngine(t)
	create(t, e, "AC-1", entity.DocumentTypeInventory, "")
	_, err := e.CreateDocument(context.Background(), ledger.CreateDocumentInput{Number: "AC-1", Type: entity.DocumentTypeInventory})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestNextOutboundNumber_Secuencial(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	n1, err := e.NextOutboundNumber(ctx, 2025)
	require.NoError(t, err)
	n2, err := e.NextOutboundNumber(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "S2025-0001", n1)
	assert.Equal(t, "S2025-0002", n2)

	n3, err := e.NextOutboundNumber(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, "S2026-0001", n3, "cada año tiene su contador")
}

func TestNextOutboundNumber_RespetaNumerosManuales(t *testing.T) {
	e := newEngine(t)
	create(t, e, "S2025-0041", entity.DocumentTypeTransfer, entity.DirectionOutgoing)

	n, err := e.NextOutboundNumber(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, "S2025-0042", n)
}

func TestNextOutboundNumber_Agotado(t *testing.T) {
	e := newEngine(t)
	create(t, e, "S2025-9999", entity.DocumentTypeTransfer, entity.DirectionOutgoing)

	_, err := e.NextOutboundNumber(context.Background(), 2025)
	assert.True(t, errors.Is(err, domain.ErrSequenceExhausted))

	// la creación de una salida sin número también falla y no deja rastro
	_, err = e.CreateDocument(context.Background(), ledger.CreateDocumentInput{
		Type:      entity.DocumentTypeTransfer,
		Direction: entity.DirectionOutgoing,
		Date:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Items:     []ledger.LineItem{item("P900", "X")},
	})
	assert.True(t, errors.Is(err, domain.ErrSequenceExhausted))
	assertNoSnapshot(t, e, "P900", "X")
}

func TestNextOutboundNumber_ConcurrenteSinRepetidos(t *testing.T) {
	e := newEngine(t)
	const n = 40

	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := e.NextOutboundNumber(context.Background(), 2025)
			if assert.NoError(t, err) {
				results <- num
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, n)
	for num := range results {
		assert.False(t, seen[num], "número repetido %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen[fmt.Sprintf("S2025-%04d", n)], "sin huecos: el último es %d", n)
}

func TestLineaDuplicadaSeInformaYElRestoSeConfirma(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	res, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{
		Number: "INV-9",
		Type:   entity.DocumentTypeInventory,
		Items:  []ledger.LineItem{item("P001", "S001"), item("p001", " S001 "), item("P001", "S002")},
	})
	require.NoError(t, err)
	assert.Len(t, res.Movements, 2)
	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, "P001", res.Duplicates[0].CatalogCode)
	assert.True(t, errors.Is(res.Duplicates[0], domain.ErrDuplicate))

	again, err := e.AppendLineItems(ctx, res.Document.ID, []ledger.LineItem{item("P001", "S001"), item("P001", "S003")})
	require.NoError(t, err)
	assert.Len(t, again.Movements, 1)
	assert.Len(t, again.Duplicates, 1)

	detail, err := e.GetDocument(ctx, res.Document.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Movements, 3)
}

func TestSerialDistingueMayusculas(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	res, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{
		Number: "INV-1",
		Type:   entity.DocumentTypeInventory,
		Items:  []ledger.LineItem{item("p001", "sn-1"), item("P001", "SN-1")},
	})
	require.NoError(t, err)
	assert.Len(t, res.Movements, 2, "el código se normaliza pero la serie conserva mayúsculas")
	assert.Empty(t, res.Duplicates)

	create(t, e, "", entity.DocumentTypeTransfer, entity.DirectionOutgoing, item("P001", "SN-1"))
	assert.Equal(t, entity.StateOutOfCustody, stateOf(t, e, "p001", "SN-1"))
	assert.Equal(t, entity.StateInCustody, stateOf(t, e, "P001", "sn-1"))

	_, err = e.GetSnapshot(ctx, "P001", "Sn-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestValidacion_TodoONada(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{
		Number: "INV-1",
		Type:   entity.DocumentTypeInventory,
		Items: []ledger.LineItem{
			item("P001", "S001"),
			{CatalogCode: "", SerialNumber: "S002"},
			{CatalogCode: "P003", Quantity: decimal.NewFromInt(-2)},
		},
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 2)
	assertNoSnapshot(t, e, "P001", "S001")

	docs, err := e.ListDocuments(ctx, repository.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = e.CreateDocument(ctx, ledger.CreateDocumentInput{Number: "X", Type: "ALBARAN"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = e.CreateDocument(ctx, ledger.CreateDocumentInput{Type: entity.DocumentTypeInventory})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "número obligatorio fuera de salidas")
}

func TestCantidadCeroEsUno(t *testing.T) {
	e := newEngine(t)
	res, err := e.CreateDocument(context.Background(), ledger.CreateDocumentInput{
		Number:      "INV-1",
		Type:        entity.DocumentTypeInventory,
		Destination: "Almacén central",
		Items:       []ledger.LineItem{item("P001", "")},
	})
	require.NoError(t, err)
	require.Len(t, res.Movements, 1)
	assert.True(t, res.Movements[0].Quantity.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "Almacén central", res.Movements[0].Location, "sin ubicación usa el destino")
	assert.Equal(t, "", res.Movements[0].SerialNumber)
}

func TestUpdateMovement_SoloCantidadYNotas(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	res, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{
		Number: "INV-1",
		Type:   entity.DocumentTypeInventory,
		Items:  []ledger.LineItem{item("P001", "S001")},
	})
	require.NoError(t, err)
	m := res.Movements[0]

	qty := decimal.NewFromInt(3)
	notes := "recuento corregido"
	got, err := e.UpdateMovement(ctx, m.ID, ledger.MovementCorrection{Quantity: &qty, Notes: &notes})
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(qty))
	assert.Equal(t, notes, got.Notes)
	assert.Equal(t, m.StateAfter, got.StateAfter)

	zero := decimal.Zero
	_, err = e.UpdateMovement(ctx, m.ID, ledger.MovementCorrection{Quantity: &zero})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = e.UpdateMovement(ctx, "no-existe", ledger.MovementCorrection{Notes: &notes})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAssignCatalogType(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	create(t, e, "INV-1", entity.DocumentTypeInventory, "", item("p001", "S001"))

	ce, err := e.AssignCatalogType(ctx, "P001", "CIFRADOR")
	require.NoError(t, err)
	assert.Equal(t, "CIFRADOR", ce.Type)

	_, err = e.AssignCatalogType(ctx, "P999", "CIFRADOR")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBorrarNoExistente(t *testing.T) {
	e := newEngine(t)
	err := e.DeleteDocument(context.Background(), "no-existe")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBorrarYRecrearEsIdempotente(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	create(t, e, "INV-1", entity.DocumentTypeInventory, "", item("P001", "S001"), item("P002", "S002"))
	out := create(t, e, "TR-OUT", entity.DocumentTypeTransfer, entity.DirectionOutgoing, item("P001", "S001"), item("P002", "S002"))

	before := map[string]entity.CustodyState{
		"P001": stateOf(t, e, "P001", "S001"),
		"P002": stateOf(t, e, "P002", "S002"),
	}
	require.NoError(t, e.DeleteDocument(ctx, out.ID))
	create(t, e, "TR-OUT", entity.DocumentTypeTransfer, entity.DirectionOutgoing, item("P001", "S001"), item("P002", "S002"))

	assert.Equal(t, before["P001"], stateOf(t, e, "P001", "S001"))
	assert.Equal(t, before["P002"], stateOf(t, e, "P002", "S002"))
}

func TestBorrarSoloAfectaASusMovimientos(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	a := create(t, e, "INV-1", entity.DocumentTypeInventory, "", item("P001", "S001"), item("P001", "S002"))
	b := create(t, e, "TR-1", entity.DocumentTypeTransfer, entity.DirectionOutgoing, item("P001", "S001"))

	require.NoError(t, e.DeleteDocument(ctx, a.ID))

	detail, err := e.GetDocument(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Movements, 1, "los movimientos de otros albaranes se conservan")
	assert.Equal(t, entity.StateOutOfCustody, stateOf(t, e, "P001", "S001"))
	assertNoSnapshot(t, e, "P001", "S002")

	// P001 sigue referenciado por B: el catálogo no se borra
	hist, err := e.GetMovementHistory(ctx, "P001", "S001")
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestBorrarInventarioConservaInstantaneasSinMovimientos(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	tr := create(t, e, "TR-IN", entity.DocumentTypeTransfer, entity.DirectionIncoming, item("P001", "S002"))
	inv := create(t, e, "INV-1", entity.DocumentTypeInventory, "", item("P001", "S001"))

	require.NoError(t, e.DeleteDocument(ctx, tr.ID))
	assert.Equal(t, entity.StateOutOfCustody, stateOf(t, e, "P001", "S002"))

	require.NoError(t, e.DeleteDocument(ctx, inv.ID))
	assertNoSnapshot(t, e, "P001", "S001")
	snap, err := e.GetSnapshot(ctx, "P001", "S002")
	require.NoError(t, err, "un equipo que el inventario no tocó conserva su instantánea")
	assert.Equal(t, entity.StateOutOfCustody, snap.State)
	assert.Empty(t, snap.LastMovementID)

	// la instantánea sigue referenciando el código: no se libera
	list, err := e.ListCatalog(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P001", list[0].Code)
}

// TestInstantaneaIgualAlUltimoMovimiento genera historiales aleatorios y comprueba
// después de cada alta o baja que la instantánea coincide con el movimiento más reciente.
func TestInstantaneaIgualAlUltimoMovimiento(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	e := newEngine(t)
	ctx := context.Background()

	serials := []string{"S1", "S2", "S3"}
	kinds := []struct {
		typ entity.DocumentType
		dir entity.TransferDirection
	}{
		{entity.DocumentTypeInventory, ""},
		{entity.DocumentTypeTransfer, entity.DirectionIncoming},
		{entity.DocumentTypeTransfer, entity.DirectionOutgoing},
		{entity.DocumentTypeHandDelivery, entity.DirectionOutgoing},
		{entity.DocumentTypeDestruction, entity.DirectionOutgoing},
		{entity.DocumentTypeOther, entity.DirectionIncoming},
	}

	var live []*entity.Document
	for step := 0; step < 120; step++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			i := rng.Intn(len(live))
			require.NoError(t, e.DeleteDocument(ctx, live[i].ID))
			live = append(live[:i], live[i+1:]...)
		} else {
			k := kinds[rng.Intn(len(kinds))]
			var items []ledger.LineItem
			for _, s := range serials {
				if rng.Intn(2) == 0 {
					items = append(items, item("P001", s))
				}
			}
			res, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{
				Number:    fmt.Sprintf("D-%03d", step),
				Type:      k.typ,
				Direction: k.dir,
				Items:     items,
			})
			require.NoError(t, err)
			live = append(live, res.Document)
		}

		for _, s := range serials {
			hist, err := e.GetMovementHistory(ctx, "P001", s)
			if errors.Is(err, domain.ErrNotFound) {
				continue // catálogo liberado por un inventario
			}
			require.NoError(t, err)
			snap, serr := e.GetSnapshot(ctx, "P001", s)
			if len(hist) == 0 {
				if serr == nil {
					assert.Empty(t, snap.LastMovementID, "paso %d serie %s: sin historial no hay último movimiento", step, s)
				}
				continue
			}
			require.NoError(t, serr, "paso %d serie %s", step, s)
			latest := hist[len(hist)-1]
			assert.Equal(t, latest.StateAfter, snap.State, "paso %d serie %s", step, s)
			assert.Equal(t, latest.ID, snap.LastMovementID, "paso %d serie %s", step, s)
		}
	}
}

func TestAltasConcurrentesMismoEquipo(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	create(t, e, "INV-1", entity.DocumentTypeInventory, "", item("P001", "S001"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir := entity.DirectionIncoming
			if i%2 == 1 {
				dir = entity.DirectionOutgoing
			}
			_, err := e.CreateDocument(ctx, ledger.CreateDocumentInput{
				Number:    fmt.Sprintf("TR-%02d", i),
				Type:      entity.DocumentTypeTransfer,
				Direction: dir,
				Items:     []ledger.LineItem{item("P001", "S001")},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	hist, err := e.GetMovementHistory(ctx, "P001", "S001")
	require.NoError(t, err)
	require.Len(t, hist, 11)
	snap, err := e.GetSnapshot(ctx, "P001", "S001")
	require.NoError(t, err)
	assert.Equal(t, hist[len(hist)-1].ID, snap.LastMovementID)
	for i := 1; i < len(hist); i++ {
		assert.Equal(t, hist[i-1].StateAfter, hist[i].StateBefore, "cada movimiento parte del estado del anterior")
	}
}

func TestListSnapshotsFiltraPorEstado(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	create(t, e, "INV-1", entity.DocumentTypeInventory, "", item("P001", "S1"), item("P001", "S2"))
	create(t, e, "", entity.DocumentTypeTransfer, entity.DirectionOutgoing, item("P001", "S2"))

	out, err := e.ListSnapshots(ctx, repository.SnapshotFilter{State: entity.StateOutOfCustody})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "S2", out[0].SerialNumber)
	assert.Equal(t, "P001", out[0].CatalogCode)

	_, err = e.ListSnapshots(ctx, repository.SnapshotFilter{State: "PERDIDO"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
