// Package memory implementa el libro de custodia en memoria (tests y LEDGER_STORE=memory).
// Las transacciones se serializan con un mutex; un error restaura la copia previa.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/custodia-api/internal/application/ledger"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
)

var _ ledger.TxRunner = (*Store)(nil)

// Store estado completo del libro protegido por mutex.
type Store struct {
	mu sync.Mutex
	st *state
}

type state struct {
	catalog   map[string]entity.CatalogEntry // por ID
	codes     map[string]string              // código → ID
	documents map[string]entity.Document
	movements map[string]entity.Movement
	snapshots map[entity.PairKey]entity.Snapshot
	sequences map[int]int
	seq       int64
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: &state{
		catalog:   make(map[string]entity.CatalogEntry),
		codes:     make(map[string]string),
		documents: make(map[string]entity.Document),
		movements: make(map[string]entity.Movement),
		snapshots: make(map[entity.PairKey]entity.Snapshot),
		sequences: make(map[int]int),
	}}
}

// Run ejecuta fn con acceso exclusivo. Si fn falla se descartan sus cambios.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, r ledger.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	repos := ledger.Repos{
		Catalog:   &catalogRepo{st: work},
		Documents: &documentRepo{st: work},
		Movements: &movementRepo{st: work},
		Snapshots: &snapshotRepo{st: work},
		Sequences: &sequenceRepo{st: work},
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (st *state) clone() *state {
	c := &state{
		catalog:   make(map[string]entity.CatalogEntry, len(st.catalog)),
		codes:     make(map[string]string, len(st.codes)),
		documents: make(map[string]entity.Document, len(st.documents)),
		movements: make(map[string]entity.Movement, len(st.movements)),
		snapshots: make(map[entity.PairKey]entity.Snapshot, len(st.snapshots)),
		sequences: make(map[int]int, len(st.sequences)),
		seq:       st.seq,
	}
	for k, v := range st.catalog {
		c.catalog[k] = v
	}
	for k, v := range st.codes {
		c.codes[k] = v
	}
	for k, v := range st.documents {
		v.Metadata = cloneRaw(v.Metadata)
		c.documents[k] = v
	}
	for k, v := range st.movements {
		c.movements[k] = v
	}
	for k, v := range st.snapshots {
		c.snapshots[k] = v
	}
	for k, v := range st.sequences {
		c.sequences[k] = v
	}
	return c
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}

func now() time.Time { return time.Now().UTC() }

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortedByCode(entries []*entity.CatalogEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Code < entries[j].Code })
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToUpper(s), strings.ToUpper(prefix))
}

func newID() string { return uuid.New().String() }
