package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/acquisitions/internal/model"
)

// MemoryStore хранит записи в памяти процесса. Используется без DATABASE_URI и в тестах.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]*record
	seq      atomic.Int64
	pageSize int
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]*record),
		pageSize: DefaultPageSize,
	}
}

// WithPageSize задаёт размер страницы курсора поиска.
func (s *MemoryStore) WithPageSize(n int) *MemoryStore {
	s.pageSize = n
	return s
}

// Close ничего не освобождает: данные живут в памяти процесса.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) newRecord(doc Document) (*record, error) {
	data, err := encode(doc)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &record{
		id:        uuid.NewString(),
		kind:      doc.Kind(),
		revision:  1,
		seq:       s.seq.Add(1),
		data:      data,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Create сохраняет копию новой записи с ревизией 1.
func (s *MemoryStore) Create(ctx context.Context, doc Document) (string, int64, error) {
	rec, err := s.newRecord(doc)
	if err != nil {
		return "", 0, err
	}

	s.mu.Lock()
	s.records[rec.id] = rec
	s.mu.Unlock()

	if err := rec.decode(doc); err != nil {
		return "", 0, err
	}
	return rec.id, rec.revision, nil
}

func (s *MemoryStore) lookup(id string) (*record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Get читает копию записи в dst.
func (s *MemoryStore) Get(ctx context.Context, id string, dst Document) (int64, error) {
	rec, ok := s.lookup(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s %s", model.ErrNotFound, dst.Kind(), id)
	}
	if err := rec.decode(dst); err != nil {
		return 0, err
	}
	return rec.revision, nil
}

// Update заменяет запись, если её ревизия совпадает с expected.
func (s *MemoryStore) Update(ctx context.Context, id string, expected int64, doc Document) (int64, error) {
	data, err := encode(doc)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	cur, ok := s.records[id]
	if !ok || cur.kind != doc.Kind() {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s %s", model.ErrNotFound, doc.Kind(), id)
	}
	if cur.revision != expected {
		s.mu.Unlock()
		return 0, &model.ConflictError{Kind: cur.kind, ID: id, Expected: expected, Actual: cur.revision}
	}
	next := *cur
	next.revision++
	next.data = data
	next.updatedAt = time.Now().UTC()
	s.records[id] = &next
	s.mu.Unlock()

	if err := next.decode(doc); err != nil {
		return 0, err
	}
	return next.revision, nil
}

// Delete удаляет запись с ревизией expected.
func (s *MemoryStore) Delete(ctx context.Context, kind model.Kind, id string, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[id]
	if !ok || cur.kind != kind {
		return fmt.Errorf("%w: %s %s", model.ErrNotFound, kind, id)
	}
	if cur.revision != expected {
		return &model.ConflictError{Kind: kind, ID: id, Expected: expected, Actual: cur.revision}
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) snapshot(kind model.Kind) []*record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*record, 0)
	for _, rec := range s.records {
		if rec.kind == kind {
			res = append(res, rec)
		}
	}
	return res
}

// Search возвращает курсор по снимку записей вида kind.
func (s *MemoryStore) Search(ctx context.Context, kind model.Kind, filter Filter) Cursor {
	return newCursor(func(ctx context.Context, after int64, limit int) ([]record, error) {
		return page(s.snapshot(kind), filter, after, limit)
	}, s.pageSize)
}

// WithinTx выполняет fn над изменениями, накопленными отдельно от основного хранилища.
// При фиксации ревизии затронутых записей сверяются с текущими.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	tx := &memTx{
		base:    s,
		writes:  make(map[string]*record),
		baseRev: make(map[string]int64),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// memTx реализует транзакцию MemoryStore. Удалённая запись хранится в writes как nil.
type memTx struct {
	base    *MemoryStore
	mu      sync.Mutex
	writes  map[string]*record
	baseRev map[string]int64
}

func (t *memTx) Close() error { return nil }

func (t *memTx) get(id string) (*record, bool) {
	if rec, ok := t.writes[id]; ok {
		return rec, rec != nil
	}
	return t.base.lookup(id)
}

func (t *memTx) touch(id string, cur *record) {
	if _, ok := t.baseRev[id]; ok {
		return
	}
	if cur == nil {
		t.baseRev[id] = 0
		return
	}
	t.baseRev[id] = cur.revision
}

func (t *memTx) Create(ctx context.Context, doc Document) (string, int64, error) {
	rec, err := t.base.newRecord(doc)
	if err != nil {
		return "", 0, err
	}

	t.mu.Lock()
	t.touch(rec.id, nil)
	t.writes[rec.id] = rec
	t.mu.Unlock()

	if err := rec.decode(doc); err != nil {
		return "", 0, err
	}
	return rec.id, rec.revision, nil
}

func (t *memTx) Get(ctx context.Context, id string, dst Document) (int64, error) {
	t.mu.Lock()
	rec, ok := t.get(id)
	t.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("%w: %s %s", model.ErrNotFound, dst.Kind(), id)
	}
	if err := rec.decode(dst); err != nil {
		return 0, err
	}
	return rec.revision, nil
}

func (t *memTx) Update(ctx context.Context, id string, expected int64, doc Document) (int64, error) {
	data, err := encode(doc)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	cur, ok := t.get(id)
	if !ok || cur.kind != doc.Kind() {
		t.mu.Unlock()
		return 0, fmt.Errorf("%w: %s %s", model.ErrNotFound, doc.Kind(), id)
	}
	if cur.revision != expected {
		t.mu.Unlock()
		return 0, &model.ConflictError{Kind: cur.kind, ID: id, Expected: expected, Actual: cur.revision}
	}
	t.touch(id, cur)
	next := *cur
	next.revision++
	next.data = data
	next.updatedAt = time.Now().UTC()
	t.writes[id] = &next
	t.mu.Unlock()

	if err := next.decode(doc); err != nil {
		return 0, err
	}
	return next.revision, nil
}

func (t *memTx) Delete(ctx context.Context, kind model.Kind, id string, expected int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.get(id)
	if !ok || cur.kind != kind {
		return fmt.Errorf("%w: %s %s", model.ErrNotFound, kind, id)
	}
	if cur.revision != expected {
		return &model.ConflictError{Kind: kind, ID: id, Expected: expected, Actual: cur.revision}
	}
	t.touch(id, cur)
	t.writes[id] = nil
	return nil
}

func (t *memTx) snapshot(kind model.Kind) []*record {
	base := t.base.snapshot(kind)

	t.mu.Lock()
	defer t.mu.Unlock()

	res := make([]*record, 0, len(base)+len(t.writes))
	for _, rec := range base {
		if _, overridden := t.writes[rec.id]; overridden {
			continue
		}
		res = append(res, rec)
	}
	for _, rec := range t.writes {
		if rec != nil && rec.kind == kind {
			res = append(res, rec)
		}
	}
	return res
}

func (t *memTx) Search(ctx context.Context, kind model.Kind, filter Filter) Cursor {
	return newCursor(func(ctx context.Context, after int64, limit int) ([]record, error) {
		return page(t.snapshot(kind), filter, after, limit)
	}, t.base.pageSize)
}

func (t *memTx) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (t *memTx) commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.base
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rev := range t.baseRev {
		var actual int64
		if cur, ok := s.records[id]; ok {
			actual = cur.revision
		}
		if actual != rev {
			kind := model.Kind("")
			if w := t.writes[id]; w != nil {
				kind = w.kind
			}
			return &model.ConflictError{Kind: kind, ID: id, Expected: rev, Actual: actual}
		}
	}

	for id, rec := range t.writes {
		if rec == nil {
			delete(s.records, id)
			continue
		}
		s.records[id] = rec
	}
	return nil
}

// page отбирает записи под фильтр в порядке вставки.
func page(recs []*record, filter Filter, after int64, limit int) ([]record, error) {
	want, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	res := make([]record, 0, limit)
	for _, rec := range recs {
		if rec.seq <= after {
			continue
		}
		ok, err := matches(rec, want)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		res = append(res, *rec)
		if len(res) == limit {
			break
		}
	}
	return res, nil
}

func normalizeFilter(filter Filter) (map[string]any, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	var res map[string]any
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode filter: %w", err)
	}
	return res, nil
}

func matches(rec *record, want map[string]any) (bool, error) {
	if len(want) == 0 {
		return true, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(rec.data, &fields); err != nil {
		return false, fmt.Errorf("decode %s %s: %w", rec.kind, rec.id, err)
	}
	for k, v := range want {
		if !reflect.DeepEqual(fields[k], v) {
			return false, nil
		}
	}
	return true, nil
}
