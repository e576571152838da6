// Package repository содержит хранилище записей с оптимистичными ревизиями.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmeshcher/acquisitions/internal/model"
)

// DefaultPageSize задаёт размер страницы, которой курсор поиска подгружает записи.
const DefaultPageSize = 100

// Document описывает запись, которую умеет сохранять хранилище.
type Document interface {
	Kind() model.Kind
	GetMeta() model.Meta
	SetMeta(model.Meta)
}

// Filter задаёт равенство полей верхнего уровня JSON-представления записи.
type Filter map[string]any

// Cursor лениво обходит результаты поиска постранично.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(dst Document) error
	Err() error
}

// Store описывает контракт хранилища записей.
type Store interface {
	// Create сохраняет новую запись и возвращает её идентификатор и ревизию.
	Create(ctx context.Context, doc Document) (string, int64, error)
	// Get читает запись в dst и возвращает её ревизию.
	Get(ctx context.Context, id string, dst Document) (int64, error)
	// Update перезаписывает запись, если её ревизия равна expected.
	Update(ctx context.Context, id string, expected int64, doc Document) (int64, error)
	// Delete удаляет запись, если её ревизия равна expected.
	Delete(ctx context.Context, kind model.Kind, id string, expected int64) error
	// Search возвращает курсор по записям вида kind, подходящим под фильтр.
	Search(ctx context.Context, kind model.Kind, filter Filter) Cursor
	// WithinTx выполняет fn как единую атомарную операцию.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Close() error
}

// record хранит сериализованную запись.
type record struct {
	id        string
	kind      model.Kind
	revision  int64
	seq       int64
	data      []byte
	createdAt time.Time
	updatedAt time.Time
}

func (r *record) decode(dst Document) error {
	if r.kind != dst.Kind() {
		return fmt.Errorf("%w: %s %s", model.ErrNotFound, dst.Kind(), r.id)
	}
	if err := json.Unmarshal(r.data, dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.kind, r.id, err)
	}
	dst.SetMeta(model.Meta{
		ID:        r.id,
		Revision:  r.revision,
		CreatedAt: r.createdAt,
		UpdatedAt: r.updatedAt,
	})
	return nil
}

func encode(doc Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", doc.Kind(), err)
	}
	return data, nil
}

// pageFunc возвращает до limit записей с порядковым номером больше after.
type pageFunc func(ctx context.Context, after int64, limit int) ([]record, error)

type pagedCursor struct {
	fetch    pageFunc
	pageSize int

	page  []record
	pos   int
	after int64
	done  bool
	cur   *record
	err   error
}

func newCursor(fetch pageFunc, pageSize int) *pagedCursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &pagedCursor{fetch: fetch, pageSize: pageSize}
}

func (c *pagedCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}

	if c.pos >= len(c.page) {
		if c.done {
			return false
		}

		page, err := c.fetch(ctx, c.after, c.pageSize)
		if err != nil {
			c.err = err
			return false
		}
		if len(page) < c.pageSize {
			c.done = true
		}
		if len(page) == 0 {
			return false
		}

		c.page = page
		c.pos = 0
		c.after = page[len(page)-1].seq
	}

	c.cur = &c.page[c.pos]
	c.pos++
	return true
}

func (c *pagedCursor) Decode(dst Document) error {
	if c.cur == nil {
		return fmt.Errorf("decode: cursor is not positioned")
	}
	return c.cur.decode(dst)
}

func (c *pagedCursor) Err() error {
	return c.err
}

// Load читает запись типа T по идентификатору.
func Load[T any, PT interface {
	*T
	Document
}](ctx context.Context, s Store, id string) (PT, error) {
	doc := PT(new(T))
	if _, err := s.Get(ctx, id, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// All читает все записи типа T, подходящие под фильтр.
func All[T any, PT interface {
	*T
	Document
}](ctx context.Context, s Store, filter Filter) ([]PT, error) {
	kind := PT(new(T)).Kind()

	cur := s.Search(ctx, kind, filter)
	var res []PT
	for cur.Next(ctx) {
		doc := PT(new(T))
		if err := cur.Decode(doc); err != nil {
			return nil, err
		}
		res = append(res, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}
	return res, nil
}

// Save создаёт запись, если у неё ещё нет идентификатора, иначе обновляет её по текущей ревизии.
func Save(ctx context.Context, s Store, doc Document) error {
	meta := doc.GetMeta()
	if meta.ID == "" {
		_, _, err := s.Create(ctx, doc)
		return err
	}
	_, err := s.Update(ctx, meta.ID, meta.Revision, doc)
	return err
}
