package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/acquisitions/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// querier объединяет пул соединений и транзакцию.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore хранит записи в PostgreSQL в виде jsonb-документов.
type PostgresStore struct {
	pool     *pgxpool.Pool
	q        querier
	inTx     bool
	pageSize int
	delays   []time.Duration
}

// NewPostgresStore создаёт хранилище и инициализирует схему БД через миграции.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{
		pool:     pool,
		q:        pool,
		pageSize: DefaultPageSize,
		delays:   []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second},
	}

	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при сбоях сериализации, взаимоблокировках и обрывах соединения.
// Конфликты ревизий не повторяются: это решение вызывающей стороны.
func (s *PostgresStore) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(s.delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(s.delays) {
			break
		}

		timer := time.NewTimer(s.delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (s *PostgresStore) Close() error {
	if s.inTx {
		return nil
	}
	s.pool.Close()
	return nil
}

// Create сохраняет новую запись с ревизией 1 и присваивает ей идентификатор.
func (s *PostgresStore) Create(ctx context.Context, doc Document) (string, int64, error) {
	data, err := encode(doc)
	if err != nil {
		return "", 0, err
	}

	rec := record{id: uuid.NewString(), kind: doc.Kind(), revision: 1, data: data}
	err = s.q.QueryRow(ctx,
		`INSERT INTO records (id, kind, revision, data) VALUES ($1, $2, 1, $3)
		 RETURNING seq, created_at, updated_at`,
		rec.id, string(rec.kind), data,
	).Scan(&rec.seq, &rec.createdAt, &rec.updatedAt)
	if err != nil {
		return "", 0, fmt.Errorf("insert %s: %w", rec.kind, err)
	}

	if err := rec.decode(doc); err != nil {
		return "", 0, err
	}
	return rec.id, rec.revision, nil
}

// checkID отсекает идентификаторы, которые не могут быть ключом таблицы records.
func checkID(kind model.Kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s %s", model.ErrNotFound, kind, id)
	}
	return nil
}

// Get читает запись по идентификатору в dst и возвращает её ревизию.
func (s *PostgresStore) Get(ctx context.Context, id string, dst Document) (int64, error) {
	if err := checkID(dst.Kind(), id); err != nil {
		return 0, err
	}

	rec := record{id: id}
	var kind string
	err := s.q.QueryRow(ctx,
		`SELECT kind, revision, seq, data, created_at, updated_at FROM records WHERE id = $1`,
		id,
	).Scan(&kind, &rec.revision, &rec.seq, &rec.data, &rec.createdAt, &rec.updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s %s", model.ErrNotFound, dst.Kind(), id)
		}
		return 0, fmt.Errorf("select %s: %w", dst.Kind(), err)
	}
	rec.kind = model.Kind(kind)

	if err := rec.decode(dst); err != nil {
		return 0, err
	}
	return rec.revision, nil
}

// conflictOrMissing различает отсутствующую запись и устаревшую ревизию.
func (s *PostgresStore) conflictOrMissing(ctx context.Context, kind model.Kind, id string, expected int64) error {
	var actual int64
	err := s.q.QueryRow(ctx,
		`SELECT revision FROM records WHERE id = $1 AND kind = $2`,
		id, string(kind),
	).Scan(&actual)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s %s", model.ErrNotFound, kind, id)
		}
		return fmt.Errorf("select revision: %w", err)
	}
	return &model.ConflictError{Kind: kind, ID: id, Expected: expected, Actual: actual}
}

// Update заменяет запись, если её ревизия совпадает с expected.
func (s *PostgresStore) Update(ctx context.Context, id string, expected int64, doc Document) (int64, error) {
	if err := checkID(doc.Kind(), id); err != nil {
		return 0, err
	}

	data, err := encode(doc)
	if err != nil {
		return 0, err
	}

	rec := record{id: id, kind: doc.Kind(), data: data}
	err = s.q.QueryRow(ctx,
		`UPDATE records SET data = $4, revision = revision + 1, updated_at = now()
		 WHERE id = $1 AND kind = $2 AND revision = $3
		 RETURNING revision, seq, created_at, updated_at`,
		id, string(rec.kind), expected, data,
	).Scan(&rec.revision, &rec.seq, &rec.createdAt, &rec.updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, s.conflictOrMissing(ctx, rec.kind, id, expected)
		}
		return 0, fmt.Errorf("update %s: %w", rec.kind, err)
	}

	if err := rec.decode(doc); err != nil {
		return 0, err
	}
	return rec.revision, nil
}

// Delete удаляет запись с ревизией expected.
func (s *PostgresStore) Delete(ctx context.Context, kind model.Kind, id string, expected int64) error {
	if err := checkID(kind, id); err != nil {
		return err
	}

	tag, err := s.q.Exec(ctx,
		`DELETE FROM records WHERE id = $1 AND kind = $2 AND revision = $3`,
		id, string(kind), expected,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return s.conflictOrMissing(ctx, kind, id, expected)
	}
	return nil
}

// Search возвращает курсор по записям вида kind, содержащим filter.
func (s *PostgresStore) Search(ctx context.Context, kind model.Kind, filter Filter) Cursor {
	return newCursor(func(ctx context.Context, after int64, limit int) ([]record, error) {
		return s.page(ctx, kind, filter, after, limit)
	}, s.pageSize)
}

func (s *PostgresStore) page(ctx context.Context, kind model.Kind, filter Filter, after int64, limit int) ([]record, error) {
	if filter == nil {
		filter = Filter{}
	}
	containment, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}

	rows, err := s.q.Query(ctx,
		`SELECT id, revision, seq, data, created_at, updated_at
		 FROM records
		 WHERE kind = $1 AND data @> $2::jsonb AND seq > $3
		 ORDER BY seq
		 LIMIT $4`,
		string(kind), string(containment), after, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", kind, err)
	}
	defer rows.Close()

	var res []record
	for rows.Next() {
		rec := record{kind: kind}
		if err := rows.Scan(&rec.id, &rec.revision, &rec.seq, &rec.data, &rec.createdAt, &rec.updatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		res = append(res, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// WithinTx выполняет fn в транзакции REPEATABLE READ и повторяет её при сбоях сериализации.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	return s.withRetry(ctx, func() error {
		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		txStore := &PostgresStore{pool: s.pool, q: tx, inTx: true, pageSize: s.pageSize}
		if err := fn(txStore); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}
