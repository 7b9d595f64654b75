package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/orderledger/internal/domain"
)

const opTimeout = 5 * time.Second

// documentStore — PostgreSQL-реализация PersistentStore: одна строка таблицы
// collections на логическую коллекцию, тело — JSONB-массив записей, условная
// запись реализована через сравнение ревизии.
type documentStore struct {
	db *sql.DB
}

// NewDocumentStore создаёт документное хранилище поверх подключения.
func NewDocumentStore(store *Store) domain.PersistentStore {
	return &documentStore{db: store.DB()}
}

// ReadCollection читает тело коллекции и её ревизию одной строкой.
func (s *documentStore) ReadCollection(ctx context.Context, key string) ([]json.RawMessage, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		body     []byte
		revision int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT body, revision
		FROM collections
		WHERE key = $1
	`, key).Scan(&body, &revision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, domain.ErrCollectionNotExists
		}
		return nil, 0, fmt.Errorf("select collection %s: %w", key, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, 0, fmt.Errorf("decode collection %s body: %w", key, err)
	}
	return records, revision, nil
}

// WriteCollection перезаписывает тело коллекции при совпадении ревизии.
// expectedRevision = 0 создаёт строку коллекции; проигранная вставка
// или несовпавшая ревизия дают ErrRevisionConflict.
func (s *documentStore) WriteCollection(ctx context.Context, key string, records []json.RawMessage, expectedRevision int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	body, err := encodeBody(records)
	if err != nil {
		return 0, fmt.Errorf("encode collection %s body: %w", key, err)
	}

	if expectedRevision == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO collections (key, body, revision)
			VALUES ($1, $2, 1)
			ON CONFLICT (key) DO NOTHING
		`, key, body)
		if err != nil {
			return 0, fmt.Errorf("insert collection %s: %w", key, err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert collection %s rows affected: %w", key, err)
		}
		if inserted == 0 {
			return 0, domain.ErrRevisionConflict
		}
		return 1, nil
	}

	var newRevision int64
	err = s.db.QueryRowContext(ctx, `
		UPDATE collections
		SET body = $2, revision = revision + 1, updated_at = NOW()
		WHERE key = $1 AND revision = $3
		RETURNING revision
	`, key, body, expectedRevision).Scan(&newRevision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrRevisionConflict
		}
		return 0, fmt.Errorf("update collection %s: %w", key, err)
	}
	return newRevision, nil
}

// AppendToCollection атомарно дописывает одну запись в конец JSONB-массива,
// создавая строку коллекции при необходимости.
func (s *documentStore) AppendToCollection(ctx context.Context, key string, record json.RawMessage) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	body, err := encodeBody([]json.RawMessage{record})
	if err != nil {
		return fmt.Errorf("encode appended record for %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collections (key, body, revision)
		VALUES ($1, $2, 1)
		ON CONFLICT (key) DO UPDATE
		SET body = collections.body || excluded.body,
		    revision = collections.revision + 1,
		    updated_at = NOW()
	`, key, body)
	if err != nil {
		return fmt.Errorf("append to collection %s: %w", key, err)
	}
	return nil
}

// encodeBody сериализует записи в JSON-массив, пустой список — в [].
func encodeBody(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	return json.Marshal(records)
}

var _ domain.PersistentStore = (*documentStore)(nil)
