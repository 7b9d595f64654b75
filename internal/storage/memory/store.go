package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/vladislavdragonenkov/orderledger/internal/domain"
)

// documentStore — in-memory реализация PersistentStore для локальной разработки и тестов.
type documentStore struct {
	mu        sync.RWMutex
	docs      map[string][]json.RawMessage
	revisions map[string]int64
}

// NewDocumentStore возвращает пустое in-memory документное хранилище.
func NewDocumentStore() domain.PersistentStore {
	return &documentStore{
		docs:      make(map[string][]json.RawMessage),
		revisions: make(map[string]int64),
	}
}

// ReadCollection возвращает копию коллекции и её ревизию.
func (s *documentStore) ReadCollection(_ context.Context, key string) ([]json.RawMessage, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, 0, domain.ErrCollectionNotExists
	}
	return copyRecords(doc), s.revisions[key], nil
}

// WriteCollection перезаписывает коллекцию целиком при совпадении ревизии.
func (s *documentStore) WriteCollection(_ context.Context, key string, records []json.RawMessage, expectedRevision int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revisions[key] != expectedRevision {
		return 0, domain.ErrRevisionConflict
	}
	s.docs[key] = copyRecords(records)
	s.revisions[key] = expectedRevision + 1
	return s.revisions[key], nil
}

// AppendToCollection атомарно добавляет запись, создавая коллекцию при необходимости.
// Ревизия увеличивается, чтобы конкурентные CAS-записи увидели изменение.
func (s *documentStore) AppendToCollection(_ context.Context, key string, record json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[key] = append(s.docs[key], copyRecord(record))
	s.revisions[key]++
	return nil
}

// copyRecords делает глубокую копию, чтобы избежать непредсказуемых мутаций извне.
func copyRecords(records []json.RawMessage) []json.RawMessage {
	result := make([]json.RawMessage, len(records))
	for i, r := range records {
		result[i] = copyRecord(r)
	}
	return result
}

func copyRecord(record json.RawMessage) json.RawMessage {
	cp := make(json.RawMessage, len(record))
	copy(cp, record)
	return cp
}

var _ domain.PersistentStore = (*documentStore)(nil)
