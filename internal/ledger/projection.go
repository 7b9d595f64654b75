package ledger

import (
	"sync"

	"github.com/vladislavdragonenkov/orderledger/internal/domain"
)

// ProjectionCache — локальное для процесса зеркало последнего известного
// состояния коллекций. Обновляется оптимистичными локальными мутациями и
// периодической синхронизацией с хранилищем; remote-состояние всегда
// считается авторитетным и молча перекрывает оптимистичные правки.
type ProjectionCache struct {
	mu       sync.RWMutex
	active   []domain.OrderRecord
	deleted  []domain.DeletedOrderRecord
	revision uint64
}

// NewProjectionCache возвращает пустой projection cache.
func NewProjectionCache() *ProjectionCache {
	return &ProjectionCache{}
}

// ApplyRemoteActive безусловно перезаписывает активную коллекцию remote-состоянием.
func (c *ProjectionCache) ApplyRemoteActive(records []domain.OrderRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = copyOrders(records)
	c.revision++
}

// ApplyRemoteDeleted безусловно перезаписывает архив remote-состоянием.
func (c *ProjectionCache) ApplyRemoteDeleted(records []domain.DeletedOrderRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deleted = copyDeleted(records)
	c.revision++
}

// ApplyLocalOptimistic применяет локальную мутацию к активной коллекции до
// подтверждения хранилищем. Если следующая синхронизация её опровергнет,
// результат молча перезаписывается — конфликт вызывающей стороне не виден.
func (c *ProjectionCache) ApplyLocalOptimistic(mutate func([]domain.OrderRecord) []domain.OrderRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = mutate(copyOrders(c.active))
	c.revision++
}

// SnapshotActive возвращает копию активной коллекции.
func (c *ProjectionCache) SnapshotActive() []domain.OrderRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return copyOrders(c.active)
}

// SnapshotDeleted возвращает копию архива.
func (c *ProjectionCache) SnapshotDeleted() []domain.DeletedOrderRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return copyDeleted(c.deleted)
}

// Revision возвращает монотонный счётчик локальных изменений кэша.
func (c *ProjectionCache) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.revision
}

func copyOrders(records []domain.OrderRecord) []domain.OrderRecord {
	result := make([]domain.OrderRecord, len(records))
	copy(result, records)
	return result
}

func copyDeleted(records []domain.DeletedOrderRecord) []domain.DeletedOrderRecord {
	result := make([]domain.DeletedOrderRecord, len(records))
	copy(result, records)
	return result
}
