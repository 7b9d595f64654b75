package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderledger/internal/catalog"
	"github.com/vladislavdragonenkov/orderledger/internal/domain"
	"github.com/vladislavdragonenkov/orderledger/internal/ledger"
	"github.com/vladislavdragonenkov/orderledger/internal/metrics"
	"github.com/vladislavdragonenkov/orderledger/internal/storage/memory"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Product{
		{ID: "1", Name: "Wireless Mouse", UnitPrice: 10},
		{ID: "2", Name: "Mechanical Keyboard", UnitPrice: 5},
	})
}

func newTestRepository(t *testing.T, store domain.PersistentStore) *ledger.Repository {
	t.Helper()
	return ledger.NewRepository(store, testCatalog(),
		ledger.WithMetrics(metrics.NewLedgerMetricsWithRegisterer(prometheus.NewRegistry())),
	)
}

func validInput() domain.NewOrderInput {
	return domain.NewOrderInput{
		CustomerName:  "Alice Johnson",
		CustomerEmail: "alice@example.com",
		ProductID:     "1",
		Quantity:      2,
	}
}

func TestRepository_CreateThenFetchAll(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())
	ctx := context.Background()

	rec, err := repo.Create(ctx, validInput())
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, "Alice Johnson", rec.CustomerName)
	assert.Equal(t, "alice@example.com", rec.CustomerEmail)
	assert.Equal(t, "1", rec.ProductID)
	assert.Equal(t, "Wireless Mouse", rec.ProductName)
	assert.Equal(t, int32(2), rec.Quantity)
	// order_value = quantity * unit price на момент создания.
	assert.Equal(t, float64(20), rec.OrderValue)

	all, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, rec, all[0])
}

func TestRepository_CreateValidation(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())
	ctx := context.Background()

	in := validInput()
	in.CustomerEmail = "broken"
	_, err := repo.Create(ctx, in)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, domain.ErrCustomerEmailInvalid)

	// Ошибки валидации возвращаются до обращения к хранилищу.
	all, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRepository_CreateUnknownProduct(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())

	in := validInput()
	in.ProductID = "999"
	_, err := repo.Create(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrProductUnknown)
}

func TestRepository_UpdateNotFound(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())

	name := "Bob"
	_, err := repo.Update(context.Background(), "missing-id", domain.OrderPatch{CustomerName: &name})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestRepository_UpdateKeepsOrderValueWithoutQuantityEdit(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())
	ctx := context.Background()

	rec, err := repo.Create(ctx, validInput())
	require.NoError(t, err)

	name := "Alice Cooper"
	updated, err := repo.Update(ctx, rec.ID, domain.OrderPatch{CustomerName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", updated.CustomerName)
	assert.Equal(t, rec.OrderValue, updated.OrderValue)
	assert.Equal(t, rec.Quantity, updated.Quantity)
}

func TestRepository_UpdateQuantityRecomputesOrderValue(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())
	ctx := context.Background()

	rec, err := repo.Create(ctx, validInput())
	require.NoError(t, err)

	qty := int32(5)
	updated, err := repo.Update(ctx, rec.ID, domain.OrderPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, int32(5), updated.Quantity)
	assert.Equal(t, float64(50), updated.OrderValue)
}

func TestRepository_UpdateIsIdempotent(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())
	ctx := context.Background()

	rec, err := repo.Create(ctx, validInput())
	require.NoError(t, err)

	qty := int32(3)
	email := "alice.j@example.com"
	patch := domain.OrderPatch{Quantity: &qty, CustomerEmail: &email}

	first, err := repo.Update(ctx, rec.ID, patch)
	require.NoError(t, err)
	second, err := repo.Update(ctx, rec.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRepository_UpdateProductRefreshesSnapshot(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())
	ctx := context.Background()

	rec, err := repo.Create(ctx, validInput())
	require.NoError(t, err)

	productID := "2"
	updated, err := repo.Update(ctx, rec.ID, domain.OrderPatch{ProductID: &productID})
	require.NoError(t, err)
	assert.Equal(t, "2", updated.ProductID)
	assert.Equal(t, "Mechanical Keyboard", updated.ProductName)
	// Смена товара без правки количества не трогает order_value.
	assert.Equal(t, rec.OrderValue, updated.OrderValue)
}

func TestRepository_ArchiveMovesRecord(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())
	ctx := context.Background()

	rec, err := repo.Create(ctx, validInput())
	require.NoError(t, err)

	before := time.Now().UTC()
	require.NoError(t, repo.Archive(ctx, rec.ID))

	all, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	deleted, err := repo.FetchDeleted(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, rec, deleted[0].OrderRecord)
	assert.False(t, deleted[0].DeletedAt.Before(before))
}

func TestRepository_ArchiveNotFound(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())

	err := repo.Archive(context.Background(), "missing-id")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestRepository_TotalValueScenario(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())
	ctx := context.Background()

	a, err := repo.Create(ctx, domain.NewOrderInput{
		CustomerName:  "Alice Johnson",
		CustomerEmail: "alice@example.com",
		ProductID:     "1", // цена 10
		Quantity:      2,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(20), a.OrderValue)

	b, err := repo.Create(ctx, domain.NewOrderInput{
		CustomerName:  "Bob Smith",
		CustomerEmail: "bob@example.com",
		ProductID:     "2", // цена 5
		Quantity:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(5), b.OrderValue)

	all, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(25), ledger.TotalValue(all))

	require.NoError(t, repo.Archive(ctx, a.ID))

	all, err = repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(5), ledger.TotalValue(all))

	deleted, err := repo.FetchDeleted(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, a.ID, deleted[0].ID)
}

// hookStore позволяет вклиниться перед условной записью,
// чтобы детерминированно воспроизводить CAS-гонки.
type hookStore struct {
	domain.PersistentStore
	beforeWrite func(key string)
}

func (s *hookStore) WriteCollection(ctx context.Context, key string, records []json.RawMessage, expectedRevision int64) (int64, error) {
	if s.beforeWrite != nil {
		s.beforeWrite(key)
	}
	return s.PersistentStore.WriteCollection(ctx, key, records, expectedRevision)
}

func TestRepository_ConcurrentUpdatesBothSurvive(t *testing.T) {
	inner := memory.NewDocumentStore()
	hooked := &hookStore{PersistentStore: inner}
	repo := newTestRepository(t, hooked)
	ctx := context.Background()

	recA, err := repo.Create(ctx, validInput())
	require.NoError(t, err)
	inB := validInput()
	inB.CustomerName = "Bob Smith"
	inB.CustomerEmail = "bob@example.com"
	recB, err := repo.Create(ctx, inB)
	require.NoError(t, err)

	// Первый update читает коллекцию, после чего конкурент успевает выполнить
	// полный цикл по другой записи. Без CAS запись конкурента была бы молча
	// затёрта; с CAS первый update получает конфликт ревизии и повторяет цикл.
	competitor := newTestRepository(t, inner)
	interfered := false
	hooked.beforeWrite = func(key string) {
		if interfered || key != domain.CollectionActiveOrders {
			return
		}
		interfered = true
		email := "bob.updated@example.com"
		_, err := competitor.Update(ctx, recB.ID, domain.OrderPatch{CustomerEmail: &email})
		require.NoError(t, err)
	}

	name := "Alice Cooper"
	_, err = repo.Update(ctx, recA.ID, domain.OrderPatch{CustomerName: &name})
	require.NoError(t, err)
	require.True(t, interfered)

	all, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byID := map[string]domain.OrderRecord{}
	for _, rec := range all {
		byID[rec.ID] = rec
	}
	assert.Equal(t, "Alice Cooper", byID[recA.ID].CustomerName)
	assert.Equal(t, "bob.updated@example.com", byID[recB.ID].CustomerEmail)
}

func TestRepository_RevisionConflictRetriesExhausted(t *testing.T) {
	inner := memory.NewDocumentStore()
	hooked := &hookStore{PersistentStore: inner}
	repo := newTestRepository(t, hooked)
	ctx := context.Background()

	rec, err := repo.Create(ctx, validInput())
	require.NoError(t, err)

	// Каждая попытка записи проигрывает гонку очередной чужой мутации.
	competitor := newTestRepository(t, inner)
	hooked.beforeWrite = func(key string) {
		if key != domain.CollectionActiveOrders {
			return
		}
		qty := int32(9)
		_, err := competitor.Update(ctx, rec.ID, domain.OrderPatch{Quantity: &qty})
		require.NoError(t, err)
	}

	name := "Alice Cooper"
	_, err = repo.Update(ctx, rec.ID, domain.OrderPatch{CustomerName: &name})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, domain.ErrRevisionConflict)
}

// faultyStore проваливает условные записи, имитируя недоступность хранилища
// между фазами архивации.
type faultyStore struct {
	domain.PersistentStore
	failWrites bool
}

func (s *faultyStore) WriteCollection(ctx context.Context, key string, records []json.RawMessage, expectedRevision int64) (int64, error) {
	if s.failWrites {
		return 0, fmt.Errorf("write %s: %w", key, errConnectionReset)
	}
	return s.PersistentStore.WriteCollection(ctx, key, records, expectedRevision)
}

var errConnectionReset = errors.New("connection reset")

func TestRepository_ArchivePartialFailureThenRetry(t *testing.T) {
	inner := memory.NewDocumentStore()
	faulty := &faultyStore{PersistentStore: inner}
	repo := newTestRepository(t, faulty)
	ctx := context.Background()

	rec, err := repo.Create(ctx, validInput())
	require.NoError(t, err)

	// Фаза (a) проходит, фаза (b) падает: заказ остаётся в обеих коллекциях.
	faulty.failWrites = true
	err = repo.Archive(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, domain.IsPartialArchive(err))

	all, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	deleted, err := repo.FetchDeleted(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	// Повтор выполняет только недостающую фазу (b): дубликата в архиве нет.
	faulty.failWrites = false
	require.NoError(t, repo.Archive(ctx, rec.ID))

	all, err = repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	deleted, err = repo.FetchDeleted(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, rec.ID, deleted[0].ID)
}

func TestRepository_ArchiveRetryAfterCompletionIsNoop(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())
	ctx := context.Background()

	rec, err := repo.Create(ctx, validInput())
	require.NoError(t, err)
	require.NoError(t, repo.Archive(ctx, rec.ID))

	// Полностью завершённая архивация при повторе ничего не меняет.
	require.NoError(t, repo.Archive(ctx, rec.ID))

	deleted, err := repo.FetchDeleted(ctx)
	require.NoError(t, err)
	assert.Len(t, deleted, 1)
}

func TestRepository_StoreUnavailableSurfaced(t *testing.T) {
	inner := memory.NewDocumentStore()
	faulty := &faultyStore{PersistentStore: inner, failWrites: true}
	repo := newTestRepository(t, faulty)

	_, err := repo.Create(context.Background(), validInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errConnectionReset)
}

func TestRepository_FetchAllOnEmptyStore(t *testing.T) {
	repo := newTestRepository(t, memory.NewDocumentStore())
	ctx := context.Background()

	all, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	deleted, err := repo.FetchDeleted(ctx)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}
