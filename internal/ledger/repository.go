package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderledger/internal/catalog"
	"github.com/vladislavdragonenkov/orderledger/internal/domain"
	"github.com/vladislavdragonenkov/orderledger/internal/metrics"
)

// casMaxAttempts ограничивает число повторов read-modify-write цикла
// при конфликте ревизий, после чего ошибка отдаётся вызывающей стороне.
const casMaxAttempts = 3

// RepositoryOptions задаёт опциональные зависимости репозитория.
type RepositoryOptions struct {
	Logger    *log.Entry
	Publisher domain.EventPublisher
	Metrics   *metrics.LedgerMetrics
}

// RepositoryOption настраивает Repository.
type RepositoryOption func(*RepositoryOptions)

// WithLogger задаёт logger репозитория.
func WithLogger(logger *log.Entry) RepositoryOption {
	return func(opts *RepositoryOptions) {
		opts.Logger = logger
	}
}

// WithEventPublisher задаёт шину для публикации событий жизненного цикла заказов.
func WithEventPublisher(publisher domain.EventPublisher) RepositoryOption {
	return func(opts *RepositoryOptions) {
		opts.Publisher = publisher
	}
}

// WithMetrics задаёт метрики репозитория (по умолчанию default registry).
func WithMetrics(m *metrics.LedgerMetrics) RepositoryOption {
	return func(opts *RepositoryOptions) {
		opts.Metrics = m
	}
}

// Repository владеет read-modify-write логикой над коллекциями заказов
// в документном хранилище. Все мутации проходят через условную запись
// по ревизии коллекции с ограниченным числом повторов.
type Repository struct {
	store     domain.PersistentStore
	catalog   *catalog.Catalog
	publisher domain.EventPublisher
	logger    *log.Entry
	metrics   *metrics.LedgerMetrics
}

// NewRepository создаёт репозиторий заказов поверх документного хранилища.
func NewRepository(store domain.PersistentStore, cat *catalog.Catalog, options ...RepositoryOption) *Repository {
	opts := RepositoryOptions{}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-repository")
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewLedgerMetrics()
	}

	return &Repository{
		store:     store,
		catalog:   cat,
		publisher: opts.Publisher,
		logger:    logger,
		metrics:   m,
	}
}

// Create валидирует вход, генерирует id, вычисляет order_value по каталогу
// и дописывает запись в активную коллекцию.
func (r *Repository) Create(ctx context.Context, input domain.NewOrderInput) (rec domain.OrderRecord, err error) {
	started := time.Now()
	defer func() { r.metrics.RecordOperation("create", err, started) }()

	if errs := input.Validate(); len(errs) > 0 {
		err = fmt.Errorf("validate new order: %w", errors.Join(errs...))
		return domain.OrderRecord{}, err
	}
	product, ok := r.catalog.Lookup(input.ProductID)
	if !ok {
		err = fmt.Errorf("product %q: %w", input.ProductID, domain.ErrProductUnknown)
		return domain.OrderRecord{}, err
	}

	rec = domain.OrderRecord{
		ID:            uuid.NewString(),
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		ProductID:     input.ProductID,
		ProductName:   product.Name,
		Quantity:      input.Quantity,
		OrderValue:    float64(input.Quantity) * product.UnitPrice,
	}

	err = r.rewriteActive(ctx, func(records []domain.OrderRecord) ([]domain.OrderRecord, error) {
		return append(records, rec), nil
	})
	if err != nil {
		return domain.OrderRecord{}, err
	}

	r.publishEvent(domain.OrderEventCreated, rec)
	return rec, nil
}

// Update применяет частичное обновление к заказу. order_value пересчитывается
// только если патч явно меняет quantity; прочие правки его не трогают.
func (r *Repository) Update(ctx context.Context, id string, patch domain.OrderPatch) (rec domain.OrderRecord, err error) {
	started := time.Now()
	defer func() { r.metrics.RecordOperation("update", err, started) }()

	if errs := patch.Validate(); len(errs) > 0 {
		err = fmt.Errorf("validate order patch: %w", errors.Join(errs...))
		return domain.OrderRecord{}, err
	}
	if patch.ProductID != nil {
		if _, ok := r.catalog.Lookup(*patch.ProductID); !ok {
			err = fmt.Errorf("product %q: %w", *patch.ProductID, domain.ErrProductUnknown)
			return domain.OrderRecord{}, err
		}
	}

	err = r.rewriteActive(ctx, func(records []domain.OrderRecord) ([]domain.OrderRecord, error) {
		idx := indexOf(records, id)
		if idx < 0 {
			return nil, fmt.Errorf("update order %s: %w", id, domain.ErrOrderNotFound)
		}

		current := records[idx]
		if patch.CustomerName != nil {
			current.CustomerName = *patch.CustomerName
		}
		if patch.CustomerEmail != nil {
			current.CustomerEmail = *patch.CustomerEmail
		}
		if patch.ProductID != nil {
			product, _ := r.catalog.Lookup(*patch.ProductID)
			current.ProductID = *patch.ProductID
			current.ProductName = product.Name
		}
		if patch.Quantity != nil {
			product, ok := r.catalog.Lookup(current.ProductID)
			if !ok {
				return nil, fmt.Errorf("product %q: %w", current.ProductID, domain.ErrProductUnknown)
			}
			current.Quantity = *patch.Quantity
			current.OrderValue = float64(*patch.Quantity) * product.UnitPrice
		}

		records[idx] = current
		rec = current
		return records, nil
	})
	if err != nil {
		return domain.OrderRecord{}, err
	}

	r.publishEvent(domain.OrderEventUpdated, rec)
	return rec, nil
}

// Archive переносит заказ в архив в две фазы: (a) append в deleted-orders,
// (b) перезапись active-orders без записи. Порядок выбран намеренно:
// при сбое между фазами запись дублируется, но не теряется, а повтор
// Archive выполняет только недостающую фазу.
func (r *Repository) Archive(ctx context.Context, id string) (err error) {
	started := time.Now()
	defer func() { r.metrics.RecordOperation("archive", err, started) }()

	deleted, _, derr := r.readDeleted(ctx)
	if derr != nil {
		err = derr
		return err
	}

	var target domain.OrderRecord
	alreadyArchived := false
	for _, d := range deleted {
		if d.ID == id {
			alreadyArchived = true
			target = d.OrderRecord
			break
		}
	}

	if !alreadyArchived {
		active, _, aerr := r.readActive(ctx)
		if aerr != nil {
			err = aerr
			return err
		}
		idx := indexOf(active, id)
		if idx < 0 {
			err = fmt.Errorf("archive order %s: %w", id, domain.ErrOrderNotFound)
			return err
		}
		target = active[idx]

		raw, merr := json.Marshal(domain.DeletedOrderRecord{
			OrderRecord: target,
			DeletedAt:   time.Now().UTC(),
		})
		if merr != nil {
			err = fmt.Errorf("encode deleted order: %w", merr)
			return err
		}
		if perr := r.store.AppendToCollection(ctx, domain.CollectionDeletedOrders, raw); perr != nil {
			err = fmt.Errorf("append to %s: %w: %w", domain.CollectionDeletedOrders, domain.ErrStoreUnavailable, perr)
			return err
		}
	}

	removed := false
	rerr := r.rewriteActive(ctx, func(records []domain.OrderRecord) ([]domain.OrderRecord, error) {
		removed = false
		result := make([]domain.OrderRecord, 0, len(records))
		for _, rec := range records {
			if rec.ID == id {
				removed = true
				continue
			}
			result = append(result, rec)
		}
		return result, nil
	})
	if rerr != nil {
		// Фаза (a) уже выполнена: заказ существует в обеих коллекциях,
		// пока повтор Archive не завершит фазу (b).
		r.metrics.RecordPartialArchive()
		err = fmt.Errorf("archive order %s: %w: %w", id, domain.ErrPartialArchive, rerr)
		return err
	}

	if removed || !alreadyArchived {
		r.publishEvent(domain.OrderEventArchived, target)
	}
	return nil
}

// FetchAll возвращает активную коллекцию целиком; несозданная коллекция читается как пустая.
func (r *Repository) FetchAll(ctx context.Context) (records []domain.OrderRecord, err error) {
	started := time.Now()
	defer func() { r.metrics.RecordOperation("fetch_all", err, started) }()

	records, _, err = r.readActive(ctx)
	return records, err
}

// FetchDeleted возвращает архив удалённых заказов целиком.
func (r *Repository) FetchDeleted(ctx context.Context) (records []domain.DeletedOrderRecord, err error) {
	started := time.Now()
	defer func() { r.metrics.RecordOperation("fetch_deleted", err, started) }()

	records, _, err = r.readDeleted(ctx)
	return records, err
}

// rewriteActive выполняет read-modify-write цикл над активной коллекцией
// с повторами при конфликте ревизий.
func (r *Repository) rewriteActive(ctx context.Context, mutate func([]domain.OrderRecord) ([]domain.OrderRecord, error)) error {
	for attempt := 1; attempt <= casMaxAttempts; attempt++ {
		records, revision, err := r.readActive(ctx)
		if err != nil {
			return err
		}

		mutated, err := mutate(records)
		if err != nil {
			return err
		}

		raw := make([]json.RawMessage, 0, len(mutated))
		for _, rec := range mutated {
			body, merr := json.Marshal(rec)
			if merr != nil {
				return fmt.Errorf("encode order record: %w", merr)
			}
			raw = append(raw, body)
		}

		_, err = r.store.WriteCollection(ctx, domain.CollectionActiveOrders, raw, revision)
		if err == nil {
			return nil
		}
		if !domain.IsRevisionConflict(err) {
			return fmt.Errorf("write %s: %w: %w", domain.CollectionActiveOrders, domain.ErrStoreUnavailable, err)
		}

		r.metrics.RecordRevisionConflict()
		r.logger.WithFields(log.Fields{
			"collection": domain.CollectionActiveOrders,
			"attempt":    attempt,
		}).Debug("revision conflict, retrying rewrite")
	}

	return fmt.Errorf("rewrite %s: %w: %w", domain.CollectionActiveOrders, domain.ErrStoreUnavailable, domain.ErrRevisionConflict)
}

func (r *Repository) readActive(ctx context.Context) ([]domain.OrderRecord, int64, error) {
	raw, revision, err := r.store.ReadCollection(ctx, domain.CollectionActiveOrders)
	if err != nil {
		if errors.Is(err, domain.ErrCollectionNotExists) {
			return []domain.OrderRecord{}, 0, nil
		}
		return nil, 0, fmt.Errorf("read %s: %w: %w", domain.CollectionActiveOrders, domain.ErrStoreUnavailable, err)
	}

	records := make([]domain.OrderRecord, 0, len(raw))
	for _, body := range raw {
		var rec domain.OrderRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, 0, fmt.Errorf("decode order record: %w", err)
		}
		records = append(records, rec)
	}
	return records, revision, nil
}

func (r *Repository) readDeleted(ctx context.Context) ([]domain.DeletedOrderRecord, int64, error) {
	raw, revision, err := r.store.ReadCollection(ctx, domain.CollectionDeletedOrders)
	if err != nil {
		if errors.Is(err, domain.ErrCollectionNotExists) {
			return []domain.DeletedOrderRecord{}, 0, nil
		}
		return nil, 0, fmt.Errorf("read %s: %w: %w", domain.CollectionDeletedOrders, domain.ErrStoreUnavailable, err)
	}

	records := make([]domain.DeletedOrderRecord, 0, len(raw))
	for _, body := range raw {
		var rec domain.DeletedOrderRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, 0, fmt.Errorf("decode deleted order record: %w", err)
		}
		records = append(records, rec)
	}
	return records, revision, nil
}

func (r *Repository) publishEvent(eventType domain.OrderEventType, rec domain.OrderRecord) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishOrderEvent(eventType, rec); err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"event_type": string(eventType),
			"order_id":   rec.ID,
		}).Warn("failed to publish order event")
	}
}

func indexOf(records []domain.OrderRecord, id string) int {
	for i, rec := range records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

var _ domain.OrderRepository = (*Repository)(nil)
