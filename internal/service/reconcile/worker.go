package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderledger/internal/domain"
	"github.com/vladislavdragonenkov/orderledger/internal/ledger"
)

// defaultInterval — период фоновой синхронизации projection cache с хранилищем.
const defaultInterval = 5 * time.Second

var (
	reconcileTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderledger_reconcile_ticks_total",
		Help: "Total number of reconciler ticks grouped by result.",
	}, []string{"result"})
	reconcileLastSyncTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderledger_reconcile_last_sync_timestamp_seconds",
		Help: "Unix timestamp of the last successful reconciliation.",
	})
	reconcileProjectedOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderledger_reconcile_projected_orders",
		Help: "Number of active orders in the projection cache after the last sync.",
	})
)

// Options задаёт параметры reconcile-воркера.
type Options struct {
	Logger   *log.Entry
	Interval time.Duration
}

// Option настраивает Worker.
type Option func(*Options)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithInterval задаёт интервал между синхронизациями.
func WithInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = interval
	}
}

// Worker периодически перечитывает обе коллекции из хранилища и безусловно
// применяет их к projection cache. Ошибки синхронизации проглатываются:
// кэш остаётся прежним, повтором служит следующий tick.
type Worker struct {
	repo     domain.OrderRepository
	cache    *ledger.ProjectionCache
	logger   *log.Entry
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewWorker создаёт reconcile-воркер.
func NewWorker(repo domain.OrderRepository, cache *ledger.ProjectionCache, options ...Option) *Worker {
	opts := Options{
		Interval: defaultInterval,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "reconcile-worker")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}

	return &Worker{
		repo:     repo,
		cache:    cache,
		logger:   logger,
		interval: opts.Interval,
	}
}

// Run синхронизирует кэш сразу и далее по таймеру до отмены ctx.
// Таймер останавливается при выходе, «висящих» тикеров не остаётся.
func (w *Worker) Run(ctx context.Context) {
	w.sync(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sync(ctx)
		}
	}
}

// Start запускает Run в отдельной горутине. Повторный Start игнорируется.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		w.cancel = cancel
		w.done = make(chan struct{})

		go func() {
			defer close(w.done)
			w.Run(ctx)
		}()
	})
}

// Stop останавливает воркер и дожидается завершения горутины.
// Идемпотентен и безопасен, если Start не вызывался.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel == nil {
			return
		}
		w.cancel()
		<-w.done
	})
}

// sync выполняет один цикл синхронизации двух коллекций.
func (w *Worker) sync(ctx context.Context) {
	active, err := w.repo.FetchAll(ctx)
	if err != nil {
		w.failTick(err)
		return
	}
	deleted, err := w.repo.FetchDeleted(ctx)
	if err != nil {
		w.failTick(err)
		return
	}

	w.cache.ApplyRemoteActive(active)
	w.cache.ApplyRemoteDeleted(deleted)

	reconcileTicksTotal.WithLabelValues("ok").Inc()
	reconcileLastSyncTimestamp.SetToCurrentTime()
	reconcileProjectedOrders.Set(float64(len(active)))
}

// failTick фиксирует неудачный цикл; кэш сохраняет предыдущее состояние.
func (w *Worker) failTick(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	reconcileTicksTotal.WithLabelValues("error").Inc()
	w.logger.WithError(err).Warn("reconcile tick failed, keeping stale projection")
}
