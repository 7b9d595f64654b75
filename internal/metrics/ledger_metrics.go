package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics содержит метрики операций слоя согласованности заказов.
type LedgerMetrics struct {
	// Счётчик операций репозитория по операции и результату.
	operations *prometheus.CounterVec

	// Счётчик CAS-конфликтов при перезаписи активной коллекции.
	revisionConflicts prometheus.Counter

	// Счётчик частичных архиваций (фаза (a) выполнена, фаза (b) нет).
	partialArchives prometheus.Counter

	// Гистограмма времени выполнения операций.
	operationDuration *prometheus.HistogramVec
}

// NewLedgerMetrics создаёт метрики и регистрирует их в default registry.
func NewLedgerMetrics() *LedgerMetrics {
	return NewLedgerMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewLedgerMetricsWithRegisterer создаёт метрики с явным registerer (для тестов).
func NewLedgerMetricsWithRegisterer(registerer prometheus.Registerer) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &LedgerMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderledger_operations_total",
			Help: "Total number of ledger repository operations grouped by op and result.",
		}, []string{"op", "result"}),
		revisionConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderledger_revision_conflicts_total",
			Help: "Total number of compare-and-swap conflicts during collection rewrites.",
		}),
		partialArchives: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderledger_partial_archives_total",
			Help: "Total number of archive operations that completed only the append phase.",
		}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orderledger_operation_duration_seconds",
			Help:    "Duration of ledger repository operations in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"op"}),
	}
}

// RecordOperation фиксирует завершение операции репозитория.
func (m *LedgerMetrics) RecordOperation(op string, err error, started time.Time) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.operationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// RecordRevisionConflict фиксирует проигранную CAS-гонку.
func (m *LedgerMetrics) RecordRevisionConflict() {
	m.revisionConflicts.Inc()
}

// RecordPartialArchive фиксирует частично выполненную архивацию.
func (m *LedgerMetrics) RecordPartialArchive() {
	m.partialArchives.Inc()
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
