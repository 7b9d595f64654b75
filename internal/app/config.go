package app

import "time"

// Config описывает настройки запуска узла order ledger.
type Config struct {
	// MetricsAddr — адрес HTTP-сервера метрик и health-проверок.
	MetricsAddr string
	// PostgresDSN — DSN документного хранилища; пустая строка включает in-memory режим.
	PostgresDSN string
	// KafkaBrokers — список брокеров через запятую; пустая строка отключает события.
	KafkaBrokers string
	// ReconcileInterval — период фоновой синхронизации projection cache.
	ReconcileInterval time.Duration
}

// DefaultConfig возвращает базовые настройки.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:       ":9090",
		ReconcileInterval: 5 * time.Second,
	}
}
