package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderledger/internal/domain"
	"github.com/vladislavdragonenkov/orderledger/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderledger/internal/storage/postgres"
)

// initStore выбирает реализацию PersistentStore: PostgreSQL при наличии DSN,
// иначе in-memory хранилище для локальной разработки.
// Второй результат не nil только для PostgreSQL и должен быть закрыт вызывающей стороной.
func initStore(ctx context.Context, dsn string, logger *log.Entry) (domain.PersistentStore, *postgres.Store, error) {
	if dsn == "" {
		logger.Info("postgres dsn is empty, using in-memory document store")
		return memory.NewDocumentStore(), nil, nil
	}

	pg, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		_ = pg.Close()
		return nil, nil, err
	}

	logger.Info("postgres document store initialized")
	return postgres.NewDocumentStore(pg), pg, nil
}
