package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tair/part-ledger/internal/config"
	httpDelivery "github.com/tair/part-ledger/internal/ledger/delivery/http"
	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/repository"
	"github.com/tair/part-ledger/internal/ledger/repository/kv"
	"github.com/tair/part-ledger/internal/ledger/repository/memory"
	"github.com/tair/part-ledger/internal/ledger/store"
	"github.com/tair/part-ledger/internal/ledger/usecase/command"
	"github.com/tair/part-ledger/kafka"
	"github.com/tair/part-ledger/pkg/database"
	"github.com/tair/part-ledger/pkg/logger"
)

// Substrate holds the open connections behind the configured backends.
// Fields for backends that are not in use stay nil.
type Substrate struct {
	Gorm  *gorm.DB
	SQL   *sql.DB
	Redis *redis.Client
}

// Ping checks every open connection
func (s *Substrate) Ping(ctx context.Context) error {
	if s.SQL != nil {
		if err := s.SQL.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// OpenSubstrate connects to whatever STORE_BACKEND and AUDIT_BACKEND need and
// runs the schema migrations on relational stores
func OpenSubstrate(ctx context.Context, cfg *config.Config) (*Substrate, func(), error) {
	sub := &Substrate{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Substrate, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	var err error
	switch cfg.StoreBackend {
	case config.StorePostgres:
		if sub.Gorm, err = database.NewGormConnection(cfg.Database); err != nil {
			return fail(err)
		}
	case config.StoreSQLite:
		if sub.Gorm, err = database.NewSQLiteConnection(cfg.SQLitePath); err != nil {
			return fail(err)
		}
	case config.StoreRedis:
		if sub.Redis, err = kv.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			return fail(fmt.Errorf("failed to connect to redis: %w", err))
		}
		closers = append(closers, func() { sub.Redis.Close() })
	}

	if sub.Gorm != nil {
		if sub.SQL, err = sub.Gorm.DB(); err != nil {
			return fail(fmt.Errorf("failed to get database instance: %w", err))
		}
		closers = append(closers, func() { sub.SQL.Close() })
	}

	// The SQL audit log needs a database even when ledger data lives elsewhere
	if cfg.AuditBackend == config.AuditSQL && sub.SQL == nil {
		if sub.SQL, err = database.NewPostgresConnection(cfg.Database); err != nil {
			return fail(err)
		}
		closers = append(closers, func() { sub.SQL.Close() })
		if sub.Gorm, err = database.NewGormFromSQL(sub.SQL); err != nil {
			return fail(err)
		}
	}

	if sub.Gorm != nil {
		if err := repository.Migrate(sub.Gorm); err != nil {
			return fail(fmt.Errorf("failed to run migrations: %w", err))
		}
		logger.Logger.Info().Msg("Database initialized successfully")
	}

	return sub, cleanup, nil
}

// ProvideLedgerRepository picks the repository for STORE_BACKEND and wraps it
// with tracing
func ProvideLedgerRepository(cfg *config.Config, sub *Substrate) (domain.LedgerRepository, error) {
	var repo domain.LedgerRepository
	switch cfg.StoreBackend {
	case config.StoreMemory:
		repo = memory.NewLedgerRepository()
	case config.StoreRedis:
		if sub.Redis == nil {
			return nil, fmt.Errorf("redis store selected but no redis client is open")
		}
		repo = kv.NewLedgerRepository(kv.NewRedisStore(sub.Redis), cfg.Redis.KeyPrefix)
	case config.StorePostgres, config.StoreSQLite:
		if sub.Gorm == nil {
			return nil, fmt.Errorf("%s store selected but no database is open", cfg.StoreBackend)
		}
		repo = repository.NewGormLedgerRepository(sub.Gorm)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	return repository.NewTracingLedgerRepository(repo), nil
}

// ProvideAuditSink picks the sink for AUDIT_BACKEND
func ProvideAuditSink(cfg *config.Config, sub *Substrate) (domain.AuditSink, func(), error) {
	switch cfg.AuditBackend {
	case config.AuditKafka:
		pub, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return nil, nil, err
		}
		return pub, func() { pub.Close() }, nil
	case config.AuditSQL:
		if sub.SQL == nil {
			return nil, nil, fmt.Errorf("sql audit selected but no database is open")
		}
		return repository.NewSQLAuditSink(sub.SQL), func() {}, nil
	}
	return domain.NopAuditSink{}, func() {}, nil
}

// ProvideImportOptions maps configuration onto the reconciler options
func ProvideImportOptions(cfg *config.Config) command.ImportOptions {
	return command.ImportOptions{BatchSize: cfg.ImportBatchSize}
}

// ProvideHealthChecker exposes the substrate ping to /health
func ProvideHealthChecker(sub *Substrate) httpDelivery.HealthChecker {
	return sub.Ping
}

// App is the assembled ledger: the HTTP handler plus the pieces the binaries
// drive directly
type App struct {
	Handler  *httpDelivery.LedgerHandler
	Health   httpDelivery.HealthChecker
	Ledger   *store.Ledger
	Repo     domain.LedgerRepository
	Importer *command.ImportHandler
	Adjust   *command.AdjustAssignmentHandler
}

// NewApp collects the wired components
func NewApp(
	handler *httpDelivery.LedgerHandler,
	health httpDelivery.HealthChecker,
	ledger *store.Ledger,
	repo domain.LedgerRepository,
	importer *command.ImportHandler,
	adjust *command.AdjustAssignmentHandler,
) *App {
	return &App{
		Handler:  handler,
		Health:   health,
		Ledger:   ledger,
		Repo:     repo,
		Importer: importer,
		Adjust:   adjust,
	}
}
