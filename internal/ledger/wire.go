//go:build wireinject
// +build wireinject

package ledger

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/part-ledger/internal/config"
	httpDelivery "github.com/tair/part-ledger/internal/ledger/delivery/http"
	"github.com/tair/part-ledger/internal/ledger/store"
	"github.com/tair/part-ledger/internal/ledger/usecase/command"
)

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideLedgerRepository,
	ProvideAuditSink,
	store.NewLedger,
)

var CommandHandlerSet = wire.NewSet(
	ProvideImportOptions,
	command.NewMetrics,
	command.NewImportHandler,
	command.NewAdjustAssignmentHandler,
)

// InitializeApp initializes the ledger with all dependencies
func InitializeApp(cfg *config.Config, sub *Substrate, reg prometheus.Registerer) (*App, func(), error) {
	wire.Build(
		RepositorySet,
		CommandHandlerSet,
		httpDelivery.NewLedgerHandler,
		ProvideHealthChecker,
		NewApp,
	)
	return nil, nil, nil
}
