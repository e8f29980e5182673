package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/repository/memory"
	"github.com/tair/part-ledger/internal/ledger/store"
)

var errStoreDown = errors.New("store unavailable")

// flakyRepository fails cell writes for one part number, optionally only at
// one location
type flakyRepository struct {
	*memory.LedgerRepository
	failPart     string
	failLocation string
}

func (r *flakyRepository) UpsertLocationCell(ctx context.Context, jobID, partNumber, location string, required, assigned int) (bool, error) {
	if partNumber == r.failPart && (r.failLocation == "" || location == r.failLocation) {
		return false, errStoreDown
	}
	return r.LedgerRepository.UpsertLocationCell(ctx, jobID, partNumber, location, required, assigned)
}

type recordingSink struct {
	mu      sync.Mutex
	batches []domain.AuditBatch
	err     error
}

func (s *recordingSink) RecordBatch(_ context.Context, batch domain.AuditBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	return s.err
}

type fixture struct {
	ledger   *store.Ledger
	importer *ImportHandler
	sink     *recordingSink
	metrics  *Metrics
}

func newFixture(t *testing.T, repo domain.LedgerRepository, batchSize int) *fixture {
	t.Helper()
	if repo == nil {
		repo = memory.NewLedgerRepository()
	}
	ledger := store.NewLedger(repo)
	sink := &recordingSink{}
	metrics := NewMetrics(prometheus.NewRegistry())
	return &fixture{
		ledger:   ledger,
		importer: NewImportHandler(ledger, sink, metrics, ImportOptions{BatchSize: batchSize}),
		sink:     sink,
		metrics:  metrics,
	}
}

func (f *fixture) job(t *testing.T, id string) *domain.Job {
	t.Helper()
	job, err := f.ledger.Job(context.Background(), id)
	require.NoError(t, err)
	return job
}

func (f *fixture) seed(t *testing.T, jobID string, tuples ...domain.Tuple) {
	t.Helper()
	_, err := f.importer.Handle(context.Background(), ImportCommand{JobID: jobID, Tuples: tuples})
	require.NoError(t, err)
}
