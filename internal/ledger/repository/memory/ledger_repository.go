package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

// LedgerRepository keeps every job aggregate in process memory. The mutex
// makes each call atomic; sequences of calls are not.
type LedgerRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewLedgerRepository creates a new in-memory ledger repository
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		jobs: make(map[string]*domain.Job),
	}
}

// Verify interface compliance
var _ domain.LedgerRepository = (*LedgerRepository)(nil)

func (r *LedgerRepository) GetJob(_ context.Context, id string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (r *LedgerRepository) ListJobs(_ context.Context) ([]*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job.Clone().Header())
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].ID < jobs[b].ID })
	return jobs, nil
}

func (r *LedgerRepository) SaveJob(_ context.Context, job *domain.Job) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	incoming := job.Clone()
	existing, ok := r.jobs[job.ID]
	if !ok {
		incoming.Parts = make(map[string]*domain.Part)
		if incoming.CreatedAt.IsZero() {
			incoming.CreatedAt = time.Now().UTC()
		}
		incoming.UpdatedAt = time.Now().UTC()
		r.jobs[job.ID] = incoming
		return true, nil
	}

	existing.Name = incoming.Name
	existing.PendingImport = incoming.PendingImport
	existing.UpdatedAt = time.Now().UTC()
	return false, nil
}

func (r *LedgerRepository) DeleteJob(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(r.jobs, id)
	return nil
}

func (r *LedgerRepository) RenameJob(_ context.Context, oldID, newID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[oldID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if _, taken := r.jobs[newID]; taken {
		return domain.ErrJobExists
	}
	delete(r.jobs, oldID)
	job.ID = newID
	job.UpdatedAt = time.Now().UTC()
	r.jobs[newID] = job
	return nil
}

func (r *LedgerRepository) GetPart(_ context.Context, jobID, partNumber string) (*domain.Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	part, err := r.findPart(jobID, partNumber)
	if err != nil {
		return nil, err
	}
	return part.Clone(), nil
}

func (r *LedgerRepository) ListPartsWithLocations(_ context.Context, jobID string) ([]*domain.Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	parts := job.SortedParts()
	for i, p := range parts {
		parts[i] = p.Clone()
	}
	return parts, nil
}

func (r *LedgerRepository) UpsertPart(_ context.Context, jobID, partNumber, description string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return false, domain.ErrJobNotFound
	}
	if part, exists := job.Parts[partNumber]; exists {
		if part.Description == "" {
			part.Description = description
		}
		return false, nil
	}
	job.Parts[partNumber] = domain.NewPart(partNumber, description)
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *LedgerRepository) DeleteParts(_ context.Context, jobID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return 0, domain.ErrJobNotFound
	}
	n := len(job.Parts)
	job.Parts = make(map[string]*domain.Part)
	job.UpdatedAt = time.Now().UTC()
	return n, nil
}

func (r *LedgerRepository) UpsertLocationCell(_ context.Context, jobID, partNumber, location string, required, assigned int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	part, err := r.findPart(jobID, partNumber)
	if err != nil {
		return false, err
	}
	_, existed := part.Locations[location]
	part.Locations[location] = required
	part.Assigned[location] = assigned
	return !existed, nil
}

func (r *LedgerRepository) SetAssigned(_ context.Context, jobID, partNumber, location string, assigned int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	part, err := r.findPart(jobID, partNumber)
	if err != nil {
		return err
	}
	if !part.HasLocation(location) {
		return domain.ErrPartNotFound
	}
	part.Assigned[location] = assigned
	return nil
}

func (r *LedgerRepository) UpdateAssigned(_ context.Context, jobID, partNumber string, assigned map[string]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	part, err := r.findPart(jobID, partNumber)
	if err != nil {
		return err
	}
	for loc, qty := range assigned {
		if part.HasLocation(loc) {
			part.Assigned[loc] = qty
		}
	}
	return nil
}

// findPart must be called with the lock held
func (r *LedgerRepository) findPart(jobID, partNumber string) (*domain.Part, error) {
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	part, ok := job.Parts[partNumber]
	if !ok {
		return nil, domain.ErrPartNotFound
	}
	return part, nil
}
