// Package kv keeps each job aggregate as one JSON document in a key-value
// store. Every mutation reads the document, changes it and writes it back.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

// LedgerRepository stores jobs under <prefix>:job:<id> and indexes ids in
// the <prefix>:jobs set
type LedgerRepository struct {
	store  Store
	prefix string
}

// NewLedgerRepository creates a new key-value ledger repository
func NewLedgerRepository(store Store, prefix string) *LedgerRepository {
	if prefix == "" {
		prefix = "ledger"
	}
	return &LedgerRepository{store: store, prefix: prefix}
}

var _ domain.LedgerRepository = (*LedgerRepository)(nil)

func (r *LedgerRepository) jobKey(id string) string { return r.prefix + ":job:" + id }
func (r *LedgerRepository) indexKey() string        { return r.prefix + ":jobs" }

func (r *LedgerRepository) load(ctx context.Context, id string) (*domain.Job, error) {
	raw, err := r.store.Get(ctx, r.jobKey(id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", id, err)
	}

	var job domain.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	if job.Parts == nil {
		job.Parts = make(map[string]*domain.Part)
	}
	for pn, p := range job.Parts {
		if p.Locations == nil {
			p.Locations = make(map[string]int)
		}
		if p.Assigned == nil {
			p.Assigned = make(map[string]int)
		}
		p.PartNumber = pn
	}
	return &job, nil
}

func (r *LedgerRepository) save(ctx context.Context, job *domain.Job) error {
	job.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	if err := r.store.Set(ctx, r.jobKey(job.ID), string(raw)); err != nil {
		return fmt.Errorf("failed to write job %s: %w", job.ID, err)
	}
	return r.store.SAdd(ctx, r.indexKey(), job.ID)
}

func (r *LedgerRepository) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return r.load(ctx, id)
}

func (r *LedgerRepository) ListJobs(ctx context.Context) ([]*domain.Job, error) {
	ids, err := r.store.SMembers(ctx, r.indexKey())
	if err != nil {
		return nil, fmt.Errorf("failed to read job index: %w", err)
	}
	sort.Strings(ids)

	jobs := make([]*domain.Job, 0, len(ids))
	for _, id := range ids {
		job, err := r.load(ctx, id)
		if errors.Is(err, domain.ErrJobNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job.Header())
	}
	return jobs, nil
}

func (r *LedgerRepository) SaveJob(ctx context.Context, job *domain.Job) (bool, error) {
	existing, err := r.load(ctx, job.ID)
	if errors.Is(err, domain.ErrJobNotFound) {
		fresh := job.Clone()
		fresh.Parts = make(map[string]*domain.Part)
		if fresh.CreatedAt.IsZero() {
			fresh.CreatedAt = time.Now().UTC()
		}
		return true, r.save(ctx, fresh)
	}
	if err != nil {
		return false, err
	}

	incoming := job.Clone()
	existing.Name = incoming.Name
	existing.PendingImport = incoming.PendingImport
	return false, r.save(ctx, existing)
}

func (r *LedgerRepository) DeleteJob(ctx context.Context, id string) error {
	if _, err := r.load(ctx, id); err != nil {
		return err
	}
	if err := r.store.Del(ctx, r.jobKey(id)); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return r.store.SRem(ctx, r.indexKey(), id)
}

func (r *LedgerRepository) RenameJob(ctx context.Context, oldID, newID string) error {
	job, err := r.load(ctx, oldID)
	if err != nil {
		return err
	}
	if _, err := r.load(ctx, newID); err == nil {
		return domain.ErrJobExists
	} else if !errors.Is(err, domain.ErrJobNotFound) {
		return err
	}

	job.ID = newID
	if err := r.save(ctx, job); err != nil {
		return err
	}
	if err := r.store.Del(ctx, r.jobKey(oldID)); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", oldID, err)
	}
	return r.store.SRem(ctx, r.indexKey(), oldID)
}

func (r *LedgerRepository) GetPart(ctx context.Context, jobID, partNumber string) (*domain.Part, error) {
	_, part, err := r.loadPart(ctx, jobID, partNumber)
	return part, err
}

func (r *LedgerRepository) ListPartsWithLocations(ctx context.Context, jobID string) ([]*domain.Part, error) {
	job, err := r.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.SortedParts(), nil
}

func (r *LedgerRepository) UpsertPart(ctx context.Context, jobID, partNumber, description string) (bool, error) {
	job, err := r.load(ctx, jobID)
	if err != nil {
		return false, err
	}

	part, exists := job.Parts[partNumber]
	switch {
	case !exists:
		job.Parts[partNumber] = domain.NewPart(partNumber, description)
	case part.Description == "" && description != "":
		part.Description = description
	default:
		return false, nil
	}
	return !exists, r.save(ctx, job)
}

func (r *LedgerRepository) DeleteParts(ctx context.Context, jobID string) (int, error) {
	job, err := r.load(ctx, jobID)
	if err != nil {
		return 0, err
	}
	n := len(job.Parts)
	job.Parts = make(map[string]*domain.Part)
	return n, r.save(ctx, job)
}

func (r *LedgerRepository) UpsertLocationCell(ctx context.Context, jobID, partNumber, location string, required, assigned int) (bool, error) {
	job, part, err := r.loadPart(ctx, jobID, partNumber)
	if err != nil {
		return false, err
	}
	_, existed := part.Locations[location]
	part.Locations[location] = required
	part.Assigned[location] = assigned
	return !existed, r.save(ctx, job)
}

func (r *LedgerRepository) SetAssigned(ctx context.Context, jobID, partNumber, location string, assigned int) error {
	job, part, err := r.loadPart(ctx, jobID, partNumber)
	if err != nil {
		return err
	}
	if !part.HasLocation(location) {
		return domain.ErrPartNotFound
	}
	part.Assigned[location] = assigned
	return r.save(ctx, job)
}

func (r *LedgerRepository) UpdateAssigned(ctx context.Context, jobID, partNumber string, assigned map[string]int) error {
	job, part, err := r.loadPart(ctx, jobID, partNumber)
	if err != nil {
		return err
	}
	for loc, qty := range assigned {
		if part.HasLocation(loc) {
			part.Assigned[loc] = qty
		}
	}
	return r.save(ctx, job)
}

// loadPart returns the job too so the caller can write it back
func (r *LedgerRepository) loadPart(ctx context.Context, jobID, partNumber string) (*domain.Job, *domain.Part, error) {
	job, err := r.load(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	part, ok := job.Parts[partNumber]
	if !ok {
		return nil, nil, domain.ErrPartNotFound
	}
	return job, part, nil
}
