// Package store is the Job -> Part -> Location ledger. It is the only code
// that decides required and assigned quantities; everything else asks it.
//
// Invariant, for every cell: 0 <= assigned <= required and required > 0.
//
// Every operation is a read followed by a write against the repository with
// no transaction around them. Two writers mutating the same cell at the same
// time race and the last write wins; there is no conflict detection.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

// CellChange reports what an UpsertCell call touched
type CellChange struct {
	PartCreated bool
	CellCreated bool
	Required    int
	Assigned    int
}

// Ledger enforces the cell invariant over a repository
type Ledger struct {
	repo domain.LedgerRepository
}

// NewLedger creates a new ledger store
func NewLedger(repo domain.LedgerRepository) *Ledger {
	return &Ledger{repo: repo}
}

// Clamp bounds an assigned quantity to [0, required]
func Clamp(assigned, required int) int {
	if assigned < 0 {
		return 0
	}
	if assigned > required {
		return required
	}
	return assigned
}

// LocationKey trims a location and substitutes the sentinel for blanks
func LocationKey(location string) string {
	if loc := strings.TrimSpace(location); loc != "" {
		return loc
	}
	return domain.UnspecifiedLocation
}

// EnsureJob looks a job up, creating it when absent
func (l *Ledger) EnsureJob(ctx context.Context, id, displayName string) (*domain.Job, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, fmt.Errorf("job id is required")
	}

	job, err := l.repo.GetJob(ctx, id)
	if err == nil {
		return job, false, nil
	}
	if !errors.Is(err, domain.ErrJobNotFound) {
		return nil, false, fmt.Errorf("failed to get job: %w", err)
	}

	if displayName == "" {
		displayName = id
	}
	job = domain.NewJob(id, displayName)
	if _, err := l.repo.SaveJob(ctx, job); err != nil {
		return nil, false, fmt.Errorf("failed to create job: %w", err)
	}
	return job, true, nil
}

// Job returns the full aggregate
func (l *Ledger) Job(ctx context.Context, id string) (*domain.Job, error) {
	return l.repo.GetJob(ctx, id)
}

// Jobs returns every job header
func (l *Ledger) Jobs(ctx context.Context) ([]*domain.Job, error) {
	return l.repo.ListJobs(ctx)
}

// SetPendingImport stores (or with nil clears) the rows awaiting a mapping
func (l *Ledger) SetPendingImport(ctx context.Context, jobID string, pending *domain.PendingImport) error {
	job, err := l.repo.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.PendingImport = pending
	if pending != nil && pending.FileName != "" {
		job.Name = pending.FileName
	}
	if _, err := l.repo.SaveJob(ctx, job.Header()); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// RequiredAt returns the required quantity of a cell, 0 when it does not exist
func (l *Ledger) RequiredAt(ctx context.Context, jobID, partNumber, location string) (int, error) {
	part, err := l.repo.GetPart(ctx, jobID, partNumber)
	if errors.Is(err, domain.ErrPartNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return part.Locations[LocationKey(location)], nil
}

// UpsertCell adds delta to a cell's required quantity, creating the part and
// the cell on first use. Assigned starts at 0 and is only ever pulled down
// to stay within required. The description is kept if already set. When the
// cell write fails, the returned change still reports PartCreated.
func (l *Ledger) UpsertCell(ctx context.Context, jobID, partNumber, location string, delta int, description string) (CellChange, error) {
	partNumber = strings.TrimSpace(partNumber)
	if partNumber == "" {
		return CellChange{}, fmt.Errorf("part number is required")
	}
	location = LocationKey(location)

	var required, assigned int
	part, err := l.repo.GetPart(ctx, jobID, partNumber)
	switch {
	case err == nil:
		required, assigned = part.Locations[location], part.Assigned[location]
	case errors.Is(err, domain.ErrPartNotFound):
	default:
		return CellChange{}, fmt.Errorf("failed to get part: %w", err)
	}

	newRequired := required + delta
	if newRequired <= 0 {
		return CellChange{}, fmt.Errorf("%w: %s at %s would be %d", domain.ErrInvalidQuantity, partNumber, location, newRequired)
	}

	change := CellChange{Required: newRequired, Assigned: Clamp(assigned, newRequired)}

	change.PartCreated, err = l.repo.UpsertPart(ctx, jobID, partNumber, strings.TrimSpace(description))
	if err != nil {
		return CellChange{}, fmt.Errorf("failed to upsert part: %w", err)
	}

	change.CellCreated, err = l.repo.UpsertLocationCell(ctx, jobID, partNumber, location, change.Required, change.Assigned)
	if err != nil {
		// the part may exist by now even though its cell does not
		return CellChange{PartCreated: change.PartCreated}, fmt.Errorf("failed to upsert location cell: %w", err)
	}
	return change, nil
}

// ReplaceJobContents drops every part of the job and reports how many went
func (l *Ledger) ReplaceJobContents(ctx context.Context, jobID string) (int, error) {
	n, err := l.repo.DeleteParts(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear job parts: %w", err)
	}
	return n, nil
}

// RenameJob rekeys a job. It is a no-op returning false when newID is taken.
func (l *Ledger) RenameJob(ctx context.Context, oldID, newID string) (bool, error) {
	newID = strings.TrimSpace(newID)
	if newID == "" {
		return false, fmt.Errorf("new job id is required")
	}
	if newID == oldID {
		return false, nil
	}

	err := l.repo.RenameJob(ctx, oldID, newID)
	if errors.Is(err, domain.ErrJobExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteJob removes a job and all of its parts
func (l *Ledger) DeleteJob(ctx context.Context, id string) error {
	return l.repo.DeleteJob(ctx, id)
}

// UpdateAssigned recomputes one cell's assigned quantity through fn and
// clamps the result. found is false when the job, part or location does
// not exist; that is not an error.
func (l *Ledger) UpdateAssigned(ctx context.Context, jobID, partNumber, location string, fn func(assigned, required int) int) (*domain.Part, bool, error) {
	part, found, err := l.lookupPart(ctx, jobID, partNumber)
	if err != nil || !found {
		return nil, false, err
	}

	location = LocationKey(location)
	required, ok := part.Locations[location]
	if !ok {
		return nil, false, nil
	}

	current := part.Assigned[location]
	next := Clamp(fn(current, required), required)
	if next != current {
		if err := l.repo.SetAssigned(ctx, jobID, partNumber, location, next); err != nil {
			return nil, false, fmt.Errorf("failed to set assigned: %w", err)
		}
		part.Assigned[location] = next
	}
	return part, true, nil
}

// FillPart sets assigned = required at every location of the part
func (l *Ledger) FillPart(ctx context.Context, jobID, partNumber string) (*domain.Part, bool, error) {
	part, found, err := l.lookupPart(ctx, jobID, partNumber)
	if err != nil || !found {
		return nil, false, err
	}

	filled := make(map[string]int, len(part.Locations))
	for loc, required := range part.Locations {
		filled[loc] = required
	}
	if err := l.repo.UpdateAssigned(ctx, jobID, partNumber, filled); err != nil {
		return nil, false, fmt.Errorf("failed to update assigned: %w", err)
	}
	part.Assigned = filled
	return part, true, nil
}

// ReplaceAll swaps the whole job set for the given one. Cells that break the
// invariant are repaired on the way in: non-positive required is dropped
// and assigned is clamped. Incoming jobs are written before jobs missing from
// the set are deleted, so a substrate failure midway leaves every job not yet
// reached as it was. There is no rollback of jobs already written.
func (l *Ledger) ReplaceAll(ctx context.Context, jobs map[string]*domain.Job) error {
	existing, err := l.repo.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, job := range existing {
		present[job.ID] = true
	}

	ids := make([]string, 0, len(jobs))
	for id := range jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if present[id] {
			if _, err := l.repo.DeleteParts(ctx, id); err != nil {
				return fmt.Errorf("failed to clear job %s: %w", id, err)
			}
		}
		if err := l.loadJob(ctx, id, jobs[id]); err != nil {
			return err
		}
	}

	for _, job := range existing {
		if _, keep := jobs[job.ID]; keep {
			continue
		}
		if err := l.repo.DeleteJob(ctx, job.ID); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
			return fmt.Errorf("failed to delete job %s: %w", job.ID, err)
		}
	}
	return nil
}

func (l *Ledger) loadJob(ctx context.Context, id string, job *domain.Job) error {
	header := job.Header()
	header.ID = id
	if header.Name == "" {
		header.Name = id
	}
	if _, err := l.repo.SaveJob(ctx, header); err != nil {
		return fmt.Errorf("failed to save job %s: %w", id, err)
	}

	for partNumber, part := range job.Parts {
		partNumber = strings.TrimSpace(partNumber)
		if partNumber == "" || part == nil || !hasPositiveCell(part) {
			continue
		}
		if _, err := l.repo.UpsertPart(ctx, id, partNumber, part.Description); err != nil {
			return fmt.Errorf("failed to restore part %s: %w", partNumber, err)
		}
		for loc, required := range part.Locations {
			if required <= 0 {
				continue
			}
			assigned := Clamp(part.Assigned[loc], required)
			if _, err := l.repo.UpsertLocationCell(ctx, id, partNumber, LocationKey(loc), required, assigned); err != nil {
				return fmt.Errorf("failed to restore cell %s/%s: %w", partNumber, loc, err)
			}
		}
	}
	return nil
}

func hasPositiveCell(part *domain.Part) bool {
	for _, required := range part.Locations {
		if required > 0 {
			return true
		}
	}
	return false
}

func (l *Ledger) lookupPart(ctx context.Context, jobID, partNumber string) (*domain.Part, bool, error) {
	part, err := l.repo.GetPart(ctx, jobID, strings.TrimSpace(partNumber))
	if errors.Is(err, domain.ErrJobNotFound) || errors.Is(err, domain.ErrPartNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get part: %w", err)
	}
	return part, true, nil
}
