package domain

import "context"

// LedgerRepository is the read/write contract against the persistence
// substrate. Implementations are plain storage: they do not enforce the
// required/assigned invariant, the ledger store does. Each call is its own
// round trip; there is no cross-call transaction, so two writers touching the
// same cell race with last-write-wins.
type LedgerRepository interface {
	// GetJob returns the full aggregate including parts, or ErrJobNotFound
	GetJob(ctx context.Context, id string) (*Job, error)
	// ListJobs returns job headers (parts not loaded) ordered by id
	ListJobs(ctx context.Context) ([]*Job, error)
	// SaveJob upserts the job's name and pending import; parts are untouched
	SaveJob(ctx context.Context, job *Job) (created bool, err error)
	DeleteJob(ctx context.Context, id string) error
	// RenameJob rekeys a job; ErrJobExists if newID is taken
	RenameJob(ctx context.Context, oldID, newID string) error

	// GetPart returns one part with its cells, or ErrPartNotFound
	GetPart(ctx context.Context, jobID, partNumber string) (*Part, error)
	// ListPartsWithLocations returns all parts ordered by part number
	ListPartsWithLocations(ctx context.Context, jobID string) ([]*Part, error)
	// UpsertPart creates the part if absent and fills an empty description
	UpsertPart(ctx context.Context, jobID, partNumber, description string) (created bool, err error)
	// DeleteParts removes every part of the job and returns how many went
	DeleteParts(ctx context.Context, jobID string) (int, error)

	// UpsertLocationCell writes both counters of a cell, creating it if absent
	UpsertLocationCell(ctx context.Context, jobID, partNumber, location string, required, assigned int) (created bool, err error)
	// SetAssigned writes the assigned counter of an existing cell
	SetAssigned(ctx context.Context, jobID, partNumber, location string, assigned int) error
	// UpdateAssigned writes assigned counters for several cells of one part
	UpdateAssigned(ctx context.Context, jobID, partNumber string, assigned map[string]int) error
}
