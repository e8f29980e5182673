package domain

import (
	"sort"
	"time"
)

// UnspecifiedLocation is the location key used when a row carries no location
const UnspecifiedLocation = "UNSPECIFIED"

// PendingImport holds raw rows that are waiting for a confirmed column mapping
type PendingImport struct {
	FileName  string     `json:"fileName"`
	Headers   []string   `json:"headers"`
	Rows      [][]string `json:"rows"`
	HasHeader bool       `json:"hasHeader"`
}

// Width is the number of addressable columns
func (p *PendingImport) Width() int {
	return len(p.Headers)
}

// Part is a unique part number within a job with per-location quantities
type Part struct {
	PartNumber  string         `json:"partNumber"`
	Description string         `json:"description"`
	Locations   map[string]int `json:"locations"`
	Assigned    map[string]int `json:"assigned"`
}

// NewPart returns an empty part ready to receive cells
func NewPart(partNumber, description string) *Part {
	return &Part{
		PartNumber:  partNumber,
		Description: description,
		Locations:   make(map[string]int),
		Assigned:    make(map[string]int),
	}
}

// LocationKeys returns the part's locations in ascending order
func (p *Part) LocationKeys() []string {
	keys := make([]string, 0, len(p.Locations))
	for loc := range p.Locations {
		keys = append(keys, loc)
	}
	sort.Strings(keys)
	return keys
}

// HasLocation reports whether the part has a cell at loc
func (p *Part) HasLocation(loc string) bool {
	_, ok := p.Locations[loc]
	return ok
}

// Clone returns a deep copy
func (p *Part) Clone() *Part {
	c := NewPart(p.PartNumber, p.Description)
	for k, v := range p.Locations {
		c.Locations[k] = v
	}
	for k, v := range p.Assigned {
		c.Assigned[k] = v
	}
	return c
}

// Job is a named container for one reconciled set of parts
type Job struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	PendingImport *PendingImport   `json:"pendingImport,omitempty"`
	Parts         map[string]*Part `json:"parts"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// NewJob returns an empty job
func NewJob(id, name string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        id,
		Name:      name,
		Parts:     make(map[string]*Part),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MappingPending reports whether raw rows are waiting for column roles
func (j *Job) MappingPending() bool {
	return j.PendingImport != nil && len(j.Parts) == 0
}

// SortedParts returns the job's parts ordered by part number
func (j *Job) SortedParts() []*Part {
	parts := make([]*Part, 0, len(j.Parts))
	for _, p := range j.Parts {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(a, b int) bool {
		return parts[a].PartNumber < parts[b].PartNumber
	})
	return parts
}

// Clone returns a deep copy
func (j *Job) Clone() *Job {
	c := *j
	if j.PendingImport != nil {
		pending := *j.PendingImport
		pending.Headers = append([]string(nil), j.PendingImport.Headers...)
		pending.Rows = make([][]string, len(j.PendingImport.Rows))
		for i, row := range j.PendingImport.Rows {
			pending.Rows[i] = append([]string(nil), row...)
		}
		c.PendingImport = &pending
	}
	c.Parts = make(map[string]*Part, len(j.Parts))
	for k, p := range j.Parts {
		c.Parts[k] = p.Clone()
	}
	return &c
}

// Header returns a copy of the job without its parts
func (j *Job) Header() *Job {
	c := *j
	c.Parts = nil
	return &c
}
