package domain

import "time"

// BackupVersion is the only payload version this service writes or reads
const BackupVersion = 1

// BackupState is the restorable part of a backup
type BackupState struct {
	Jobs          map[string]*Job `json:"jobs"`
	SelectedJobID string          `json:"selectedJobId"`
}

// BackupPayload is the JSON document produced by backup and consumed by restore
type BackupPayload struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exportedAt"`
	State      *BackupState `json:"state"`
}
