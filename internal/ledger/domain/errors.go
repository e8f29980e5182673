package domain

import "errors"

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrPartNotFound     = errors.New("part not found")
	ErrJobExists        = errors.New("job already exists")
	ErrEmptySource      = errors.New("import source is empty")
	ErrUnreadableSource = errors.New("import source is unreadable")
	ErrInvalidMapping   = errors.New("invalid column mapping")
	ErrMappingCancelled = errors.New("column mapping cancelled")
	ErrNoPendingImport  = errors.New("job has no pending import")
	ErrInvalidBackup    = errors.New("invalid backup payload")
	ErrInvalidQuantity  = errors.New("required quantity must stay positive")
)
