package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

type jobRecord struct {
	ID            string `gorm:"primaryKey;size:255"`
	Name          string `gorm:"size:255"`
	PendingImport string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (jobRecord) TableName() string { return "ledger_jobs" }

type partRecord struct {
	JobID       string `gorm:"primaryKey;size:255"`
	PartNumber  string `gorm:"primaryKey;size:255"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
}

func (partRecord) TableName() string { return "ledger_parts" }

type cellRecord struct {
	JobID      string `gorm:"primaryKey;size:255"`
	PartNumber string `gorm:"primaryKey;size:255"`
	Location   string `gorm:"primaryKey;size:255"`
	Required   int    `gorm:"not null"`
	Assigned   int    `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

func (cellRecord) TableName() string { return "ledger_part_locations" }

// GormLedgerRepository stores jobs, parts and location cells in three tables.
// Calls are separate round trips with no transaction spanning them.
type GormLedgerRepository struct {
	db *gorm.DB
}

func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

var _ domain.LedgerRepository = (*GormLedgerRepository)(nil)

func (r *GormLedgerRepository) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	db := r.db.WithContext(ctx)

	var rec jobRecord
	if err := db.First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrJobNotFound)
	}
	job, err := rec.toDomain()
	if err != nil {
		return nil, err
	}

	parts, err := r.loadParts(db, id, "")
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		job.Parts[p.PartNumber] = p
	}
	return job, nil
}

func (r *GormLedgerRepository) ListJobs(ctx context.Context) ([]*domain.Job, error) {
	var recs []jobRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}

	jobs := make([]*domain.Job, 0, len(recs))
	for _, rec := range recs {
		job, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job.Header())
	}
	return jobs, nil
}

func (r *GormLedgerRepository) SaveJob(ctx context.Context, job *domain.Job) (bool, error) {
	db := r.db.WithContext(ctx)

	pending, err := encodePending(job.PendingImport)
	if err != nil {
		return false, err
	}

	exists, err := r.jobExists(db, job.ID)
	if err != nil {
		return false, err
	}
	if !exists {
		rec := jobRecord{ID: job.ID, Name: job.Name, PendingImport: pending, CreatedAt: job.CreatedAt}
		return true, db.Create(&rec).Error
	}

	return false, db.Model(&jobRecord{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"name":           job.Name,
			"pending_import": pending,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (r *GormLedgerRepository) DeleteJob(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&cellRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("job_id = ?", id).Delete(&partRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&jobRecord{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrJobNotFound
		}
		return nil
	})
}

func (r *GormLedgerRepository) RenameJob(ctx context.Context, oldID, newID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := r.jobExists(tx, oldID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrJobNotFound
		}
		taken, err := r.jobExists(tx, newID)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrJobExists
		}

		if err := tx.Model(&jobRecord{}).Where("id = ?", oldID).
			Updates(map[string]interface{}{"id": newID, "updated_at": time.Now().UTC()}).Error; err != nil {
			return err
		}
		if err := tx.Model(&partRecord{}).Where("job_id = ?", oldID).Update("job_id", newID).Error; err != nil {
			return err
		}
		return tx.Model(&cellRecord{}).Where("job_id = ?", oldID).Update("job_id", newID).Error
	})
}

func (r *GormLedgerRepository) GetPart(ctx context.Context, jobID, partNumber string) (*domain.Part, error) {
	db := r.db.WithContext(ctx)
	if err := r.requireJob(db, jobID); err != nil {
		return nil, err
	}

	parts, err := r.loadParts(db, jobID, partNumber)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, domain.ErrPartNotFound
	}
	return parts[0], nil
}

func (r *GormLedgerRepository) ListPartsWithLocations(ctx context.Context, jobID string) ([]*domain.Part, error) {
	db := r.db.WithContext(ctx)
	if err := r.requireJob(db, jobID); err != nil {
		return nil, err
	}
	return r.loadParts(db, jobID, "")
}

func (r *GormLedgerRepository) UpsertPart(ctx context.Context, jobID, partNumber, description string) (bool, error) {
	db := r.db.WithContext(ctx)
	if err := r.requireJob(db, jobID); err != nil {
		return false, err
	}

	var rec partRecord
	err := db.First(&rec, "job_id = ? AND part_number = ?", jobID, partNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = partRecord{JobID: jobID, PartNumber: partNumber, Description: description}
		return true, db.Create(&rec).Error
	}
	if err != nil {
		return false, err
	}

	if rec.Description == "" && description != "" {
		err = db.Model(&partRecord{}).
			Where("job_id = ? AND part_number = ?", jobID, partNumber).
			Update("description", description).Error
	}
	return false, err
}

func (r *GormLedgerRepository) DeleteParts(ctx context.Context, jobID string) (int, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.requireJob(tx, jobID); err != nil {
			return err
		}
		if err := tx.Where("job_id = ?", jobID).Delete(&cellRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("job_id = ?", jobID).Delete(&partRecord{})
		deleted = result.RowsAffected
		return result.Error
	})
	return int(deleted), err
}

func (r *GormLedgerRepository) UpsertLocationCell(ctx context.Context, jobID, partNumber, location string, required, assigned int) (bool, error) {
	db := r.db.WithContext(ctx)
	if err := r.requirePart(db, jobID, partNumber); err != nil {
		return false, err
	}

	result := db.Model(&cellRecord{}).
		Where("job_id = ? AND part_number = ? AND location = ?", jobID, partNumber, location).
		Updates(map[string]interface{}{
			"required":   required,
			"assigned":   assigned,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return false, nil
	}

	rec := cellRecord{JobID: jobID, PartNumber: partNumber, Location: location, Required: required, Assigned: assigned}
	return true, db.Create(&rec).Error
}

func (r *GormLedgerRepository) SetAssigned(ctx context.Context, jobID, partNumber, location string, assigned int) error {
	db := r.db.WithContext(ctx)
	if err := r.requirePart(db, jobID, partNumber); err != nil {
		return err
	}

	result := db.Model(&cellRecord{}).
		Where("job_id = ? AND part_number = ? AND location = ?", jobID, partNumber, location).
		Updates(map[string]interface{}{"assigned": assigned, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrPartNotFound
	}
	return nil
}

func (r *GormLedgerRepository) UpdateAssigned(ctx context.Context, jobID, partNumber string, assigned map[string]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.requirePart(tx, jobID, partNumber); err != nil {
			return err
		}
		for loc, qty := range assigned {
			err := tx.Model(&cellRecord{}).
				Where("job_id = ? AND part_number = ? AND location = ?", jobID, partNumber, loc).
				Updates(map[string]interface{}{"assigned": qty, "updated_at": time.Now().UTC()}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// loadParts reads parts with their cells; an empty partNumber loads them all
func (r *GormLedgerRepository) loadParts(db *gorm.DB, jobID, partNumber string) ([]*domain.Part, error) {
	partQuery := db.Where("job_id = ?", jobID)
	cellQuery := db.Where("job_id = ?", jobID)
	if partNumber != "" {
		partQuery = partQuery.Where("part_number = ?", partNumber)
		cellQuery = cellQuery.Where("part_number = ?", partNumber)
	}

	var partRecs []partRecord
	if err := partQuery.Order("part_number").Find(&partRecs).Error; err != nil {
		return nil, err
	}
	var cellRecs []cellRecord
	if err := cellQuery.Find(&cellRecs).Error; err != nil {
		return nil, err
	}

	parts := make([]*domain.Part, 0, len(partRecs))
	byNumber := make(map[string]*domain.Part, len(partRecs))
	for _, rec := range partRecs {
		p := domain.NewPart(rec.PartNumber, rec.Description)
		parts = append(parts, p)
		byNumber[rec.PartNumber] = p
	}
	for _, c := range cellRecs {
		if p, ok := byNumber[c.PartNumber]; ok {
			p.Locations[c.Location] = c.Required
			p.Assigned[c.Location] = c.Assigned
		}
	}
	return parts, nil
}

func (r *GormLedgerRepository) jobExists(db *gorm.DB, id string) (bool, error) {
	var n int64
	if err := db.Model(&jobRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormLedgerRepository) requireJob(db *gorm.DB, id string) error {
	exists, err := r.jobExists(db, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *GormLedgerRepository) requirePart(db *gorm.DB, jobID, partNumber string) error {
	if err := r.requireJob(db, jobID); err != nil {
		return err
	}
	var n int64
	err := db.Model(&partRecord{}).
		Where("job_id = ? AND part_number = ?", jobID, partNumber).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPartNotFound
	}
	return nil
}

func (rec jobRecord) toDomain() (*domain.Job, error) {
	job := &domain.Job{
		ID:        rec.ID,
		Name:      rec.Name,
		Parts:     make(map[string]*domain.Part),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if rec.PendingImport != "" {
		var pending domain.PendingImport
		if err := json.Unmarshal([]byte(rec.PendingImport), &pending); err != nil {
			return nil, fmt.Errorf("failed to decode pending import of job %s: %w", rec.ID, err)
		}
		job.PendingImport = &pending
	}
	return job, nil
}

func encodePending(p *domain.PendingImport) (string, error) {
	if p == nil {
		return "", nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode pending import: %w", err)
	}
	return string(raw), nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
