package repository

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// auditRecord backs the raw SQL writes of SQLAuditSink
type auditRecord struct {
	BatchID   string    `gorm:"primaryKey;size:64"`
	ImportID  string    `gorm:"size:64;index"`
	JobID     string    `gorm:"size:255;index"`
	Strategy  string    `gorm:"size:16"`
	Offset    int       `gorm:"column:batch_offset"`
	Tuples    int       `gorm:"column:tuple_count"`
	Errors    int       `gorm:"column:error_count"`
	Payload   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"column:recorded_at"`
}

func (auditRecord) TableName() string { return auditTable }

// Migrate brings the ledger schema up to date
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20260301_create_ledger_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&jobRecord{}, &partRecord{}, &cellRecord{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&cellRecord{}, &partRecord{}, &jobRecord{})
			},
		},
		{
			ID: "20260315_create_import_audit",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&auditRecord{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&auditRecord{})
			},
		},
	})
	return m.Migrate()
}
