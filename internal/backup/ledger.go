package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"almmr/models"
)

const ledgerRowID = 1

// Ledger remembers the latest backup and restore in the backup_ledger table.
// The table is outside every snapshot, so a restore does not rewind it.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(database *gorm.DB) *Ledger {
	return &Ledger{db: database}
}

// Get returns the ledger row, or a zero row when nothing was recorded yet.
func (l *Ledger) Get(ctx context.Context) (models.BackupLedger, error) {
	var row models.BackupLedger
	err := l.db.WithContext(ctx).First(&row, ledgerRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.BackupLedger{ID: ledgerRowID}, nil
	}
	if err != nil {
		return models.BackupLedger{}, fmt.Errorf("read backup ledger: %w", err)
	}
	return row, nil
}

func (l *Ledger) RecordBackup(ctx context.Context, at time.Time, key string, size int64) error {
	return l.update(ctx, func(row *models.BackupLedger) {
		row.LastBackupAt = &at
		row.LastBackupKey = key
		row.LastBackupSize = size
	})
}

func (l *Ledger) RecordRestore(ctx context.Context, at time.Time, key string, snapshotAt time.Time) error {
	return l.update(ctx, func(row *models.BackupLedger) {
		row.LastRestoreAt = &at
		row.LastRestoreKey = key
		row.LastRestoreSnapshotAt = &snapshotAt
	})
}

func (l *Ledger) update(ctx context.Context, mutate func(*models.BackupLedger)) error {
	row, err := l.Get(ctx)
	if err != nil {
		return err
	}
	mutate(&row)
	if err := l.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("write backup ledger: %w", err)
	}
	return nil
}
