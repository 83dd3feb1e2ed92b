package models

import "time"

// BackupLedger is a single-row table recording the latest backup and restore.
// It is not part of any snapshot, so it survives a restore.
type BackupLedger struct {
	ID                    uint `gorm:"primaryKey"`
	LastBackupAt          *time.Time
	LastBackupKey         string
	LastBackupSize        int64
	LastRestoreAt         *time.Time
	LastRestoreKey        string
	LastRestoreSnapshotAt *time.Time
	UpdatedAt             time.Time
}

func (BackupLedger) TableName() string {
	return "backup_ledger"
}
