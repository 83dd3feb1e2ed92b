package models

import (
	"time"

	"gorm.io/datatypes"
)

type FormulaStatus string

const (
	FormulaDraft         FormulaStatus = "DRAFT"
	FormulaInDevelopment FormulaStatus = "IN_DEVELOPMENT"
	FormulaTesting       FormulaStatus = "TESTING"
	FormulaApproved      FormulaStatus = "APPROVED"
	FormulaProduction    FormulaStatus = "PRODUCTION"
)

var FormulaStatuses = []FormulaStatus{
	FormulaDraft,
	FormulaInDevelopment,
	FormulaTesting,
	FormulaApproved,
	FormulaProduction,
}

func (s FormulaStatus) Valid() bool {
	for _, candidate := range FormulaStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Note is one material contribution inside a formula tier.
type Note struct {
	MaterialID    uint    `json:"material_id"`
	Quantity      float64 `json:"quantity" validate:"gt=0"`
	Concentration float64 `json:"concentration" validate:"gte=0,lte=1"`
}

// Formula is one version of a named composition. Versions of the same name
// are separate rows; the highest version is the current one.
type Formula struct {
	ID                uint                      `gorm:"primaryKey" json:"id"`
	Name              string                    `gorm:"not null;uniqueIndex:idx_formula_name_version,priority:1" json:"name" validate:"notblank"`
	Description       string                    `gorm:"type:text" json:"description"`
	Perfumer          string                    `gorm:"index" json:"perfumer"`
	Version           int                       `gorm:"not null;uniqueIndex:idx_formula_name_version,priority:2" json:"version" validate:"gte=1"`
	AlcoholPercentage float64                   `gorm:"not null" json:"alcohol_percentage" validate:"gte=0,lte=100"`
	TopNotes          datatypes.JSONSlice[Note] `json:"top_notes" validate:"dive"`
	MiddleNotes       datatypes.JSONSlice[Note] `json:"middle_notes" validate:"dive"`
	BaseNotes         datatypes.JSONSlice[Note] `json:"base_notes" validate:"dive"`
	Status            FormulaStatus             `gorm:"type:varchar(32);not null;index" json:"status" validate:"oneof=DRAFT IN_DEVELOPMENT TESTING APPROVED PRODUCTION"`
	CreationDate      time.Time                 `gorm:"not null;index" json:"creation_date"`
	LastModified      time.Time                 `gorm:"not null" json:"last_modified"`
	IsArchived        bool                      `gorm:"not null;index" json:"is_archived"`
}

func (f *Formula) Kind() Kind             { return KindFormula }
func (f *Formula) PrimaryKey() uint       { return f.ID }
func (f *Formula) CreatedTime() time.Time { return f.CreationDate }

func (f *Formula) Touch(created, updated time.Time) {
	f.CreationDate = created
	f.LastModified = updated
}

// AllNotes returns the top, middle and base notes in that order.
func (f *Formula) AllNotes() []Note {
	notes := make([]Note, 0, len(f.TopNotes)+len(f.MiddleNotes)+len(f.BaseNotes))
	notes = append(notes, f.TopNotes...)
	notes = append(notes, f.MiddleNotes...)
	notes = append(notes, f.BaseNotes...)
	return notes
}
