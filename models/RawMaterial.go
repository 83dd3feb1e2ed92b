package models

import (
	"time"

	"gorm.io/datatypes"
)

type MaterialType string

const (
	MaterialTopNote    MaterialType = "TOP_NOTE"
	MaterialMiddleNote MaterialType = "MIDDLE_NOTE"
	MaterialBaseNote   MaterialType = "BASE_NOTE"
	MaterialFixative   MaterialType = "FIXATIVE"
	MaterialSolvent    MaterialType = "SOLVENT"
	MaterialModifier   MaterialType = "MODIFIER"
)

var MaterialTypes = []MaterialType{
	MaterialTopNote,
	MaterialMiddleNote,
	MaterialBaseNote,
	MaterialFixative,
	MaterialSolvent,
	MaterialModifier,
}

func (t MaterialType) Valid() bool {
	for _, candidate := range MaterialTypes {
		if t == candidate {
			return true
		}
	}
	return false
}

type RawMaterial struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	Name              string                      `gorm:"not null;index" json:"name" validate:"notblank"`
	Type              MaterialType                `gorm:"type:varchar(32);not null;index" json:"type" validate:"oneof=TOP_NOTE MIDDLE_NOTE BASE_NOTE FIXATIVE SOLVENT MODIFIER"`
	OlfactoryProfile  string                      `gorm:"type:text" json:"olfactory_profile"`
	SupplierLinks     datatypes.JSONSlice[string] `json:"supplier_links"`
	Cost              *float64                    `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Volatility        *float64                    `json:"volatility,omitempty" validate:"omitempty,gte=0"`
	IFRACategory      *string                     `gorm:"column:ifra_category;index" json:"ifra_category,omitempty"`
	IFRALimit         *float64                    `gorm:"column:ifra_limit" json:"ifra_limit,omitempty" validate:"omitempty,gte=0"`
	SafetyNotes       *string                     `gorm:"type:text" json:"safety_notes,omitempty"`
	IsSynthetic       bool                        `gorm:"not null" json:"is_synthetic"`
	Density           *float64                    `json:"density,omitempty"`
	FlashPoint        *float64                    `json:"flash_point,omitempty"`
	Solubility        *string                     `json:"solubility,omitempty"`
	StockLevel        *float64                    `json:"stock_level,omitempty" validate:"omitempty,gte=0"`
	MinimumStockLevel *float64                    `json:"minimum_stock_level,omitempty" validate:"omitempty,gte=0"`
	LastRestockDate   *time.Time                  `json:"last_restock_date,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
	IsArchived        bool                        `gorm:"not null;index" json:"is_archived"`
}

func (m *RawMaterial) Kind() Kind             { return KindMaterial }
func (m *RawMaterial) PrimaryKey() uint       { return m.ID }
func (m *RawMaterial) CreatedTime() time.Time { return m.CreatedAt }

func (m *RawMaterial) Touch(created, updated time.Time) {
	m.CreatedAt = created
	m.UpdatedAt = updated
}
