package models

import (
	"time"

	"gorm.io/datatypes"
)

type PerfumeType string

const (
	PerfumeParfum        PerfumeType = "PARFUM"
	PerfumeEauDeParfum   PerfumeType = "EAU_DE_PARFUM"
	PerfumeEauDeToilette PerfumeType = "EAU_DE_TOILETTE"
	PerfumeEauDeCologne  PerfumeType = "EAU_DE_COLOGNE"
	PerfumeEauFraiche    PerfumeType = "EAU_FRAICHE"
)

var PerfumeTypes = []PerfumeType{
	PerfumeParfum,
	PerfumeEauDeParfum,
	PerfumeEauDeToilette,
	PerfumeEauDeCologne,
	PerfumeEauFraiche,
}

type SillageRating string

const (
	SillageIntimate SillageRating = "INTIMATE"
	SillageModerate SillageRating = "MODERATE"
	SillageStrong   SillageRating = "STRONG"
	SillageEnormous SillageRating = "ENORMOUS"
)

type PerfumeStatus string

const (
	PerfumeRegistered   PerfumeStatus = "REGISTERED"
	PerfumeInProduction PerfumeStatus = "IN_PRODUCTION"
	PerfumeAvailable    PerfumeStatus = "AVAILABLE"
	PerfumeDiscontinued PerfumeStatus = "DISCONTINUED"
)

var PerfumeStatuses = []PerfumeStatus{
	PerfumeRegistered,
	PerfumeInProduction,
	PerfumeAvailable,
	PerfumeDiscontinued,
}

func (s PerfumeStatus) Valid() bool {
	for _, candidate := range PerfumeStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// RegisteredPerfume is a finished product. FormulaID and ManufacturerID are
// references only; the store refuses to archive a referenced parent.
type RegisteredPerfume struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	Name              string                      `gorm:"not null;index" json:"name" validate:"notblank"`
	FormulaID         uint                        `gorm:"not null;index" json:"formula_id" validate:"required"`
	ManufacturerID    uint                        `gorm:"not null;index" json:"manufacturer_id" validate:"required"`
	RegistrationDate  time.Time                   `gorm:"not null;index" json:"registration_date"`
	Type              PerfumeType                 `gorm:"type:varchar(32);not null;index" json:"type" validate:"oneof=PARFUM EAU_DE_PARFUM EAU_DE_TOILETTE EAU_DE_COLOGNE EAU_FRAICHE"`
	AlcoholPercentage float64                     `gorm:"not null" json:"alcohol_percentage" validate:"gte=0,lte=100"`
	BottleType        string                      `json:"bottle_type"`
	BottleSize        int                         `json:"bottle_size" validate:"gte=0"`
	BatchNumber       string                      `gorm:"index" json:"batch_number"`
	ScentFamily       string                      `gorm:"index" json:"scent_family"`
	Longevity         int                         `json:"longevity" validate:"gte=0"`
	Sillage           SillageRating               `gorm:"type:varchar(16);not null" json:"sillage" validate:"oneof=INTIMATE MODERATE STRONG ENORMOUS"`
	Description       string                      `gorm:"type:text" json:"description"`
	TargetMarket      string                      `json:"target_market"`
	PricePoint        float64                     `json:"price_point" validate:"gte=0"`
	BrandingConcept   string                      `gorm:"type:text" json:"branding_concept"`
	BottleImage       *string                     `json:"bottle_image,omitempty"`
	PackageImage      *string                     `json:"package_image,omitempty"`
	MarketingImages   datatypes.JSONSlice[string] `json:"marketing_images"`
	SafetyReport      *string                     `json:"safety_report,omitempty"`
	StabilityReport   *string                     `json:"stability_report,omitempty"`
	IFRACompliance    *string                     `gorm:"column:ifra_compliance" json:"ifra_compliance,omitempty"`
	Barcode           *string                     `gorm:"index" json:"barcode,omitempty"`
	QRCode            *string                     `gorm:"column:qr_code" json:"qr_code,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
	Status            PerfumeStatus               `gorm:"type:varchar(32);not null;index" json:"status" validate:"oneof=REGISTERED IN_PRODUCTION AVAILABLE DISCONTINUED"`
	IsArchived        bool                        `gorm:"not null;index" json:"is_archived"`
}

func (p *RegisteredPerfume) Kind() Kind             { return KindPerfume }
func (p *RegisteredPerfume) PrimaryKey() uint       { return p.ID }
func (p *RegisteredPerfume) CreatedTime() time.Time { return p.CreatedAt }

func (p *RegisteredPerfume) Touch(created, updated time.Time) {
	p.CreatedAt = created
	p.UpdatedAt = updated
}
