package models

import (
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProductionStage string

const (
	StageFormulaSent         ProductionStage = "FORMULA_SENT"
	StageSampleInProduction  ProductionStage = "SAMPLE_IN_PRODUCTION"
	StageSampleReceived      ProductionStage = "SAMPLE_RECEIVED"
	StageSampleTesting       ProductionStage = "SAMPLE_TESTING"
	StageSampleApproved      ProductionStage = "SAMPLE_APPROVED"
	StageProductionStarted   ProductionStage = "PRODUCTION_STARTED"
	StageProductionCompleted ProductionStage = "PRODUCTION_COMPLETED"
	StageProjectClosed       ProductionStage = "PROJECT_CLOSED"
)

var ProductionStages = []ProductionStage{
	StageFormulaSent,
	StageSampleInProduction,
	StageSampleReceived,
	StageSampleTesting,
	StageSampleApproved,
	StageProductionStarted,
	StageProductionCompleted,
	StageProjectClosed,
}

func (s ProductionStage) Valid() bool {
	for _, candidate := range ProductionStages {
		if s == candidate {
			return true
		}
	}
	return false
}

// ProjectStatus tracks one formula's progress at a manufacturer. It lives
// inside the manufacturer record and has no identity of its own.
type ProjectStatus struct {
	FormulaID              uint            `json:"formula_id"`
	Status                 ProductionStage `json:"status"`
	StartDate              time.Time       `json:"start_date"`
	ExpectedCompletionDate *time.Time      `json:"expected_completion_date,omitempty"`
	ActualCompletionDate   *time.Time      `json:"actual_completion_date,omitempty"`
	SampleReceived         bool            `json:"sample_received"`
	SampleApproved         bool            `json:"sample_approved"`
	ProductionQuantity     *int            `json:"production_quantity,omitempty"`
	Notes                  *string         `json:"notes,omitempty"`
}

type Manufacturer struct {
	ID                     uint                               `gorm:"primaryKey" json:"id"`
	CompanyName            string                             `gorm:"not null;index" json:"company_name" validate:"notblank"`
	ContactPerson          string                             `json:"contact_person"`
	Email                  string                             `json:"email" validate:"omitempty,email"`
	Phone                  string                             `json:"phone"`
	Address                string                             `gorm:"type:text" json:"address"`
	Certifications         datatypes.JSONSlice[string]        `json:"certifications"`
	ComplianceDocuments    datatypes.JSONSlice[string]        `json:"compliance_documents"`
	QualityRating          float64                            `json:"quality_rating"`
	ActiveProjects         datatypes.JSONSlice[ProjectStatus] `json:"active_projects"`
	CompletedProjects      int                                `gorm:"not null" json:"completed_projects" validate:"gte=0"`
	AverageResponseTime    int                                `gorm:"not null" json:"average_response_time" validate:"gte=0"`
	QualityScore           float64                            `gorm:"not null;index" json:"quality_score"`
	CommunicationScore     float64                            `gorm:"not null" json:"communication_score"`
	ReliabilityScore       float64                            `gorm:"not null" json:"reliability_score"`
	CostEffectivenessScore float64                            `gorm:"not null" json:"cost_effectiveness_score"`
	ContractFiles          datatypes.JSONSlice[string]        `json:"contract_files"`
	SampleReports          datatypes.JSONSlice[string]        `json:"sample_reports"`
	ProductionReports      datatypes.JSONSlice[string]        `json:"production_reports"`
	CreatedAt              time.Time                          `json:"created_at"`
	UpdatedAt              time.Time                          `json:"updated_at"`
	IsActive               bool                               `gorm:"not null;index" json:"is_active"`
	Notes                  *string                            `gorm:"type:text" json:"notes,omitempty"`
}

func (m *Manufacturer) Kind() Kind             { return KindManufacturer }
func (m *Manufacturer) PrimaryKey() uint       { return m.ID }
func (m *Manufacturer) CreatedTime() time.Time { return m.CreatedAt }

func (m *Manufacturer) Touch(created, updated time.Time) {
	m.CreatedAt = created
	m.UpdatedAt = updated
}

// BeforeSave keeps certifications and compliance documents set-valued.
func (m *Manufacturer) BeforeSave(*gorm.DB) error {
	m.Certifications = uniqueStrings(m.Certifications)
	m.ComplianceDocuments = uniqueStrings(m.ComplianceDocuments)
	return nil
}

// Project returns the index of the first project tracking formulaID, or -1.
func (m *Manufacturer) Project(formulaID uint) int {
	for idx, project := range m.ActiveProjects {
		if project.FormulaID == formulaID {
			return idx
		}
	}
	return -1
}

// HasCertification reports whether cert is held, ignoring case.
func (m *Manufacturer) HasCertification(cert string) bool {
	cert = strings.TrimSpace(cert)
	for _, held := range m.Certifications {
		if strings.EqualFold(held, cert) {
			return true
		}
	}
	return false
}

func uniqueStrings(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	sort.Strings(result)
	return result
}
