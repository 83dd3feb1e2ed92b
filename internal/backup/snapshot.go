package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"almmr/internal/store"
	"almmr/models"
)

// Snapshot is the portable backup document. Dates are epoch milliseconds.
// Any list may be absent.
type Snapshot struct {
	Timestamp     int64                `json:"timestamp"`
	Formulas      []FormulaRecord      `json:"formulas"`
	Materials     []MaterialRecord     `json:"materials"`
	Manufacturers []ManufacturerRecord `json:"manufacturers"`
	Perfumes      []PerfumeRecord      `json:"perfumes"`
}

// IsValid reports whether the snapshot carries a positive timestamp and at
// least one record.
func (s Snapshot) IsValid() bool {
	if s.Timestamp <= 0 {
		return false
	}
	return len(s.Formulas) > 0 || len(s.Materials) > 0 || len(s.Manufacturers) > 0 || len(s.Perfumes) > 0
}

// TakenAt returns the snapshot timestamp as a time.
func (s Snapshot) TakenAt() time.Time {
	return fromMillis(s.Timestamp)
}

// Counts returns the number of records per collection.
func (s Snapshot) Counts() Counts {
	return Counts{
		Materials:     len(s.Materials),
		Formulas:      len(s.Formulas),
		Manufacturers: len(s.Manufacturers),
		Perfumes:      len(s.Perfumes),
	}
}

type Counts struct {
	Materials     int `json:"materials"`
	Formulas      int `json:"formulas"`
	Manufacturers int `json:"manufacturers"`
	Perfumes      int `json:"perfumes"`
}

func (c Counts) Total() int {
	return c.Materials + c.Formulas + c.Manufacturers + c.Perfumes
}

type NoteRecord struct {
	MaterialID    uint    `json:"materialId"`
	Quantity      float64 `json:"quantity"`
	Concentration float64 `json:"concentration"`
}

type MaterialRecord struct {
	ID                uint     `json:"id"`
	Name              string   `json:"name"`
	Type              string   `json:"type"`
	OlfactoryProfile  string   `json:"olfactoryProfile"`
	SupplierLinks     []string `json:"supplierLinks,omitempty"`
	Cost              *float64 `json:"cost,omitempty"`
	Volatility        *float64 `json:"volatility,omitempty"`
	IFRACategory      *string  `json:"ifraCategory,omitempty"`
	IFRALimit         *float64 `json:"ifraLimit,omitempty"`
	SafetyNotes       *string  `json:"safetyNotes,omitempty"`
	IsSynthetic       bool     `json:"isSynthetic"`
	Density           *float64 `json:"density,omitempty"`
	FlashPoint        *float64 `json:"flashPoint,omitempty"`
	Solubility        *string  `json:"solubility,omitempty"`
	StockLevel        *float64 `json:"stockLevel,omitempty"`
	MinimumStockLevel *float64 `json:"minimumStockLevel,omitempty"`
	LastRestockDate   *int64   `json:"lastRestockDate,omitempty"`
	CreatedAt         int64    `json:"createdAt"`
	UpdatedAt         int64    `json:"updatedAt"`
	IsArchived        bool     `json:"isArchived"`
}

type FormulaRecord struct {
	ID                uint         `json:"id"`
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	Perfumer          string       `json:"perfumer"`
	Version           int          `json:"version"`
	AlcoholPercentage float64      `json:"alcoholPercentage"`
	TopNotes          []NoteRecord `json:"topNotes,omitempty"`
	MiddleNotes       []NoteRecord `json:"middleNotes,omitempty"`
	BaseNotes         []NoteRecord `json:"baseNotes,omitempty"`
	Status            string       `json:"status"`
	CreationDate      int64        `json:"creationDate"`
	LastModified      int64        `json:"lastModified"`
	IsArchived        bool         `json:"isArchived"`
}

type ProjectRecord struct {
	FormulaID              uint    `json:"formulaId"`
	Status                 string  `json:"status"`
	StartDate              int64   `json:"startDate"`
	ExpectedCompletionDate *int64  `json:"expectedCompletionDate,omitempty"`
	ActualCompletionDate   *int64  `json:"actualCompletionDate,omitempty"`
	SampleReceived         bool    `json:"sampleReceived"`
	SampleApproved         bool    `json:"sampleApproved"`
	ProductionQuantity     *int    `json:"productionQuantity,omitempty"`
	Notes                  *string `json:"notes,omitempty"`
}

type ManufacturerRecord struct {
	ID                     uint            `json:"id"`
	CompanyName            string          `json:"companyName"`
	ContactPerson          string          `json:"contactPerson"`
	Email                  string          `json:"email"`
	Phone                  string          `json:"phone"`
	Address                string          `json:"address"`
	Certifications         []string        `json:"certifications,omitempty"`
	ComplianceDocuments    []string        `json:"complianceDocuments,omitempty"`
	QualityRating          float64         `json:"qualityRating"`
	ActiveProjects         []ProjectRecord `json:"activeProjects,omitempty"`
	CompletedProjects      int             `json:"completedProjects"`
	AverageResponseTime    int             `json:"averageResponseTime"`
	QualityScore           float64         `json:"qualityScore"`
	CommunicationScore     float64         `json:"communicationScore"`
	ReliabilityScore       float64         `json:"reliabilityScore"`
	CostEffectivenessScore float64         `json:"costEffectivenessScore"`
	ContractFiles          []string        `json:"contractFiles,omitempty"`
	SampleReports          []string        `json:"sampleReports,omitempty"`
	ProductionReports      []string        `json:"productionReports,omitempty"`
	CreatedAt              int64           `json:"createdAt"`
	UpdatedAt              int64           `json:"updatedAt"`
	IsActive               bool            `json:"isActive"`
	Notes                  *string         `json:"notes,omitempty"`
}

type PerfumeRecord struct {
	ID                uint     `json:"id"`
	Name              string   `json:"name"`
	FormulaID         uint     `json:"formulaId"`
	ManufacturerID    uint     `json:"manufacturerId"`
	RegistrationDate  int64    `json:"registrationDate"`
	Type              string   `json:"type"`
	AlcoholPercentage float64  `json:"alcoholPercentage"`
	BottleType        string   `json:"bottleType"`
	BottleSize        int      `json:"bottleSize"`
	BatchNumber       string   `json:"batchNumber"`
	ScentFamily       string   `json:"scentFamily"`
	Longevity         int      `json:"longevity"`
	Sillage           string   `json:"sillage"`
	Description       string   `json:"description"`
	TargetMarket      string   `json:"targetMarket"`
	PricePoint        float64  `json:"pricePoint"`
	BrandingConcept   string   `json:"brandingConcept"`
	BottleImage       *string  `json:"bottleImage,omitempty"`
	PackageImage      *string  `json:"packageImage,omitempty"`
	MarketingImages   []string `json:"marketingImages,omitempty"`
	SafetyReport      *string  `json:"safetyReport,omitempty"`
	StabilityReport   *string  `json:"stabilityReport,omitempty"`
	IFRACompliance    *string  `json:"ifraCompliance,omitempty"`
	Barcode           *string  `json:"barcode,omitempty"`
	QRCode            *string  `json:"qrCode,omitempty"`
	CreatedAt         int64    `json:"createdAt"`
	UpdatedAt         int64    `json:"updatedAt"`
	Status            string   `json:"status"`
	IsArchived        bool     `json:"isArchived"`
}

// Encode writes s as indented JSON.
func Encode(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Decode reads a snapshot document. Malformed input is an ErrInvalidBackup.
func Decode(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return s, nil
}

// FromContents converts a store dump into a snapshot stamped with at.
func FromContents(c store.Contents, at time.Time) Snapshot {
	s := Snapshot{Timestamp: at.UnixMilli()}
	for i := range c.Materials {
		s.Materials = append(s.Materials, materialRecord(&c.Materials[i]))
	}
	for i := range c.Formulas {
		s.Formulas = append(s.Formulas, formulaRecord(&c.Formulas[i]))
	}
	for i := range c.Manufacturers {
		s.Manufacturers = append(s.Manufacturers, manufacturerRecord(&c.Manufacturers[i]))
	}
	for i := range c.Perfumes {
		s.Perfumes = append(s.Perfumes, perfumeRecord(&c.Perfumes[i]))
	}
	return s
}

// Contents converts the snapshot back into store rows, ids included.
func (s Snapshot) Contents() store.Contents {
	var c store.Contents
	for _, r := range s.Materials {
		c.Materials = append(c.Materials, r.model())
	}
	for _, r := range s.Formulas {
		c.Formulas = append(c.Formulas, r.model())
	}
	for _, r := range s.Manufacturers {
		c.Manufacturers = append(c.Manufacturers, r.model())
	}
	for _, r := range s.Perfumes {
		c.Perfumes = append(c.Perfumes, r.model())
	}
	return c
}

func materialRecord(m *models.RawMaterial) MaterialRecord {
	return MaterialRecord{
		ID:                m.ID,
		Name:              m.Name,
		Type:              string(m.Type),
		OlfactoryProfile:  m.OlfactoryProfile,
		SupplierLinks:     cloneStrings(m.SupplierLinks),
		Cost:              m.Cost,
		Volatility:        m.Volatility,
		IFRACategory:      m.IFRACategory,
		IFRALimit:         m.IFRALimit,
		SafetyNotes:       m.SafetyNotes,
		IsSynthetic:       m.IsSynthetic,
		Density:           m.Density,
		FlashPoint:        m.FlashPoint,
		Solubility:        m.Solubility,
		StockLevel:        m.StockLevel,
		MinimumStockLevel: m.MinimumStockLevel,
		LastRestockDate:   millisPtr(m.LastRestockDate),
		CreatedAt:         millis(m.CreatedAt),
		UpdatedAt:         millis(m.UpdatedAt),
		IsArchived:        m.IsArchived,
	}
}

func (r MaterialRecord) model() models.RawMaterial {
	return models.RawMaterial{
		ID:                r.ID,
		Name:              r.Name,
		Type:              models.MaterialType(r.Type),
		OlfactoryProfile:  r.OlfactoryProfile,
		SupplierLinks:     cloneStrings(r.SupplierLinks),
		Cost:              r.Cost,
		Volatility:        r.Volatility,
		IFRACategory:      r.IFRACategory,
		IFRALimit:         r.IFRALimit,
		SafetyNotes:       r.SafetyNotes,
		IsSynthetic:       r.IsSynthetic,
		Density:           r.Density,
		FlashPoint:        r.FlashPoint,
		Solubility:        r.Solubility,
		StockLevel:        r.StockLevel,
		MinimumStockLevel: r.MinimumStockLevel,
		LastRestockDate:   timePtr(r.LastRestockDate),
		CreatedAt:         fromMillis(r.CreatedAt),
		UpdatedAt:         fromMillis(r.UpdatedAt),
		IsArchived:        r.IsArchived,
	}
}

func formulaRecord(f *models.Formula) FormulaRecord {
	return FormulaRecord{
		ID:                f.ID,
		Name:              f.Name,
		Description:       f.Description,
		Perfumer:          f.Perfumer,
		Version:           f.Version,
		AlcoholPercentage: f.AlcoholPercentage,
		TopNotes:          noteRecords(f.TopNotes),
		MiddleNotes:       noteRecords(f.MiddleNotes),
		BaseNotes:         noteRecords(f.BaseNotes),
		Status:            string(f.Status),
		CreationDate:      millis(f.CreationDate),
		LastModified:      millis(f.LastModified),
		IsArchived:        f.IsArchived,
	}
}

func (r FormulaRecord) model() models.Formula {
	return models.Formula{
		ID:                r.ID,
		Name:              r.Name,
		Description:       r.Description,
		Perfumer:          r.Perfumer,
		Version:           r.Version,
		AlcoholPercentage: r.AlcoholPercentage,
		TopNotes:          notes(r.TopNotes),
		MiddleNotes:       notes(r.MiddleNotes),
		BaseNotes:         notes(r.BaseNotes),
		Status:            models.FormulaStatus(r.Status),
		CreationDate:      fromMillis(r.CreationDate),
		LastModified:      fromMillis(r.LastModified),
		IsArchived:        r.IsArchived,
	}
}

func manufacturerRecord(m *models.Manufacturer) ManufacturerRecord {
	var projects []ProjectRecord
	for _, p := range m.ActiveProjects {
		projects = append(projects, ProjectRecord{
			FormulaID:              p.FormulaID,
			Status:                 string(p.Status),
			StartDate:              millis(p.StartDate),
			ExpectedCompletionDate: millisPtr(p.ExpectedCompletionDate),
			ActualCompletionDate:   millisPtr(p.ActualCompletionDate),
			SampleReceived:         p.SampleReceived,
			SampleApproved:         p.SampleApproved,
			ProductionQuantity:     p.ProductionQuantity,
			Notes:                  p.Notes,
		})
	}
	return ManufacturerRecord{
		ID:                     m.ID,
		CompanyName:            m.CompanyName,
		ContactPerson:          m.ContactPerson,
		Email:                  m.Email,
		Phone:                  m.Phone,
		Address:                m.Address,
		Certifications:         cloneStrings(m.Certifications),
		ComplianceDocuments:    cloneStrings(m.ComplianceDocuments),
		QualityRating:          m.QualityRating,
		ActiveProjects:         projects,
		CompletedProjects:      m.CompletedProjects,
		AverageResponseTime:    m.AverageResponseTime,
		QualityScore:           m.QualityScore,
		CommunicationScore:     m.CommunicationScore,
		ReliabilityScore:       m.ReliabilityScore,
		CostEffectivenessScore: m.CostEffectivenessScore,
		ContractFiles:          cloneStrings(m.ContractFiles),
		SampleReports:          cloneStrings(m.SampleReports),
		ProductionReports:      cloneStrings(m.ProductionReports),
		CreatedAt:              millis(m.CreatedAt),
		UpdatedAt:              millis(m.UpdatedAt),
		IsActive:               m.IsActive,
		Notes:                  m.Notes,
	}
}

func (r ManufacturerRecord) model() models.Manufacturer {
	var projects []models.ProjectStatus
	for _, p := range r.ActiveProjects {
		projects = append(projects, models.ProjectStatus{
			FormulaID:              p.FormulaID,
			Status:                 models.ProductionStage(p.Status),
			StartDate:              fromMillis(p.StartDate),
			ExpectedCompletionDate: timePtr(p.ExpectedCompletionDate),
			ActualCompletionDate:   timePtr(p.ActualCompletionDate),
			SampleReceived:         p.SampleReceived,
			SampleApproved:         p.SampleApproved,
			ProductionQuantity:     p.ProductionQuantity,
			Notes:                  p.Notes,
		})
	}
	return models.Manufacturer{
		ID:                     r.ID,
		CompanyName:            r.CompanyName,
		ContactPerson:          r.ContactPerson,
		Email:                  r.Email,
		Phone:                  r.Phone,
		Address:                r.Address,
		Certifications:         cloneStrings(r.Certifications),
		ComplianceDocuments:    cloneStrings(r.ComplianceDocuments),
		QualityRating:          r.QualityRating,
		ActiveProjects:         projects,
		CompletedProjects:      r.CompletedProjects,
		AverageResponseTime:    r.AverageResponseTime,
		QualityScore:           r.QualityScore,
		CommunicationScore:     r.CommunicationScore,
		ReliabilityScore:       r.ReliabilityScore,
		CostEffectivenessScore: r.CostEffectivenessScore,
		ContractFiles:          cloneStrings(r.ContractFiles),
		SampleReports:          cloneStrings(r.SampleReports),
		ProductionReports:      cloneStrings(r.ProductionReports),
		CreatedAt:              fromMillis(r.CreatedAt),
		UpdatedAt:              fromMillis(r.UpdatedAt),
		IsActive:               r.IsActive,
		Notes:                  r.Notes,
	}
}

func perfumeRecord(p *models.RegisteredPerfume) PerfumeRecord {
	return PerfumeRecord{
		ID:                p.ID,
		Name:              p.Name,
		FormulaID:         p.FormulaID,
		ManufacturerID:    p.ManufacturerID,
		RegistrationDate:  millis(p.RegistrationDate),
		Type:              string(p.Type),
		AlcoholPercentage: p.AlcoholPercentage,
		BottleType:        p.BottleType,
		BottleSize:        p.BottleSize,
		BatchNumber:       p.BatchNumber,
		ScentFamily:       p.ScentFamily,
		Longevity:         p.Longevity,
		Sillage:           string(p.Sillage),
		Description:       p.Description,
		TargetMarket:      p.TargetMarket,
		PricePoint:        p.PricePoint,
		BrandingConcept:   p.BrandingConcept,
		BottleImage:       p.BottleImage,
		PackageImage:      p.PackageImage,
		MarketingImages:   cloneStrings(p.MarketingImages),
		SafetyReport:      p.SafetyReport,
		StabilityReport:   p.StabilityReport,
		IFRACompliance:    p.IFRACompliance,
		Barcode:           p.Barcode,
		QRCode:            p.QRCode,
		CreatedAt:         millis(p.CreatedAt),
		UpdatedAt:         millis(p.UpdatedAt),
		Status:            string(p.Status),
		IsArchived:        p.IsArchived,
	}
}

func (r PerfumeRecord) model() models.RegisteredPerfume {
	return models.RegisteredPerfume{
		ID:                r.ID,
		Name:              r.Name,
		FormulaID:         r.FormulaID,
		ManufacturerID:    r.ManufacturerID,
		RegistrationDate:  fromMillis(r.RegistrationDate),
		Type:              models.PerfumeType(r.Type),
		AlcoholPercentage: r.AlcoholPercentage,
		BottleType:        r.BottleType,
		BottleSize:        r.BottleSize,
		BatchNumber:       r.BatchNumber,
		ScentFamily:       r.ScentFamily,
		Longevity:         r.Longevity,
		Sillage:           models.SillageRating(r.Sillage),
		Description:       r.Description,
		TargetMarket:      r.TargetMarket,
		PricePoint:        r.PricePoint,
		BrandingConcept:   r.BrandingConcept,
		BottleImage:       r.BottleImage,
		PackageImage:      r.PackageImage,
		MarketingImages:   cloneStrings(r.MarketingImages),
		SafetyReport:      r.SafetyReport,
		StabilityReport:   r.StabilityReport,
		IFRACompliance:    r.IFRACompliance,
		Barcode:           r.Barcode,
		QRCode:            r.QRCode,
		CreatedAt:         fromMillis(r.CreatedAt),
		UpdatedAt:         fromMillis(r.UpdatedAt),
		Status:            models.PerfumeStatus(r.Status),
		IsArchived:        r.IsArchived,
	}
}

func noteRecords(in []models.Note) []NoteRecord {
	if len(in) == 0 {
		return nil
	}
	out := make([]NoteRecord, len(in))
	for i, n := range in {
		out[i] = NoteRecord{MaterialID: n.MaterialID, Quantity: n.Quantity, Concentration: n.Concentration}
	}
	return out
}

func notes(in []NoteRecord) []models.Note {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Note, len(in))
	for i, n := range in {
		out[i] = models.Note{MaterialID: n.MaterialID, Quantity: n.Quantity, Concentration: n.Concentration}
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func timePtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}
