package models

import (
	"reflect"
	"testing"
)

func TestFormulaAllNotesKeepsTierOrder(t *testing.T) {
	t.Parallel()

	formula := Formula{
		TopNotes:    []Note{{MaterialID: 1, Quantity: 2}},
		MiddleNotes: []Note{{MaterialID: 2, Quantity: 3}},
		BaseNotes:   []Note{{MaterialID: 3, Quantity: 4}, {MaterialID: 4, Quantity: 5}},
	}

	var ids []uint
	for _, note := range formula.AllNotes() {
		ids = append(ids, note.MaterialID)
	}
	if want := []uint{1, 2, 3, 4}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("AllNotes() material ids = %v, want %v", ids, want)
	}
}

func TestManufacturerBeforeSaveDeduplicatesSets(t *testing.T) {
	t.Parallel()

	m := Manufacturer{
		Certifications:      []string{"ISO 9001", " ISO 9001 ", "GMP", ""},
		ComplianceDocuments: []string{"b.pdf", "a.pdf", "b.pdf"},
	}
	if err := m.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave() error = %v", err)
	}

	if want := []string{"GMP", "ISO 9001"}; !reflect.DeepEqual([]string(m.Certifications), want) {
		t.Fatalf("Certifications = %v, want %v", m.Certifications, want)
	}
	if want := []string{"a.pdf", "b.pdf"}; !reflect.DeepEqual([]string(m.ComplianceDocuments), want) {
		t.Fatalf("ComplianceDocuments = %v, want %v", m.ComplianceDocuments, want)
	}
}

func TestManufacturerProjectLookup(t *testing.T) {
	t.Parallel()

	m := Manufacturer{ActiveProjects: []ProjectStatus{{FormulaID: 4}, {FormulaID: 9}, {FormulaID: 9}}}

	tests := []struct {
		name      string
		formulaID uint
		want      int
	}{
		{"first match", 9, 1},
		{"single", 4, 0},
		{"missing", 7, -1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := m.Project(tt.formulaID); got != tt.want {
				t.Fatalf("Project(%d) = %d, want %d", tt.formulaID, got, tt.want)
			}
		})
	}
}

func TestManufacturerHasCertificationIgnoresCase(t *testing.T) {
	t.Parallel()

	m := Manufacturer{Certifications: []string{"ISO 22716"}}
	if !m.HasCertification("iso 22716") {
		t.Fatal("expected case-insensitive certification match")
	}
	if m.HasCertification("GMP") {
		t.Fatal("unexpected certification match")
	}
}

func TestEnumValidity(t *testing.T) {
	t.Parallel()

	if !MaterialBaseNote.Valid() || MaterialType("HEART").Valid() {
		t.Fatal("unexpected MaterialType validity")
	}
	if !FormulaTesting.Valid() || FormulaStatus("").Valid() {
		t.Fatal("unexpected FormulaStatus validity")
	}
	if !StageProjectClosed.Valid() || ProductionStage("SHIPPED").Valid() {
		t.Fatal("unexpected ProductionStage validity")
	}
	if !PerfumeDiscontinued.Valid() || PerfumeStatus("RETIRED").Valid() {
		t.Fatal("unexpected PerfumeStatus validity")
	}
}

func TestEntityKinds(t *testing.T) {
	t.Parallel()

	entities := map[Kind]Entity{
		KindMaterial:     &RawMaterial{},
		KindFormula:      &Formula{},
		KindManufacturer: &Manufacturer{},
		KindPerfume:      &RegisteredPerfume{},
	}
	for kind, entity := range entities {
		if entity.Kind() != kind {
			t.Fatalf("%T.Kind() = %q, want %q", entity, entity.Kind(), kind)
		}
		if entity.PrimaryKey() != 0 {
			t.Fatalf("%T has primary key %d before insert", entity, entity.PrimaryKey())
		}
	}
}
