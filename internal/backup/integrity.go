package backup

import (
	"context"
	"fmt"

	applog "almmr/internal/log"
	"almmr/internal/metrics"
	"almmr/internal/store"
	"almmr/models"
)

type IntegrityStatus string

const (
	IntegrityOK     IntegrityStatus = "OK"
	IntegrityIssues IntegrityStatus = "ISSUES"
	IntegrityError  IntegrityStatus = "ERROR"
)

// Violation is one broken reference. Kind and ID name the referencing record;
// Field and Reference name the dangling link.
type Violation struct {
	Kind      models.Kind `json:"kind"`
	ID        uint        `json:"id"`
	Field     string      `json:"field"`
	Reference uint        `json:"reference"`
	Message   string      `json:"message"`
}

type IntegrityResult struct {
	Status IntegrityStatus `json:"status"`
	Issues []Violation     `json:"issues,omitempty"`
	Err    error           `json:"-"`
}

// VerifyIntegrity checks every live perfume against live formulas and
// active manufacturers, and every live formula note against the materials.
// All violations are collected.
func (e *Engine) VerifyIntegrity(ctx context.Context) (result IntegrityResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			result = IntegrityResult{Status: IntegrityError, Err: fmt.Errorf("integrity check aborted: %v", r)}
		}
		metrics.ObserveBackup("verify", result.Err)
		if result.Err == nil {
			metrics.SetIntegrityIssues(len(result.Issues))
		}
	}()

	contents, err := e.store.Dump(ctx)
	if err != nil {
		applog.Error(ctx, "integrity check failed", "error", err)
		return IntegrityResult{Status: IntegrityError, Err: fmt.Errorf("verify integrity: %w", err)}
	}

	issues := Check(contents)
	if len(issues) > 0 {
		applog.Warn(ctx, "integrity issues found", "count", len(issues))
		return IntegrityResult{Status: IntegrityIssues, Issues: issues}
	}
	applog.Info(ctx, "integrity check passed")
	return IntegrityResult{Status: IntegrityOK}
}

// Check returns the reference violations in c, perfumes first then formulas,
// each in id order.
func Check(c store.Contents) []Violation {
	formulas := make(map[uint]bool, len(c.Formulas))
	for _, f := range c.Formulas {
		formulas[f.ID] = !f.IsArchived
	}
	manufacturers := make(map[uint]bool, len(c.Manufacturers))
	for _, m := range c.Manufacturers {
		manufacturers[m.ID] = m.IsActive
	}
	materials := make(map[uint]struct{}, len(c.Materials))
	for _, m := range c.Materials {
		materials[m.ID] = struct{}{}
	}

	var issues []Violation
	for _, p := range c.Perfumes {
		if p.IsArchived {
			continue
		}
		if live, ok := formulas[p.FormulaID]; !ok {
			issues = append(issues, Violation{
				Kind: models.KindPerfume, ID: p.ID, Field: "formula_id", Reference: p.FormulaID,
				Message: fmt.Sprintf("perfume %q references missing formula %d", p.Name, p.FormulaID),
			})
		} else if !live {
			issues = append(issues, Violation{
				Kind: models.KindPerfume, ID: p.ID, Field: "formula_id", Reference: p.FormulaID,
				Message: fmt.Sprintf("perfume %q references archived formula %d", p.Name, p.FormulaID),
			})
		}

		if active, ok := manufacturers[p.ManufacturerID]; !ok {
			issues = append(issues, Violation{
				Kind: models.KindPerfume, ID: p.ID, Field: "manufacturer_id", Reference: p.ManufacturerID,
				Message: fmt.Sprintf("perfume %q references missing manufacturer %d", p.Name, p.ManufacturerID),
			})
		} else if !active {
			issues = append(issues, Violation{
				Kind: models.KindPerfume, ID: p.ID, Field: "manufacturer_id", Reference: p.ManufacturerID,
				Message: fmt.Sprintf("perfume %q references inactive manufacturer %d", p.Name, p.ManufacturerID),
			})
		}
	}

	for i := range c.Formulas {
		f := &c.Formulas[i]
		if f.IsArchived {
			continue
		}
		seen := make(map[uint]struct{})
		for _, note := range f.AllNotes() {
			if _, ok := materials[note.MaterialID]; ok {
				continue
			}
			if _, dup := seen[note.MaterialID]; dup {
				continue
			}
			seen[note.MaterialID] = struct{}{}
			issues = append(issues, Violation{
				Kind: models.KindFormula, ID: f.ID, Field: "notes", Reference: note.MaterialID,
				Message: fmt.Sprintf("formula %q v%d uses missing material %d", f.Name, f.Version, note.MaterialID),
			})
		}
	}
	return issues
}
