// Package importer loads raw materials from a spreadsheet export into the
// inventory. Rows are matched to existing materials by name.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/cheggaaa/pb/v3"

	"almmr/internal/ai"
	applog "almmr/internal/log"
	"almmr/internal/material"
	"almmr/internal/store"
	"almmr/models"
)

var (
	numberPattern   = regexp.MustCompile(`[-+]?\d*\.?\d+`)
	headerSeparator = regexp.MustCompile(`[^a-z0-9]+`)
)

// Column aliases accepted in the header row, after lower-casing and folding
// punctuation to underscores.
var aliases = map[string]string{
	"ingredient_name":    "name",
	"material":           "name",
	"pyramid_position":   "type",
	"notes":              "olfactory_profile",
	"odour_profile":      "olfactory_profile",
	"odor_profile":       "olfactory_profile",
	"price":              "cost",
	"ifra_cat":           "ifra_category",
	"max_ifra":           "ifra_limit",
	"stock":              "stock_level",
	"minimum_stock":      "minimum_stock_level",
	"min_stock":          "minimum_stock_level",
	"suppliers":          "supplier_links",
	"synthetic":          "is_synthetic",
	"safety":             "safety_notes",
	"flashpoint":         "flash_point",
	"max_in_concentrate": "ifra_limit",
}

// Enricher fills gaps in a row from an outside source.
type Enricher interface {
	FetchMaterialProfile(ctx context.Context, name string) (ai.MaterialProfile, error)
}

type Options struct {
	// Progress receives a progress bar when set.
	Progress io.Writer
	Enricher Enricher
	// DryRun parses and validates without writing.
	DryRun bool
}

// RowError describes a row that could not be imported. Row counts the
// header as row 1.
type RowError struct {
	Row  int
	Name string
	Err  error
}

func (e RowError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.Name, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

type Result struct {
	// Valid counts rows that passed validation, written or not.
	Valid    int
	Created  int
	Updated  int
	Enriched int
	Skipped  []RowError
}

// Imported is the number of rows written.
func (r Result) Imported() int {
	return r.Created + r.Updated
}

// Materials reads a CSV of raw materials from r and upserts every row. Rows
// failing validation are reported in the result and do not stop the import;
// any other failure aborts it.
func Materials(ctx context.Context, svc *material.Service, r io.Reader, opts Options) (Result, error) {
	var result Result
	if svc == nil {
		return result, errors.New("importer: material service is nil")
	}

	records, err := readCSV(r)
	if err != nil {
		return result, fmt.Errorf("read csv: %w", err)
	}

	var bar *pb.ProgressBar
	if opts.Progress != nil {
		bar = pb.Full.New(len(records))
		bar.SetWriter(opts.Progress)
		bar.Set("prefix", "materials ")
		bar.Set(pb.CleanOnFinish, true)
		bar.Start()
		defer bar.Finish()
	}

	for idx, record := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		row := idx + 2

		m, err := buildMaterial(record)
		if err == nil && opts.Enricher != nil && needsEnrichment(m) {
			if enrich(ctx, opts.Enricher, m) {
				result.Enriched++
			}
		}
		if err == nil {
			err = store.Validate(m)
		}
		if err == nil {
			result.Valid++
		}
		if err == nil && !opts.DryRun {
			var created bool
			_, created, err = svc.Upsert(ctx, m)
			if err == nil {
				if created {
					result.Created++
				} else {
					result.Updated++
				}
			}
		}

		if err != nil {
			if !errors.Is(err, store.ErrValidation) {
				return result, RowError{Row: row, Name: record["name"], Err: err}
			}
			result.Skipped = append(result.Skipped, RowError{Row: row, Name: record["name"], Err: err})
			applog.Warn(ctx, "material row skipped", "row", row, "name", record["name"], "error", err)
		}
		if bar != nil {
			bar.Increment()
		}
	}

	applog.Info(ctx, "materials imported",
		"created", result.Created,
		"updated", result.Updated,
		"skipped", len(result.Skipped),
		"dry_run", opts.DryRun,
	)
	return result, nil
}

func needsEnrichment(m *models.RawMaterial) bool {
	return m.Type == "" || m.OlfactoryProfile == "" || m.Volatility == nil
}

func enrich(ctx context.Context, e Enricher, m *models.RawMaterial) bool {
	profile, err := e.FetchMaterialProfile(ctx, m.Name)
	if err != nil {
		applog.Warn(ctx, "material enrichment failed", "name", m.Name, "error", err)
		return false
	}
	profile.Apply(m)
	return true
}

func readCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	header := make([]string, len(rows[0]))
	hasName := false
	for idx, key := range rows[0] {
		header[idx] = columnName(key)
		hasName = hasName || header[idx] == "name"
	}
	if !hasName {
		return nil, errors.New("csv has no name column")
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}

		record := make(map[string]string, len(header))
		for idx, key := range header {
			if idx >= len(row) || key == "" {
				continue
			}
			record[key] = strings.TrimSpace(row[idx])
		}
		records = append(records, record)
	}

	return records, nil
}

func columnName(raw string) string {
	key := strings.Trim(headerSeparator.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "_"), "_")
	if alias, ok := aliases[key]; ok {
		return alias
	}
	return key
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func buildMaterial(record map[string]string) (*models.RawMaterial, error) {
	m := &models.RawMaterial{
		Name:             normalizeText(record["name"]),
		Type:             parseType(record["type"]),
		OlfactoryProfile: normalizeText(record["olfactory_profile"]),
		SupplierLinks:    splitList(record["supplier_links"]),
		IFRACategory:     optionalText(record["ifra_category"]),
		SafetyNotes:      optionalText(record["safety_notes"]),
		Solubility:       optionalText(record["solubility"]),
	}

	numbers := []struct {
		column string
		target **float64
	}{
		{"cost", &m.Cost},
		{"volatility", &m.Volatility},
		{"ifra_limit", &m.IFRALimit},
		{"density", &m.Density},
		{"flash_point", &m.FlashPoint},
		{"stock_level", &m.StockLevel},
		{"minimum_stock_level", &m.MinimumStockLevel},
	}
	for _, n := range numbers {
		value, err := parseNumber(record[n.column])
		if err != nil {
			return nil, &store.ValidationError{Field: n.column, Reason: err.Error()}
		}
		*n.target = value
	}

	if raw := normalizeValue(record["is_synthetic"]); raw != "" {
		synthetic, err := parseBool(raw)
		if err != nil {
			return nil, &store.ValidationError{Field: "is_synthetic", Reason: err.Error()}
		}
		m.IsSynthetic = synthetic
	}

	return m, nil
}

// parseType accepts the stored enum spelling as well as the short pyramid
// names used in most ingredient sheets.
func parseType(value string) models.MaterialType {
	value = normalizeValue(value)
	if value == "" {
		return ""
	}
	key := strings.ToUpper(strings.Join(strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_"))
	if t := models.MaterialType(key); t.Valid() {
		return t
	}
	switch key {
	case "TOP", "HEAD":
		return models.MaterialTopNote
	case "MIDDLE", "HEART":
		return models.MaterialMiddleNote
	case "BASE", "BOTTOM":
		return models.MaterialBaseNote
	default:
		return models.MaterialType(key)
	}
}

func normalizeValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") || value == "-" {
		return ""
	}
	return value
}

func normalizeText(value string) string {
	return strings.Join(strings.Fields(normalizeValue(value)), " ")
}

func optionalText(value string) *string {
	value = normalizeText(value)
	if value == "" {
		return nil
	}
	return &value
}

func parseNumber(value string) (*float64, error) {
	value = normalizeValue(value)
	if value == "" {
		return nil, nil
	}
	match := numberPattern.FindString(value)
	if match == "" {
		return nil, fmt.Errorf("%q is not a number", value)
	}
	parsed, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", value)
	}
	return &parsed, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "yes", "y", "synthetic":
		return true, nil
	case "no", "n", "natural":
		return false, nil
	}
	return strconv.ParseBool(value)
}

func splitList(value string) []string {
	value = normalizeValue(value)
	if value == "" {
		return nil
	}
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ';' || r == '|' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
