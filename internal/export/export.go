// Package export writes record lists as CSV or JSON for spreadsheets and
// other tools. It only ever reads from the store.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	applog "almmr/internal/log"
	"almmr/internal/store"
	"almmr/models"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", value)
	}
}

// ParseKind accepts a collection name in singular or plural form.
func ParseKind(value string) (models.Kind, error) {
	value = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(value)), "s")
	for _, kind := range models.Kinds {
		if string(kind) == value {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown record kind %q", value)
}

// FileName is the file a collection is written to by Dir.
func FileName(kind models.Kind, format Format) string {
	return string(kind) + "s." + string(format)
}

type Exporter struct {
	store *store.Store
}

func New(s *store.Store) *Exporter {
	return &Exporter{store: s}
}

// Write exports the live records of one collection, narrowed by opts, and
// returns how many were written.
func (e *Exporter) Write(ctx context.Context, kind models.Kind, format Format, w io.Writer, opts ...store.QueryOption) (int, error) {
	switch kind {
	case models.KindMaterial:
		return write[models.RawMaterial](ctx, store.Materials(e.store), format, w, Materials, opts)
	case models.KindFormula:
		return write[models.Formula](ctx, store.Formulas(e.store), format, w, Formulas, opts)
	case models.KindManufacturer:
		return write[models.Manufacturer](ctx, store.Manufacturers(e.store), format, w, Manufacturers, opts)
	case models.KindPerfume:
		return write[models.RegisteredPerfume](ctx, store.Perfumes(e.store), format, w, Perfumes, opts)
	default:
		return 0, fmt.Errorf("unknown record kind %q", kind)
	}
}

type lister[T any] interface {
	List(ctx context.Context, opts ...store.QueryOption) ([]T, error)
}

func write[T any](ctx context.Context, repo lister[T], format Format, w io.Writer, csvFn func(io.Writer, []T) error, opts []store.QueryOption) (int, error) {
	items, err := repo.List(ctx, opts...)
	if err != nil {
		return 0, err
	}
	switch format {
	case FormatJSON:
		err = JSON(w, items)
	case FormatCSV, "":
		err = csvFn(w, items)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Dir writes every collection into dir, one file per kind, concurrently.
func (e *Exporter) Dir(ctx context.Context, dir string, format Format) (map[models.Kind]int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	counts := make([]int, len(models.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for idx, kind := range models.Kinds {
		g.Go(func() error {
			path := filepath.Join(dir, FileName(kind, format))
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			n, err := e.Write(gctx, kind, format, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("export %s: %w", kind, err)
			}
			counts[idx] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[models.Kind]int, len(models.Kinds))
	for idx, kind := range models.Kinds {
		out[kind] = counts[idx]
	}
	applog.Info(ctx, "records exported", "dir", dir, "format", format, "counts", out)
	return out, nil
}

// JSON writes items as an indented array. A nil list is written as [].
func JSON[T any](w io.Writer, items []T) error {
	if items == nil {
		items = []T{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func Materials(w io.Writer, items []models.RawMaterial) error {
	header := []string{"id", "name", "type", "olfactory_profile", "cost", "volatility", "ifra_category", "ifra_limit", "is_synthetic", "stock_level", "minimum_stock_level", "last_restock_date", "supplier_links"}
	return writeCSV(w, header, items, func(m models.RawMaterial) []string {
		return []string{
			formatID(m.ID),
			m.Name,
			string(m.Type),
			m.OlfactoryProfile,
			formatOptionalFloat(m.Cost),
			formatOptionalFloat(m.Volatility),
			formatOptionalText(m.IFRACategory),
			formatOptionalFloat(m.IFRALimit),
			strconv.FormatBool(m.IsSynthetic),
			formatOptionalFloat(m.StockLevel),
			formatOptionalFloat(m.MinimumStockLevel),
			formatOptionalTime(m.LastRestockDate),
			strings.Join(m.SupplierLinks, ";"),
		}
	})
}

func Formulas(w io.Writer, items []models.Formula) error {
	header := []string{"id", "name", "version", "perfumer", "status", "alcohol_percentage", "top_notes", "middle_notes", "base_notes", "creation_date", "last_modified"}
	return writeCSV(w, header, items, func(f models.Formula) []string {
		return []string{
			formatID(f.ID),
			f.Name,
			strconv.Itoa(f.Version),
			f.Perfumer,
			string(f.Status),
			formatFloat(f.AlcoholPercentage),
			formatNotes(f.TopNotes),
			formatNotes(f.MiddleNotes),
			formatNotes(f.BaseNotes),
			formatTime(f.CreationDate),
			formatTime(f.LastModified),
		}
	})
}

func Manufacturers(w io.Writer, items []models.Manufacturer) error {
	header := []string{"id", "company_name", "contact_person", "email", "phone", "certifications", "active_projects", "completed_projects", "average_response_time", "quality_score", "communication_score", "reliability_score", "cost_effectiveness_score", "is_active"}
	return writeCSV(w, header, items, func(m models.Manufacturer) []string {
		return []string{
			formatID(m.ID),
			m.CompanyName,
			m.ContactPerson,
			m.Email,
			m.Phone,
			strings.Join(m.Certifications, ";"),
			strconv.Itoa(len(m.ActiveProjects)),
			strconv.Itoa(m.CompletedProjects),
			strconv.Itoa(m.AverageResponseTime),
			formatFloat(m.QualityScore),
			formatFloat(m.CommunicationScore),
			formatFloat(m.ReliabilityScore),
			formatFloat(m.CostEffectivenessScore),
			strconv.FormatBool(m.IsActive),
		}
	})
}

func Perfumes(w io.Writer, items []models.RegisteredPerfume) error {
	header := []string{"id", "name", "formula_id", "manufacturer_id", "type", "status", "scent_family", "target_market", "batch_number", "bottle_size", "price_point", "longevity", "sillage", "barcode", "qr_code", "registration_date"}
	return writeCSV(w, header, items, func(p models.RegisteredPerfume) []string {
		return []string{
			formatID(p.ID),
			p.Name,
			formatID(p.FormulaID),
			formatID(p.ManufacturerID),
			string(p.Type),
			string(p.Status),
			p.ScentFamily,
			p.TargetMarket,
			p.BatchNumber,
			strconv.Itoa(p.BottleSize),
			formatFloat(p.PricePoint),
			strconv.Itoa(p.Longevity),
			string(p.Sillage),
			formatOptionalText(p.Barcode),
			formatOptionalText(p.QRCode),
			formatTime(p.RegistrationDate),
		}
	})
}

func writeCSV[T any](w io.Writer, header []string, items []T, row func(T) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, item := range items {
		if err := cw.Write(row(item)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptionalText(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// formatNotes renders notes as material:quantity@concentration pairs.
func formatNotes(notes []models.Note) string {
	parts := make([]string, 0, len(notes))
	for _, n := range notes {
		parts = append(parts, fmt.Sprintf("%d:%s@%s", n.MaterialID, formatFloat(n.Quantity), formatFloat(n.Concentration)))
	}
	return strings.Join(parts, ";")
}
