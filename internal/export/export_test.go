package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almmr/internal/db"
	"almmr/internal/store"
	"almmr/models"
)

func ptr[T any](v T) *T { return &v }

func seeded(t *testing.T) *Exporter {
	t.Helper()
	database, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	s, err := store.New(database, store.WithClock(func() time.Time {
		return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	materials := store.Materials(s)
	bergamot, err := materials.Insert(ctx, &models.RawMaterial{
		Name:          "Bergamot",
		Type:          models.MaterialTopNote,
		Cost:          ptr(12.5),
		SupplierLinks: []string{"https://a.example", "https://b.example"},
	})
	require.NoError(t, err)
	oud, err := materials.Insert(ctx, &models.RawMaterial{Name: "Oud, aged", Type: models.MaterialBaseNote})
	require.NoError(t, err)
	require.NoError(t, materials.Archive(ctx, oud))

	_, err = store.Formulas(s).Insert(ctx, &models.Formula{
		Name:     "Rose",
		Version:  2,
		Status:   models.FormulaDraft,
		TopNotes: []models.Note{{MaterialID: bergamot, Quantity: 4, Concentration: 0.5}},
	})
	require.NoError(t, err)
	_, err = store.Manufacturers(s).Insert(ctx, &models.Manufacturer{CompanyName: "Maison", IsActive: true, Certifications: []string{"IFRA"}})
	require.NoError(t, err)
	return New(s)
}

func TestParseFormatAndKind(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	f, err = ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	_, err = ParseFormat("xml")
	require.Error(t, err)

	kind, err := ParseKind("Materials")
	require.NoError(t, err)
	assert.Equal(t, models.KindMaterial, kind)
	kind, err = ParseKind("formula")
	require.NoError(t, err)
	assert.Equal(t, models.KindFormula, kind)
	_, err = ParseKind("users")
	require.Error(t, err)
}

func TestWriteMaterialsCSV(t *testing.T) {
	t.Parallel()
	e := seeded(t)

	var buf bytes.Buffer
	n, err := e.Write(context.Background(), models.KindMaterial, FormatCSV, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "name", rows[0][1])
	assert.Equal(t, "Bergamot", rows[1][1])
	assert.Equal(t, "TOP_NOTE", rows[1][2])
	assert.Equal(t, "12.5", rows[1][4])
	assert.Equal(t, "", rows[1][5])
	assert.Equal(t, "https://a.example;https://b.example", rows[1][12])
}

func TestWriteFormulasCSV(t *testing.T) {
	t.Parallel()
	e := seeded(t)

	var buf bytes.Buffer
	_, err := e.Write(context.Background(), models.KindFormula, FormatCSV, &buf)
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "Rose", "2", "", "DRAFT", "0", "1:4@0.5", "", "", "2024-03-01T09:00:00Z", "2024-03-01T09:00:00Z"}, rows[1])
}

func TestWriteJSONWithFilter(t *testing.T) {
	t.Parallel()
	e := seeded(t)

	var buf bytes.Buffer
	n, err := e.Write(context.Background(), models.KindMaterial, FormatJSON, &buf, store.IncludeArchived(), store.Like("oud", "name"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var out []models.RawMaterial
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Oud, aged", out[0].Name)
	assert.True(t, out[0].IsArchived)

	buf.Reset()
	n, err = e.Write(context.Background(), models.KindPerfume, FormatJSON, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	t.Parallel()
	e := seeded(t)

	_, err := e.Write(context.Background(), models.KindMaterial, Format("xml"), &bytes.Buffer{})
	require.Error(t, err)
	_, err = e.Write(context.Background(), models.Kind("user"), FormatCSV, &bytes.Buffer{})
	require.Error(t, err)
}

func TestDirWritesEveryKind(t *testing.T) {
	t.Parallel()
	e := seeded(t)
	dir := filepath.Join(t.TempDir(), "out")

	counts, err := e.Dir(context.Background(), dir, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, map[models.Kind]int{
		models.KindMaterial:     1,
		models.KindFormula:      1,
		models.KindManufacturer: 1,
		models.KindPerfume:      0,
	}, counts)

	for _, kind := range models.Kinds {
		data, err := os.ReadFile(filepath.Join(dir, FileName(kind, FormatCSV)))
		require.NoError(t, err)
		assert.NotEmpty(t, data, kind)
	}

	data, err := os.ReadFile(filepath.Join(dir, "manufacturers.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Maison")
}
