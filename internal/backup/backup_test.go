package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almmr/internal/db"
	"almmr/internal/store"
	"almmr/internal/vault"
	"almmr/models"
)

type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	engine *Engine
	store  *store.Store
	vault  *vault.Memory

	formulaID      uint
	otherFormulaID uint
	archivedID     uint
	manufacturerID uint
	perfumeID      uint
	materialID     uint
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	clock := &tickClock{now: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)}
	s, err := store.New(database, store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v := vault.NewMemory()
	engine, err := New(s, v, nil, WithClock(clock.Now))
	require.NoError(t, err)

	f := fixture{engine: engine, store: s, vault: v}

	stock := 12.5
	f.materialID, err = store.Materials(s).Insert(ctx, &models.RawMaterial{
		Name: "Bergamot", Type: models.MaterialTopNote, StockLevel: &stock, SupplierLinks: []string{"https://example.org/bergamot"},
	})
	require.NoError(t, err)

	f.formulaID, err = store.Formulas(s).Insert(ctx, &models.Formula{
		Name: "Rose", Version: 1, Status: models.FormulaApproved, AlcoholPercentage: 0.4,
		TopNotes: []models.Note{{MaterialID: f.materialID, Quantity: 10, Concentration: 0.5}},
	})
	require.NoError(t, err)
	f.otherFormulaID, err = store.Formulas(s).Insert(ctx, &models.Formula{Name: "Vetiver", Version: 1, Status: models.FormulaDraft})
	require.NoError(t, err)
	f.archivedID, err = store.Formulas(s).Insert(ctx, &models.Formula{Name: "Old Oud", Version: 1, Status: models.FormulaDraft})
	require.NoError(t, err)
	require.NoError(t, store.Formulas(s).Archive(ctx, f.archivedID))

	expected := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	f.manufacturerID, err = store.Manufacturers(s).Insert(ctx, &models.Manufacturer{
		CompanyName: "Maison", IsActive: true, Certifications: []string{"ISO 9001", "IFRA"},
		ActiveProjects: []models.ProjectStatus{{
			FormulaID: f.formulaID, Status: models.StageSampleTesting, StartDate: expected.AddDate(0, -2, 0), ExpectedCompletionDate: &expected,
		}},
	})
	require.NoError(t, err)

	barcode := "240506-EAU-abc123"
	f.perfumeID, err = store.Perfumes(s).Insert(ctx, &models.RegisteredPerfume{
		Name: "Rose EDP", FormulaID: f.formulaID, ManufacturerID: f.manufacturerID,
		RegistrationDate: expected, Type: models.PerfumeEauDeParfum, Sillage: models.SillageModerate,
		Status: models.PerfumeAvailable, PricePoint: 120, Barcode: &barcode,
	})
	require.NoError(t, err)

	return f
}

func withoutTimestamp(s Snapshot) Snapshot {
	s.Timestamp = 0
	return s
}

func TestNewRequiresStoreAndVault(t *testing.T) {
	t.Parallel()

	_, err := New(nil, vault.NewMemory(), nil)
	assert.Error(t, err)

	database, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	s, err := store.New(database)
	require.NoError(t, err)
	_, err = New(s, nil, nil)
	assert.Error(t, err)
}

func TestCreateBackupIncludesArchivedRecords(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	live, err := store.Formulas(f.store).List(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 2)

	snap, err := f.engine.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Positive(t, snap.Timestamp)
	require.Len(t, snap.Formulas, 3)

	var archived []uint
	for _, rec := range snap.Formulas {
		if rec.IsArchived {
			archived = append(archived, rec.ID)
		}
	}
	assert.Equal(t, []uint{f.archivedID}, archived)
	assert.Equal(t, Counts{Materials: 1, Formulas: 3, Manufacturers: 1, Perfumes: 1}, snap.Counts())
}

func TestRestoreRoundTripPreservesRecords(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.engine.CreateBackup(ctx)
	require.NoError(t, err)

	// Diverge from the snapshot, then restore it.
	_, err = store.Materials(f.store).Insert(ctx, &models.RawMaterial{Name: "Iris", Type: models.MaterialMiddleNote})
	require.NoError(t, err)
	require.NoError(t, store.Perfumes(f.store).Archive(ctx, f.perfumeID))

	result := f.engine.Restore(ctx, before)
	require.True(t, result.OK(), "restore failed: %v", result.Err)
	assert.Equal(t, before.Counts(), result.Counts)
	assert.Equal(t, before.TakenAt(), result.SnapshotAt)

	after, err := f.engine.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, withoutTimestamp(before), withoutTimestamp(after))

	p, err := store.Perfumes(f.store).Get(ctx, f.perfumeID)
	require.NoError(t, err)
	assert.Equal(t, f.formulaID, p.FormulaID)
	assert.Equal(t, "240506-EAU-abc123", *p.Barcode)

	m, err := store.Manufacturers(f.store).Get(ctx, f.manufacturerID)
	require.NoError(t, err)
	require.Len(t, m.ActiveProjects, 1)
	assert.Equal(t, models.StageSampleTesting, m.ActiveProjects[0].Status)
	assert.Equal(t, []string{"IFRA", "ISO 9001"}, []string(m.Certifications))
}

func TestRestoreKeepsIDSequenceUsable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	snap, err := f.engine.CreateBackup(ctx)
	require.NoError(t, err)
	require.True(t, f.engine.Restore(ctx, snap).OK())

	id, err := store.Formulas(f.store).Insert(ctx, &models.Formula{Name: "Fresh", Version: 1, Status: models.FormulaDraft})
	require.NoError(t, err)
	assert.Greater(t, id, f.archivedID)
}

func TestRestoreRejectsInvalidSnapshot(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.engine.CreateBackup(ctx)
	require.NoError(t, err)

	for name, snap := range map[string]Snapshot{
		"empty":            {},
		"zero timestamp":   {Timestamp: 0, Materials: before.Materials},
		"no records":       {Timestamp: time.Now().UnixMilli()},
		"negative instant": {Timestamp: -5, Formulas: before.Formulas},
	} {
		result := f.engine.Restore(ctx, snap)
		assert.Equal(t, StatusError, result.Status, name)
		assert.ErrorIs(t, result.Err, ErrInvalidBackup, name)
	}

	after, err := f.engine.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, withoutTimestamp(before), withoutTimestamp(after))

	last, err := f.engine.LastRestore(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRestoreFailureLeavesStoreUntouched(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.engine.CreateBackup(ctx)
	require.NoError(t, err)

	broken := before
	broken.Materials = append(append([]MaterialRecord(nil), before.Materials...), before.Materials[0])
	result := f.engine.Restore(ctx, broken)
	assert.Equal(t, StatusError, result.Status)
	require.Error(t, result.Err)
	assert.NotErrorIs(t, result.Err, ErrInvalidBackup)

	after, err := f.engine.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, withoutTimestamp(before), withoutTimestamp(after))
}

func TestWriteBackupAndRestoreFromVault(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	info, err := f.engine.WriteBackup(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^almmr_backup_\d{8}_\d{6}\.json$`, info.Key)
	assert.Positive(t, info.Size)
	assert.Equal(t, 6, info.Counts.Total())

	listed, err := f.engine.Backups(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, info.Key, listed[0].Key)

	last, err := f.engine.LastBackup(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, info.Key, last.Key)
	assert.Equal(t, info.Size, last.Size)

	_, err = store.Materials(f.store).Insert(ctx, &models.RawMaterial{Name: "Iris", Type: models.MaterialMiddleNote})
	require.NoError(t, err)

	result := f.engine.RestoreFrom(ctx, info.Key)
	require.True(t, result.OK(), "restore failed: %v", result.Err)
	assert.Equal(t, info.Key, result.Source)

	n, err := store.Materials(f.store).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	restored, err := f.engine.LastRestore(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, info.Key, restored.Key)
	assert.True(t, restored.SnapshotAt.Equal(info.Timestamp))

	// The ledger lives outside the snapshot and survives the restore.
	last, err = f.engine.LastBackup(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, info.Key, last.Key)
}

func TestInspectDecodesWithoutRestoring(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	info, err := f.engine.WriteBackup(ctx)
	require.NoError(t, err)

	snap, err := f.engine.Inspect(ctx, info.Key)
	require.NoError(t, err)
	assert.Equal(t, info.Counts, snap.Counts())
	assert.True(t, snap.TakenAt().Equal(info.Timestamp))

	restored, err := f.engine.LastRestore(ctx)
	require.NoError(t, err)
	assert.Nil(t, restored)

	_, err = f.engine.Inspect(ctx, "almmr_backup_missing.json")
	assert.ErrorIs(t, err, vault.ErrNotFound)
}

func TestRestoreFromBadSources(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.vault.Put(ctx, "almmr_backup_garbage.json", strings.NewReader("not json"))
	require.NoError(t, err)

	garbage := f.engine.RestoreFrom(ctx, "almmr_backup_garbage.json")
	assert.Equal(t, StatusError, garbage.Status)
	assert.ErrorIs(t, garbage.Err, ErrInvalidBackup)

	missing := f.engine.RestoreFrom(ctx, "almmr_backup_missing.json")
	assert.Equal(t, StatusError, missing.Status)
	assert.ErrorIs(t, missing.Err, vault.ErrNotFound)
	assert.NotErrorIs(t, missing.Err, ErrInvalidBackup)

	empty := f.engine.RestoreReader(ctx, strings.NewReader(`{"timestamp": 0}`), "upload")
	assert.ErrorIs(t, empty.Err, ErrInvalidBackup)
}

func TestVerifyIntegrityOnConsistentStore(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	result := f.engine.VerifyIntegrity(context.Background())
	require.NoError(t, result.Err)
	assert.Equal(t, IntegrityOK, result.Status)
	assert.Empty(t, result.Issues)
}

func TestVerifyIntegrityReportsDanglingFormula(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	orphanID, err := store.Perfumes(f.store).Insert(ctx, &models.RegisteredPerfume{
		Name: "Orphan", FormulaID: 999, ManufacturerID: f.manufacturerID,
		Type: models.PerfumeParfum, Sillage: models.SillageStrong, Status: models.PerfumeRegistered,
	})
	require.NoError(t, err)

	first := f.engine.VerifyIntegrity(ctx)
	require.NoError(t, first.Err)
	assert.Equal(t, IntegrityIssues, first.Status)
	require.Len(t, first.Issues, 1)
	assert.Equal(t, orphanID, first.Issues[0].ID)
	assert.Equal(t, models.KindPerfume, first.Issues[0].Kind)
	assert.Equal(t, "formula_id", first.Issues[0].Field)
	assert.Equal(t, uint(999), first.Issues[0].Reference)

	require.NoError(t, store.Formulas(f.store).Archive(ctx, f.otherFormulaID))

	second := f.engine.VerifyIntegrity(ctx)
	require.NoError(t, second.Err)
	assert.Equal(t, first.Issues, second.Issues)
}

func TestCheckCollectsEveryViolation(t *testing.T) {
	t.Parallel()

	contents := store.Contents{
		Materials: []models.RawMaterial{{ID: 1}},
		Formulas: []models.Formula{
			{ID: 1, Name: "Rose", Version: 1, TopNotes: []models.Note{{MaterialID: 1}, {MaterialID: 7}}, BaseNotes: []models.Note{{MaterialID: 7}}},
			{ID: 2, Name: "Retired", Version: 1, IsArchived: true, TopNotes: []models.Note{{MaterialID: 8}}},
		},
		Manufacturers: []models.Manufacturer{{ID: 1, IsActive: true}, {ID: 2, IsActive: false}},
		Perfumes: []models.RegisteredPerfume{
			{ID: 1, Name: "ok", FormulaID: 1, ManufacturerID: 1},
			{ID: 2, Name: "archived formula", FormulaID: 2, ManufacturerID: 1},
			{ID: 3, Name: "gone", FormulaID: 42, ManufacturerID: 43},
			{ID: 4, Name: "inactive maker", FormulaID: 1, ManufacturerID: 2},
			{ID: 5, Name: "ignored", FormulaID: 42, ManufacturerID: 43, IsArchived: true},
		},
	}

	issues := Check(contents)
	type ref struct {
		kind  models.Kind
		id    uint
		field string
		to    uint
	}
	var got []ref
	for _, v := range issues {
		got = append(got, ref{v.Kind, v.ID, v.Field, v.Reference})
		assert.NotEmpty(t, v.Message)
	}
	assert.Equal(t, []ref{
		{models.KindPerfume, 2, "formula_id", 2},
		{models.KindPerfume, 3, "formula_id", 42},
		{models.KindPerfume, 3, "manufacturer_id", 43},
		{models.KindPerfume, 4, "manufacturer_id", 2},
		{models.KindFormula, 1, "notes", 7},
	}, got)
}

func TestSnapshotDocumentShape(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	snap, err := f.engine.CreateBackup(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, snap))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	for _, key := range []string{"timestamp", "formulas", "materials", "manufacturers", "perfumes"} {
		assert.Contains(t, doc, key)
	}
	assert.IsType(t, float64(0), doc["timestamp"])

	formula := doc["formulas"].([]any)[0].(map[string]any)
	assert.Contains(t, formula, "creationDate")
	assert.Contains(t, formula, "topNotes")
	assert.IsType(t, float64(0), formula["creationDate"])

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap, decoded)
}

func TestDecodeToleratesAbsentLists(t *testing.T) {
	t.Parallel()

	snap, err := Decode(strings.NewReader(`{"timestamp": 1714979289000, "materials": [{"id": 4, "name": "Iris", "type": "MIDDLE_NOTE", "createdAt": 1714979289000}]}`))
	require.NoError(t, err)
	assert.True(t, snap.IsValid())
	assert.Nil(t, snap.Formulas)

	c := snap.Contents()
	require.Len(t, c.Materials, 1)
	assert.Equal(t, uint(4), c.Materials[0].ID)
	assert.Equal(t, time.UnixMilli(1714979289000).UTC(), c.Materials[0].CreatedAt)
	assert.True(t, c.Materials[0].UpdatedAt.IsZero())

	_, err = Decode(strings.NewReader(`{"timestamp": "soon"}`))
	assert.ErrorIs(t, err, ErrInvalidBackup)
}
