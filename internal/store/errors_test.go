package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almmr/models"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{"not found", &NotFoundError{Kind: models.KindFormula, ID: 3}, ErrNotFound, "formula 3 not found"},
		{"validation", &ValidationError{Field: "name", Reason: "failed notblank"}, ErrValidation, "invalid name: failed notblank"},
		{"validation without field", &ValidationError{Reason: "nil formula"}, ErrValidation, "invalid input: nil formula"},
		{"reference", &ReferenceError{Kind: models.KindManufacturer, ID: 2, Count: 4}, ErrReferenced, "manufacturer 2 is referenced by 4 registered perfume(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := fmt.Errorf("service: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.EqualError(t, tt.err, tt.message)
			for _, other := range []error{ErrNotFound, ErrValidation, ErrReferenced} {
				if other != tt.sentinel {
					assert.False(t, errors.Is(tt.err, other))
				}
			}
		})
	}
}

func TestValidateUsesJSONFieldNames(t *testing.T) {
	t.Parallel()

	err := Validate(&models.Manufacturer{CompanyName: "Maison", Email: "not-an-email"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
	assert.Equal(t, "failed email", verr.Reason)

	assert.NoError(t, Validate(&models.Manufacturer{CompanyName: "Maison", Email: "ops@maison.example"}))
}

func TestValidateChecksEveryNote(t *testing.T) {
	t.Parallel()

	f := &models.Formula{
		Name:     "Rose",
		Version:  1,
		Status:   models.FormulaDraft,
		TopNotes: []models.Note{{MaterialID: 1, Quantity: 10, Concentration: 0.5}},
	}
	require.NoError(t, Validate(f))

	cases := map[string]struct {
		mutate func(*models.Formula)
		field  string
		reason string
	}{
		"negative quantity": {
			mutate: func(f *models.Formula) { f.TopNotes = append(f.TopNotes, models.Note{MaterialID: 2, Quantity: -10, Concentration: 0.5}) },
			field:  "top_notes[1].quantity",
			reason: "failed gt=0",
		},
		"zero quantity": {
			mutate: func(f *models.Formula) { f.BaseNotes = []models.Note{{MaterialID: 2, Concentration: 0.5}} },
			field:  "base_notes[0].quantity",
			reason: "failed gt=0",
		},
		"concentration above one": {
			mutate: func(f *models.Formula) { f.MiddleNotes = []models.Note{{MaterialID: 2, Quantity: 1, Concentration: 7}} },
			field:  "middle_notes[0].concentration",
			reason: "failed lte=1",
		},
		"negative concentration": {
			mutate: func(f *models.Formula) { f.TopNotes[0].Concentration = -0.1 },
			field:  "top_notes[0].concentration",
			reason: "failed gte=0",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			bad := *f
			bad.TopNotes = append([]models.Note(nil), f.TopNotes...)
			tc.mutate(&bad)

			var verr *ValidationError
			require.ErrorAs(t, Validate(&bad), &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Equal(t, tc.reason, verr.Reason)
		})
	}
}
