package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almmr/models"
)

func catalogue() []models.RawMaterial {
	return []models.RawMaterial{
		{ID: 3, Name: "Ambroxan", Type: models.MaterialBaseNote, OlfactoryProfile: "Woody, ambery, warm"},
		{ID: 1, Name: "Bergamot", Type: models.MaterialTopNote, OlfactoryProfile: "Citrus, fresh, sparkling"},
		{ID: 2, Name: "Iris", Type: models.MaterialMiddleNote, OlfactoryProfile: "Powdery, violet, woody"},
		{ID: 4, Name: "Lemon", Type: models.MaterialTopNote, OlfactoryProfile: "Citrus", IsArchived: true},
	}
}

func TestKeywordSuggesterFreshSuggestsTopNote(t *testing.T) {
	t.Parallel()

	rec, err := KeywordSuggester{}.Suggest(context.Background(), []string{"Fresh", "woody"}, catalogue())
	require.NoError(t, err)

	require.NotEmpty(t, rec.SuggestedNotes)
	first := rec.SuggestedNotes[0]
	assert.Equal(t, uint(1), first.MaterialID)
	assert.Equal(t, models.MaterialTopNote, first.Type)
	assert.InDelta(t, 0.85, first.Confidence, 1e-9)

	var ids []uint
	for _, n := range rec.SuggestedNotes {
		ids = append(ids, n.MaterialID)
	}
	assert.ElementsMatch(t, []uint{1, 2, 3}, ids)
	assert.NotContains(t, ids, uint(4))

	assert.Equal(t, "Fresh", rec.ScentProfile.Mood)
	assert.InDelta(t, 0.5, rec.ScentProfile.Intensity, 1e-9)
	assert.Equal(t, []string{"Fresh", "woody"}, rec.ScentProfile.Characteristics)
	assert.InDelta(t, 0.8, rec.Confidence, 1e-9)
}

func TestKeywordSuggesterWithoutKeywords(t *testing.T) {
	t.Parallel()

	rec, err := KeywordSuggester{}.Suggest(context.Background(), []string{" ", ""}, catalogue())
	require.NoError(t, err)
	assert.Empty(t, rec.SuggestedNotes)
	assert.Equal(t, "Unknown", rec.ScentProfile.Mood)
	assert.Empty(t, rec.ScentProfile.Characteristics)
}

func TestKeywordSuggesterFreshWithoutTopNotes(t *testing.T) {
	t.Parallel()

	rec, err := KeywordSuggester{}.Suggest(context.Background(), []string{"fresh"}, []models.RawMaterial{
		{ID: 9, Name: "Musk", Type: models.MaterialBaseNote, OlfactoryProfile: "clean"},
	})
	require.NoError(t, err)
	assert.Empty(t, rec.SuggestedNotes)
}

func TestKeywordsFromText(t *testing.T) {
	t.Parallel()

	text := "A luminous citrus opening. Citrus and neroli with a woody-amber drydown; the woody-amber base should linger. Citrus!"
	assert.Equal(t, []string{"citrus", "woody-amber", "luminous"}, KeywordsFromText(text, 3))
	assert.Empty(t, KeywordsFromText("a an the of", 5))
}

func TestExtractDocumentText(t *testing.T) {
	t.Parallel()

	text, err := ExtractDocumentText([]byte("  Summer brief: fresh, salty, mineral.\n"))
	require.NoError(t, err)
	assert.Equal(t, "Summer brief: fresh, salty, mineral.", text)

	_, err = ExtractDocumentText([]byte{0xff, 0xfe, 0x00, 0x01})
	assert.ErrorIs(t, err, ErrUnsupportedDocument)

	_, err = ExtractDocumentText(nil)
	assert.Error(t, err)

	_, err = ExtractDocumentText([]byte("%PDF-1.4 truncated"))
	assert.Error(t, err)
}

func TestMapPyramid(t *testing.T) {
	t.Parallel()

	cases := map[string]models.MaterialType{
		"Top":             models.MaterialTopNote,
		"head note":       models.MaterialTopNote,
		"Heart":           models.MaterialMiddleNote,
		"Base":            models.MaterialBaseNote,
		"Fixative (base)": models.MaterialFixative,
		"":                models.MaterialMiddleNote,
	}
	for in, want := range cases {
		assert.Equal(t, want, mapPyramid(in), in)
	}
}

func TestSanitiseOtherNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Iso E", "OTNE"}, sanitiseOtherNames([]any{"Iso E", "iso e", "N/A", "Iso E Super", "OTNE"}, "Iso E Super"))
	assert.Equal(t, []string{"a", "b"}, sanitiseOtherNames("a, b, ,a", "x"))
	assert.Empty(t, sanitiseOtherNames(nil, "x"))
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	assert.Error(t, err)

	c, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1-mini", c.Model())
}

type fakeOpenAI struct {
	mu       sync.Mutex
	requests []map[string]any
	content  string
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer test-key" {
		http.Error(w, "unexpected request", http.StatusNotFound)
		return
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1714979289,
		"model":   body["model"],
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": f.content},
		}},
	})
}

func newTestClient(t *testing.T, content string) (*Client, *fakeOpenAI) {
	t.Helper()
	fake := &fakeOpenAI{content: content}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{APIKey: "test-key", Model: "test-model", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)
	return c, fake
}

func TestClientSuggestFiltersUnknownMaterials(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, "```json\n"+`{
		"suggested_notes": [
			{"material_id": 1, "type": "TOP_NOTE", "confidence": 0.9, "reason": "bright"},
			{"material_id": 77, "type": "BASE_NOTE", "confidence": 0.7, "reason": "invented"},
			{"material_id": 3, "type": "", "confidence": 1.4, "reason": "warmth"}
		],
		"scent_profile": {"mood": "", "intensity": 0.6, "characteristics": ["bright"]},
		"confidence": 0.75
	}`+"\n```")

	rec, err := c.Suggest(context.Background(), []string{"sunlit", "warm"}, catalogue())
	require.NoError(t, err)

	require.Len(t, rec.SuggestedNotes, 2)
	assert.Equal(t, uint(1), rec.SuggestedNotes[0].MaterialID)
	assert.Equal(t, uint(3), rec.SuggestedNotes[1].MaterialID)
	assert.Equal(t, models.MaterialBaseNote, rec.SuggestedNotes[1].Type)
	assert.InDelta(t, 1.0, rec.SuggestedNotes[1].Confidence, 1e-9)
	assert.Equal(t, "sunlit", rec.ScentProfile.Mood)
	assert.InDelta(t, 0.75, rec.Confidence, 1e-9)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "test-model", fake.requests[0]["model"])
	messages := fake.requests[0]["messages"].([]any)
	user := messages[1].(map[string]any)["content"].(string)
	assert.True(t, strings.Contains(user, "1 | Bergamot | TOP_NOTE"), user)
}

func TestClientSuggestRequiresKeywords(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, "{}")
	_, err := c.Suggest(context.Background(), nil, catalogue())
	assert.Error(t, err)
	assert.Empty(t, fake.requests)
}

func TestClientFetchMaterialProfile(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, `{
		"material_name": "Hedione",
		"cas_number": "24851-98-7",
		"other_names": ["Methyl dihydrojasmonate", "hedione", "N/A"],
		"olfactory_profile": "  Transparent   jasmine, citrus ",
		"pyramid_position": "Heart",
		"synthetic": true,
		"volatility": "0.4 (moderate)",
		"ifra_category": "",
		"max_ifra_cat4_percent": null,
		"safety_notes": "none"
	}`)

	profile, err := c.FetchMaterialProfile(context.Background(), "hedione")
	require.NoError(t, err)
	assert.Equal(t, "Hedione", profile.Name)
	assert.Equal(t, "24851-98-7", profile.CASNumber)
	assert.Equal(t, []string{"Methyl dihydrojasmonate"}, profile.OtherNames)
	assert.Equal(t, "Transparent jasmine, citrus", profile.OlfactoryProfile)
	assert.Equal(t, models.MaterialMiddleNote, profile.Type)
	assert.True(t, profile.Synthetic)
	require.NotNil(t, profile.Volatility)
	assert.InDelta(t, 0.4, *profile.Volatility, 1e-9)
	assert.Nil(t, profile.IFRALimit)
	assert.Empty(t, profile.SafetyNotes)

	m := &models.RawMaterial{Name: "Hedione"}
	profile.Apply(m)
	assert.Equal(t, models.MaterialMiddleNote, m.Type)
	assert.Equal(t, "Transparent jasmine, citrus", m.OlfactoryProfile)
	assert.True(t, m.IsSynthetic)
	assert.Nil(t, m.SafetyNotes)
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	_, err = c.FetchMaterialProfile(context.Background(), "Iso E Super")
	assert.ErrorContains(t, err, "ai: call openai")
}
