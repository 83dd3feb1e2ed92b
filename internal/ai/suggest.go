// Package ai proposes formula notes from mood keywords, either with a local
// keyword matcher or an OpenAI chat model, and reads material data and
// brief documents for those proposals.
package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"almmr/models"
)

const (
	maxSuggestions    = 5
	freshConfidence   = 0.85
	profileConfidence = 0.6
	keywordIntensity  = 0.5
	keywordConfidence = 0.8
	unknownMood       = "Unknown"
	freshKeyword      = "fresh"
	freshReason       = "Fresh citrus notes complement the desired profile"
)

// Suggester proposes notes for a set of mood keywords, choosing from
// materials.
type Suggester interface {
	Suggest(ctx context.Context, keywords []string, materials []models.RawMaterial) (models.Recommendation, error)
}

var (
	_ Suggester = KeywordSuggester{}
	_ Suggester = (*Client)(nil)
)

// KeywordSuggester matches keywords against material names and olfactory
// profiles without any remote call.
type KeywordSuggester struct{}

func (KeywordSuggester) Suggest(ctx context.Context, keywords []string, materials []models.RawMaterial) (models.Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return models.Recommendation{}, err
	}
	keywords = cleanKeywords(keywords)

	mood := unknownMood
	if len(keywords) > 0 {
		mood = keywords[0]
	}

	candidates := make([]models.RawMaterial, 0, len(materials))
	for _, m := range materials {
		if !m.IsArchived {
			candidates = append(candidates, m)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	picked := make(map[uint]struct{})
	var notes []models.SuggestedNote

	if containsFold(keywords, freshKeyword) {
		for _, m := range candidates {
			if m.Type == models.MaterialTopNote {
				notes = append(notes, models.SuggestedNote{
					MaterialID: m.ID,
					Type:       models.MaterialTopNote,
					Confidence: freshConfidence,
					Reason:     freshReason,
				})
				picked[m.ID] = struct{}{}
				break
			}
		}
	}

	for _, m := range candidates {
		if _, ok := picked[m.ID]; ok {
			continue
		}
		haystack := strings.ToLower(m.Name + " " + m.OlfactoryProfile)
		for _, kw := range keywords {
			if strings.Contains(haystack, strings.ToLower(kw)) {
				notes = append(notes, models.SuggestedNote{
					MaterialID: m.ID,
					Type:       m.Type,
					Confidence: profileConfidence,
					Reason:     fmt.Sprintf("%s matches %q", m.Name, kw),
				})
				picked[m.ID] = struct{}{}
				break
			}
		}
	}

	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Confidence > notes[j].Confidence })
	if len(notes) > maxSuggestions {
		notes = notes[:maxSuggestions]
	}

	return models.Recommendation{
		SuggestedNotes: notes,
		ScentProfile: models.ScentProfile{
			Mood:            mood,
			Intensity:       keywordIntensity,
			Characteristics: keywords,
		},
		Confidence: keywordConfidence,
	}, nil
}

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "been": {}, "being": {}, "both": {}, "from": {},
	"have": {}, "into": {}, "like": {}, "more": {}, "most": {}, "much": {}, "only": {},
	"over": {}, "should": {}, "some": {}, "than": {}, "that": {}, "their": {}, "them": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {}, "very": {}, "were": {},
	"what": {}, "when": {}, "which": {}, "while": {}, "with": {}, "would": {}, "your": {},
	"perfume": {}, "fragrance": {}, "scent": {}, "notes": {},
}

// KeywordsFromText picks up to limit distinct words from a brief, most
// frequent first. Short words and common filler are skipped.
func KeywordsFromText(text string, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	}) {
		word = strings.Trim(word, "-")
		if len([]rune(word)) < 4 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	return order
}
