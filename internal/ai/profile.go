package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"almmr/models"
)

// MaterialProfile is the normalised material data returned by the model.
type MaterialProfile struct {
	Name             string
	CASNumber        string
	OtherNames       []string
	OlfactoryProfile string
	Type             models.MaterialType
	Synthetic        bool
	Volatility       *float64
	IFRACategory     string
	IFRALimit        *float64
	SafetyNotes      string
}

// FetchMaterialProfile asks the model to describe a raw material.
func (c *Client) FetchMaterialProfile(ctx context.Context, name string) (MaterialProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MaterialProfile{}, errors.New("ai: material name must not be empty")
	}

	content, err := c.complete(ctx,
		"You are an expert perfumery researcher. Provide compact, fact-checked material data in JSON only.",
		buildProfilePrompt(name),
	)
	if err != nil {
		return MaterialProfile{}, err
	}

	var parsed profileResponse
	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.UseNumber()
	if err := decoder.Decode(&parsed); err != nil {
		return MaterialProfile{}, fmt.Errorf("ai: parse JSON payload: %w", err)
	}
	return normaliseProfile(name, parsed)
}

func buildProfilePrompt(name string) string {
	return fmt.Sprintf(`Return JSON describing the perfumery material "%s". Fields:
{
  "material_name": string,
  "cas_number": string | "",
  "other_names": string[] (omit unverified aliases),
  "olfactory_profile": short string,
  "pyramid_position": string (Top, Heart, Base, Fixative, Solvent or Modifier),
  "synthetic": boolean,
  "volatility": number between 0 (very tenacious) and 1 (very volatile) or null,
  "ifra_category": string | "",
  "max_ifra_cat4_percent": number (0-100) or null if not restricted,
  "safety_notes": short string
}
Strict rules: respond with raw JSON, no Markdown, no comments. Use empty string instead of unknown text fields. Use empty list for other_names if none.`, name)
}

type profileResponse struct {
	MaterialName     string `json:"material_name"`
	CASNumber        string `json:"cas_number"`
	OtherNames       any    `json:"other_names"`
	OlfactoryProfile string `json:"olfactory_profile"`
	PyramidPosition  string `json:"pyramid_position"`
	Synthetic        any    `json:"synthetic"`
	Volatility       any    `json:"volatility"`
	IFRACategory     string `json:"ifra_category"`
	MaxIFRA          any    `json:"max_ifra_cat4_percent"`
	SafetyNotes      string `json:"safety_notes"`
}

func normaliseProfile(requestedName string, data profileResponse) (MaterialProfile, error) {
	name := strings.TrimSpace(data.MaterialName)
	if name == "" {
		name = strings.TrimSpace(requestedName)
	}
	if name == "" {
		return MaterialProfile{}, errors.New("ai: material name missing from response")
	}

	profile := MaterialProfile{
		Name:             normaliseText(name),
		CASNumber:        normaliseValue(data.CASNumber),
		OtherNames:       sanitiseOtherNames(data.OtherNames, name),
		OlfactoryProfile: normaliseText(data.OlfactoryProfile),
		Type:             mapPyramid(data.PyramidPosition),
		Synthetic:        parseBool(data.Synthetic),
		IFRACategory:     normaliseValue(data.IFRACategory),
		SafetyNotes:      normaliseText(data.SafetyNotes),
	}
	if v, ok := parseNumeric(data.Volatility); ok {
		v = clamp01(v)
		profile.Volatility = &v
	}
	if limit, ok := parseNumeric(data.MaxIFRA); ok && limit > 0 {
		profile.IFRALimit = &limit
	}
	return profile, nil
}

// Apply copies the profile into fields of m that are still empty.
func (p MaterialProfile) Apply(m *models.RawMaterial) {
	if m.OlfactoryProfile == "" {
		m.OlfactoryProfile = p.OlfactoryProfile
	}
	if m.Type == "" {
		m.Type = p.Type
	}
	if m.Volatility == nil {
		m.Volatility = p.Volatility
	}
	if m.IFRACategory == nil && p.IFRACategory != "" {
		category := p.IFRACategory
		m.IFRACategory = &category
	}
	if m.IFRALimit == nil {
		m.IFRALimit = p.IFRALimit
	}
	if m.SafetyNotes == nil && p.SafetyNotes != "" {
		notes := p.SafetyNotes
		m.SafetyNotes = &notes
	}
	if p.Synthetic {
		m.IsSynthetic = true
	}
}

func normaliseValue(value string) string {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "", "n/a", "na", "none", "unknown":
		return ""
	default:
		return value
	}
}

func normaliseText(value string) string {
	value = normaliseValue(value)
	if value == "" {
		return ""
	}
	return strings.Join(strings.Fields(value), " ")
}

func mapPyramid(value string) models.MaterialType {
	value = strings.ToLower(strings.TrimSpace(value))
	switch {
	case strings.Contains(value, "fixative"):
		return models.MaterialFixative
	case strings.Contains(value, "solvent"):
		return models.MaterialSolvent
	case strings.Contains(value, "modifier"):
		return models.MaterialModifier
	case strings.HasPrefix(value, "top"), strings.HasPrefix(value, "head"):
		return models.MaterialTopNote
	case strings.HasPrefix(value, "base"), strings.HasPrefix(value, "bottom"):
		return models.MaterialBaseNote
	default:
		return models.MaterialMiddleNote
	}
}

func parseBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(v))
		return parsed || strings.EqualFold(strings.TrimSpace(v), "yes")
	default:
		return false
	}
}

func parseNumeric(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case json.Number:
		parsed, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		return parseFirstNumber(v)
	default:
		return 0, false
	}
}

func parseFirstNumber(value string) (float64, bool) {
	match := numberPattern.FindString(strings.TrimSpace(value))
	if match == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

var numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)

func sanitiseOtherNames(raw any, canonical string) []string {
	canonical = strings.ToLower(strings.TrimSpace(canonical))
	unique := make(map[string]struct{})
	result := []string{}

	add := func(value string) {
		value = normaliseValue(value)
		if value == "" {
			return
		}
		key := strings.ToLower(value)
		if key == canonical {
			return
		}
		if _, ok := unique[key]; ok {
			return
		}
		unique[key] = struct{}{}
		result = append(result, value)
	}

	switch values := raw.(type) {
	case []any:
		for _, entry := range values {
			if s, ok := entry.(string); ok {
				add(s)
			}
		}
	case []string:
		for _, entry := range values {
			add(entry)
		}
	case string:
		for _, part := range strings.Split(values, ",") {
			add(part)
		}
	}

	return result
}
