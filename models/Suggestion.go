package models

// SuggestedNote is an externally produced proposal to add a material to a
// formula tier. Its content is not validated by the store.
type SuggestedNote struct {
	MaterialID uint         `json:"material_id"`
	Type       MaterialType `json:"type"`
	Confidence float64      `json:"confidence"`
	Reason     string       `json:"reason"`
}

type ScentProfile struct {
	Mood            string   `json:"mood"`
	Intensity       float64  `json:"intensity"`
	Characteristics []string `json:"characteristics"`
}

type Recommendation struct {
	SuggestedNotes []SuggestedNote `json:"suggested_notes"`
	ScentProfile   ScentProfile    `json:"scent_profile"`
	Confidence     float64         `json:"confidence"`
}
