package models

import "time"

// StoredAssessment is the persisted answer document of one user
type StoredAssessment struct {
	UserID   string    `json:"userId"`
	Answers  Answers   `json:"answers"`
	Revision int64     `json:"revision"`
	SavedAt  time.Time `json:"savedAt"`
}

// SetAnswerRequest is the body of an answer update
type SetAnswerRequest struct {
	Value string `json:"value"`
}

// SaveResponse is returned after a save: the result is always present,
// persistence may have failed or be unavailable.
type SaveResponse struct {
	Result    *CalculationResult `json:"result"`
	Persisted bool               `json:"persisted"`
	Mode      IdentityMode       `json:"mode"`
	Revision  int64              `json:"revision,omitempty"`
	Message   string             `json:"message"`
}

// LoadResponse is returned after a load
type LoadResponse struct {
	Answers       Answers    `json:"answers"`
	Found         bool       `json:"found"`
	SavedAt       *time.Time `json:"savedAt,omitempty"`
	Revision      int64      `json:"revision,omitempty"`
	ResultIsStale bool       `json:"resultIsStale"`
	Message       string     `json:"message"`
}
