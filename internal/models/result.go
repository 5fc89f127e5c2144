package models

// FullMark is the upper bound of every domain percentage
const FullMark = 100

// DomainScoreEntry is the percentage reached by one domain
type DomainScoreEntry struct {
	DomainID string `json:"domainId"`
	Subject  string `json:"subject"` // short domain title
	Score    int    `json:"score"`
	FullMark int    `json:"fullMark"`
}

// CalculationResult is derived from answers + catalog on every calculation
type CalculationResult struct {
	TotalScore              int                `json:"totalScore"`
	MaxPossibleScore        int                `json:"maxPossibleScore"`
	Percentage              int                `json:"percentage"`
	AnsweredCount           int                `json:"answeredCount"`
	TotalQuestions          int                `json:"totalQuestions"`
	TotalScoreableQuestions int                `json:"totalScoreableQuestions"`
	MaturityLevel           string             `json:"maturityLevel"`
	MaturityLevelNumber     int                `json:"maturityLevelNumber"`
	Recommendation          string             `json:"recommendation"`
	DomainScores            []DomainScoreEntry `json:"domainScores"`

	// Progress is answeredCount as a percentage of totalQuestions
	Progress int  `json:"progress"`
	Partial  bool `json:"partial"`

	// MalformedAnswers lists catalog question ids whose stored value is not
	// a legal option value. They are excluded from answeredCount and scoring.
	MalformedAnswers []string `json:"malformedAnswers,omitempty"`
}

// Progress summarizes how much of the questionnaire has been answered
type Progress struct {
	AnsweredCount  int `json:"answeredCount"`
	TotalQuestions int `json:"totalQuestions"`
	Percentage     int `json:"percentage"`
}
