// Package scoring turns a sparse answer mapping into per-domain and global
// percentages plus a maturity classification.
package scoring

import (
	"math"
	"strconv"

	"github.com/terra-clan/iso-assessment/internal/models"
)

// MaxScorePerQuestion is the fixed ceiling of every scoreable question.
// It does not follow the option scale.
const MaxScorePerQuestion = 5

// Outcome tags a stored answer value
type Outcome int

const (
	OutcomeScored Outcome = iota
	OutcomeNotApplicable
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeScored:
		return "scored"
	case OutcomeNotApplicable:
		return "not_applicable"
	default:
		return "malformed"
	}
}

// ParseAnswer classifies a stored value. Only the canonical numerals
// "0".."5" are legal; the score is meaningful for OutcomeScored only.
func ParseAnswer(value string) (Outcome, int) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 || n > MaxScorePerQuestion || strconv.Itoa(n) != value {
		return OutcomeMalformed, 0
	}
	if n == 0 {
		return OutcomeNotApplicable, 0
	}
	return OutcomeScored, n
}

// Percent returns round(score / outOf * 100), or 0 when outOf is 0.
// Rounding is half away from zero.
func Percent(score, outOf int) int {
	if outOf <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(outOf) * 100))
}

// Calculate scores answers against the catalog. Only catalog question ids
// are consulted; unknown keys in answers are ignored.
func Calculate(catalog *models.Catalog, answers models.Answers) models.CalculationResult {
	result := models.CalculationResult{
		TotalQuestions: catalog.TotalQuestions(),
		DomainScores:   []models.DomainScoreEntry{},
	}

	for i := range catalog.Domains {
		domain := &catalog.Domains[i]
		domainTotal, domainMax := 0, 0

		for _, q := range domain.Questions {
			value, ok := answers[q.ID]
			if !ok {
				continue
			}

			outcome, score := ParseAnswer(value)
			switch outcome {
			case OutcomeMalformed:
				result.MalformedAnswers = append(result.MalformedAnswers, q.ID)
			case OutcomeNotApplicable:
				result.AnsweredCount++
			case OutcomeScored:
				result.AnsweredCount++
				result.TotalScore += score
				result.TotalScoreableQuestions++
				domainTotal += score
				domainMax += MaxScorePerQuestion
			}
		}

		if domainMax > 0 {
			result.DomainScores = append(result.DomainScores, models.DomainScoreEntry{
				DomainID: domain.ID,
				Subject:  domain.ShortTitle(),
				Score:    Percent(domainTotal, domainMax),
				FullMark: models.FullMark,
			})
		}
	}

	result.MaxPossibleScore = result.TotalScoreableQuestions * MaxScorePerQuestion
	result.Percentage = Percent(result.TotalScore, result.MaxPossibleScore)

	level := Classify(result.Percentage)
	result.MaturityLevel = level.Name
	result.MaturityLevelNumber = level.Level
	result.Recommendation = level.Recommendation

	result.Progress = Percent(result.AnsweredCount, result.TotalQuestions)
	result.Partial = result.AnsweredCount < result.TotalQuestions

	return result
}

// Progress counts answered catalog questions without scoring them
func Progress(catalog *models.Catalog, answers models.Answers) models.Progress {
	p := models.Progress{TotalQuestions: catalog.TotalQuestions()}
	for _, d := range catalog.Domains {
		for _, q := range d.Questions {
			if value, ok := answers[q.ID]; ok {
				if outcome, _ := ParseAnswer(value); outcome != OutcomeMalformed {
					p.AnsweredCount++
				}
			}
		}
	}
	p.Percentage = Percent(p.AnsweredCount, p.TotalQuestions)
	return p
}
