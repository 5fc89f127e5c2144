package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/iso-assessment/internal/models"
)

// ParseAnswers decodes an answers document. Both a flat mapping
// (question id -> value) and the {"answers": {...}} shape written by a
// load response are accepted. JSON input is valid YAML and parses the same.
// Values are kept verbatim; scoring decides which of them are legal.
func ParseAnswers(data []byte) (models.Answers, error) {
	var wrapped struct {
		Answers models.Answers `yaml:"answers"`
	}
	if err := yaml.Unmarshal(data, &wrapped); err == nil && len(wrapped.Answers) > 0 {
		return wrapped.Answers, nil
	}

	answers := models.Answers{}
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("failed to parse answers: %w", err)
	}
	return answers, nil
}
