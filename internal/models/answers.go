package models

// Answers maps question IDs to the selected option value ("0".."5").
// Unanswered questions are absent, never present with an empty value.
type Answers map[string]string

// SetAnswer returns a copy of answers with questionID set to value.
// The input mapping is left untouched.
func SetAnswer(answers Answers, questionID, value string) Answers {
	next := make(Answers, len(answers)+1)
	for k, v := range answers {
		next[k] = v
	}
	next[questionID] = value
	return next
}

// Clone returns an independent copy of the mapping
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Equal reports whether both mappings hold the same keys and values
func (a Answers) Equal(other Answers) bool {
	if len(a) != len(other) {
		return false
	}
	for k, v := range a {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
