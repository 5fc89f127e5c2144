package scoring

// Classification is the maturity level reached by a global percentage
type Classification struct {
	Level          int    `json:"level"`
	Name           string `json:"name"`
	Recommendation string `json:"recommendation"`
}

// band is a classification reached when percentage is strictly above threshold
type band struct {
	threshold int
	Classification
}

// bands are evaluated top-down, first match wins
var bands = []band{
	{90, Classification{
		Level: 5,
		Name:  "Continuous Improvement (Level 5)",
		Recommendation: "CMMI level of excellence. Your ISMS focuses on continuous improvement and innovation, " +
			"using quantitative analysis to optimize security processes.",
	}},
	{70, Classification{
		Level: 4,
		Name:  "Measured (Level 4)",
		Recommendation: "Security processes are measured, controlled and predictable. Focus on performance " +
			"metrics and quantitative objectives for data-driven decisions.",
	}},
	{50, Classification{
		Level: 3,
		Name:  "Standardized (Level 3)",
		Recommendation: "Security processes are standardized, well characterized and documented (policy, " +
			"procedures, responsibilities). Prioritize systematic staff training.",
	}},
	{30, Classification{
		Level: 2,
		Name:  "Repeatable (Level 2)",
		Recommendation: "Projects are planned and executed following basic policies. Concentrate on keeping " +
			"basic controls such as backups, access management and physical security.",
	}},
}

var initial = Classification{
	Level: 1,
	Name:  "Initial (Level 1)",
	Recommendation: "The ISMS is unpredictable and reactive. Establish the security policy, define the scope " +
		"and carry out a formal risk assessment to reach Level 2.",
}

// Classify maps a percentage to a maturity level.
// Thresholds are exclusive: exactly 90 is Level 4, 91 is Level 5.
func Classify(percentage int) Classification {
	for _, b := range bands {
		if percentage > b.threshold {
			return b.Classification
		}
	}
	return initial
}

// Levels returns every classification from Level 1 to Level 5
func Levels() []Classification {
	out := []Classification{initial}
	for i := len(bands) - 1; i >= 0; i-- {
		out = append(out, bands[i].Classification)
	}
	return out
}
