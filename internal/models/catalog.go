package models

import "strings"

// Question is a single control rated on the maturity scale
type Question struct {
	ID   string `yaml:"id" json:"id"`
	Text string `yaml:"text" json:"text"`
}

// Domain groups related control questions (e.g. "A.7 Physical Controls")
type Domain struct {
	ID          string     `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description" json:"description"`
	Questions   []Question `yaml:"questions" json:"questions"`
}

// ShortTitle returns the title without its "<number>. " prefix.
// Titles without a ". " delimiter are returned unchanged.
func (d *Domain) ShortTitle() string {
	_, rest, found := strings.Cut(d.Title, ". ")
	if !found || rest == "" {
		return d.Title
	}
	return rest
}

// Option is one selectable answer on the maturity scale.
// Value "0" means not applicable.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
	Score int    `yaml:"score" json:"score"`
}

// Catalog is the immutable questionnaire: ordered domains plus the option scale
type Catalog struct {
	Domains []Domain `json:"domains"`
	Options []Option `json:"options"`

	totalQuestions int
	questionIndex  map[string]string // question id -> domain id
	optionIndex    map[string]*Option
}

// NewCatalog builds a catalog and its lookup indexes.
// Callers are expected to validate the catalog before use.
func NewCatalog(domains []Domain, options []Option) *Catalog {
	c := &Catalog{
		Domains:       domains,
		Options:       options,
		questionIndex: make(map[string]string),
		optionIndex:   make(map[string]*Option, len(options)),
	}

	for _, d := range domains {
		c.totalQuestions += len(d.Questions)
		for _, q := range d.Questions {
			c.questionIndex[q.ID] = d.ID
		}
	}

	for i := range options {
		c.optionIndex[options[i].Value] = &c.Options[i]
	}

	return c
}

// TotalQuestions returns the number of questions across all domains
func (c *Catalog) TotalQuestions() int {
	return c.totalQuestions
}

// HasQuestion reports whether the question id belongs to the catalog
func (c *Catalog) HasQuestion(id string) bool {
	_, ok := c.questionIndex[id]
	return ok
}

// DomainOf returns the id of the domain owning a question
func (c *Catalog) DomainOf(questionID string) (string, bool) {
	id, ok := c.questionIndex[questionID]
	return id, ok
}

// GetDomain returns a domain by ID, or nil
func (c *Catalog) GetDomain(id string) *Domain {
	for i := range c.Domains {
		if c.Domains[i].ID == id {
			return &c.Domains[i]
		}
	}
	return nil
}

// Option returns the option with the given value, or nil
func (c *Catalog) Option(value string) *Option {
	return c.optionIndex[value]
}
