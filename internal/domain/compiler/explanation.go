package compiler

// Explanation provides context for why a step exists and what it does.
type Explanation struct {
	summary  string
	detail   string
	docLinks []string
	notes    []string
}

// NewExplanation creates a new Explanation.
func NewExplanation(summary, detail string, docLinks []string) Explanation {
	links := make([]string, len(docLinks))
	copy(links, docLinks)
	return Explanation{
		summary:  summary,
		detail:   detail,
		docLinks: links,
	}
}

// Summary returns a brief description of what the step does.
func (e Explanation) Summary() string {
	return e.summary
}

// Detail returns a longer explanation with context.
func (e Explanation) Detail() string {
	return e.detail
}

// DocLinks returns links to relevant documentation.
func (e Explanation) DocLinks() []string {
	links := make([]string, len(e.docLinks))
	copy(links, e.docLinks)
	return links
}

// Notes returns operator-facing caveats.
func (e Explanation) Notes() []string {
	notes := make([]string, len(e.notes))
	copy(notes, e.notes)
	return notes
}

// WithNotes returns a new Explanation with notes set.
func (e Explanation) WithNotes(notes ...string) Explanation {
	e.notes = make([]string, len(notes))
	copy(e.notes, notes)
	return e
}

// IsEmpty returns true if this explanation has no content.
func (e Explanation) IsEmpty() bool {
	return e.summary == "" && e.detail == ""
}
