package integration

import "github.com/microcosm-cc/bluemonday"

// Sanitizer cleans author-supplied rich text before it is stored and later
// rendered by clients.
type Sanitizer interface {
	Sanitize(html string) string
}

type htmlSanitizer struct {
	policy *bluemonday.Policy
}

func NewHTMLSanitizer() Sanitizer {
	return &htmlSanitizer{policy: bluemonday.UGCPolicy()}
}

func (s *htmlSanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
