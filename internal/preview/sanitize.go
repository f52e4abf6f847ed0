package preview

import (
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips active content from fetched HTML before it is
// previewed. The preview frame is sandboxed either way; sanitizing is
// an opt-in second layer, not a guarantee.
type Sanitizer struct {
	policy *bluemonday.Policy
	logger *slog.Logger
}

// NewSanitizer builds a sanitizer on the UGC policy, widened to keep
// enough document structure for a whole-page preview.
func NewSanitizer(logger *slog.Logger) *Sanitizer {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements(
		"html", "head", "title", "body",
		"header", "footer", "nav", "main",
		"section", "article", "aside", "figure", "figcaption",
	)
	policy.AllowAttrs("class", "id").Globally()
	policy.AllowDataURIImages()

	return &Sanitizer{
		policy: policy,
		logger: logger.With("component", "sanitizer"),
	}
}

// Sanitize returns html with scripts, event handlers, and other active
// content removed.
func (s *Sanitizer) Sanitize(html []byte) []byte {
	out := s.policy.SanitizeBytes(html)
	s.logger.Debug("sanitized preview html", "in_bytes", len(html), "out_bytes", len(out))
	return out
}
