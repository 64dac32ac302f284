// Package classify assigns spending categories to receipts from the
// canonical merchant name using an ordered keyword table.
package classify

import (
	"strings"

	"recivo/internal/domain"
)

const (
	// OtherCategory is assigned when no keyword rule matches.
	OtherCategory   = "Other"
	OtherCategoryID = "other"

	ruleConfidence    = 0.9
	defaultConfidence = 0.5
)

// Classifier matches merchant names against an ordered rule table.
type Classifier struct {
	rules []categoryRule
}

// NewClassifier creates a classifier with the built-in rule table.
func NewClassifier() *Classifier {
	return &Classifier{rules: defaultRules}
}

// NewClassifierWithRules creates a classifier with a custom rule table.
func NewClassifierWithRules(rules []categoryRule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the category for a merchant name. The first rule whose
// keyword appears in the lowercased name wins at rule confidence; names
// matching nothing fall through to Other at default confidence.
func (c *Classifier) Classify(merchantName string) domain.Category {
	name := strings.ToLower(merchantName)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(name, kw) {
				return domain.Category{
					ID:         rule.ID,
					Name:       rule.Name,
					Confidence: ruleConfidence,
					AssignedBy: domain.CategoryAssignerRule,
				}
			}
		}
	}
	return domain.Category{
		ID:         OtherCategoryID,
		Name:       OtherCategory,
		Confidence: defaultConfidence,
		AssignedBy: domain.CategoryAssignerDefault,
	}
}
