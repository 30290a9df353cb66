package normalizer

import (
	"fmt"
	"strings"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

// Instrument fields a classification rule can match on
const (
	FieldType          = "type"
	FieldOperationType = "operation_type"
)

// Rule maps instruments whose field takes one of Values to a category
type Rule struct {
	Field    string               `yaml:"field" json:"field"`
	Values   []string             `yaml:"values" json:"values"`
	Category domain.AssetCategory `yaml:"category" json:"category"`
}

// Classifier assigns an asset category to an instrument. Rules are tried in order; the first match wins.
type Classifier struct {
	Rules []Rule
}

// DefaultRules is the classification table of the Argentine broker export
func DefaultRules() []Rule {
	return []Rule{
		{Field: FieldOperationType, Values: []string{"OPTION"}, Category: domain.CategoryOption},
		{Field: FieldType, Values: []string{"CEDEAR"}, Category: domain.CategoryDepositaryReceipt},
		{Field: FieldType, Values: []string{"MERVAL", "GENERAL", "LIDER", "PRIVATE_TITLE"}, Category: domain.CategoryEquity},
		{Field: FieldType, Values: []string{"BOND", "LETTER", "PUBLIC_TITLE"}, Category: domain.CategoryFixedIncome},
		{Field: FieldOperationType, Values: []string{"PUBLIC_TITLE"}, Category: domain.CategoryFixedIncome},
		{Field: FieldOperationType, Values: []string{"PRIVATE_TITLE"}, Category: domain.CategoryEquity},
	}
}

// NewClassifier creates a Classifier, falling back to DefaultRules when rules is empty
func NewClassifier(rules []Rule) (*Classifier, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	for i, r := range rules {
		if r.Field != FieldType && r.Field != FieldOperationType {
			return nil, fmt.Errorf("classification rule %d: unknown field %q", i, r.Field)
		}
		if !r.Category.Valid() {
			return nil, fmt.Errorf("classification rule %d: unknown category %q", i, r.Category)
		}
		if len(r.Values) == 0 {
			return nil, fmt.Errorf("classification rule %d: values cannot be empty", i)
		}
	}
	return &Classifier{Rules: rules}, nil
}

// Classify returns the category of an instrument, or false when no rule matches
func (c *Classifier) Classify(inst *Instrument) (domain.AssetCategory, bool) {
	if inst == nil {
		return "", false
	}
	fields := map[string]string{
		FieldType:          strings.ToUpper(strings.TrimSpace(inst.Type)),
		FieldOperationType: strings.ToUpper(strings.TrimSpace(inst.InstrumentOperationType)),
	}
	for _, rule := range c.Rules {
		value := fields[rule.Field]
		if value == "" {
			continue
		}
		for _, v := range rule.Values {
			if strings.EqualFold(v, value) {
				return rule.Category, true
			}
		}
	}
	return "", false
}
