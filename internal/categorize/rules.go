package categorize

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule maps keywords to a category
type Rule struct {
	Category Category
	Keywords []string
}

type compiledRule struct {
	category Category
	pattern  *regexp.Regexp
}

// RuleClassifier is a keyword-based Classifier. Rules are tried in canonical
// category order and a line matching none of them is Other.
type RuleClassifier struct {
	rules []compiledRule
}

// DefaultRules returns keyword rules covering common invoice wording
func DefaultRules() []Rule {
	return []Rule{
		{Category: Travel, Keywords: []string{"uber", "lyft", "taxi", "flight", "airline", "airport", "hotel", "train", "rental car", "mileage"}},
		{Category: Food, Keywords: []string{"restaurant", "lunch", "dinner", "breakfast", "coffee", "snacks", "burger", "pizza", "catering", "meal"}},
		{Category: Software, Keywords: []string{"saas", "subscription", "license", "cloud", "hosting", "compute", "api", "domain"}},
		{Category: Office, Keywords: []string{"laptop", "monitor", "desk", "chair", "notebook", "pens", "paper", "printer", "toner", "stapler"}},
	}
}

// NewRuleClassifier compiles rules into whole-word, case-insensitive patterns
func NewRuleClassifier(rules []Rule) (*RuleClassifier, error) {
	byCategory := make(map[Category][]string)
	for _, r := range rules {
		if !r.Category.Valid() {
			return nil, fmt.Errorf("rule has unknown category %q", r.Category)
		}
		for _, kw := range r.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			byCategory[r.Category] = append(byCategory[r.Category], regexp.QuoteMeta(strings.ToLower(kw)))
		}
	}

	rc := &RuleClassifier{}
	for _, c := range categories {
		kws, ok := byCategory[c]
		if !ok {
			continue
		}
		re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(kws, "|") + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("compiling rules for %s: %w", c, err)
		}
		rc.rules = append(rc.rules, compiledRule{category: c, pattern: re})
	}
	return rc, nil
}

// Categorize implements Classifier
func (r *RuleClassifier) Categorize(text string) Category {
	text = stripAccents(text)
	for _, rule := range r.rules {
		if rule.pattern.MatchString(text) {
			return rule.category
		}
	}
	return Other
}

// Fallback asks Secondary whenever Primary answers Other
type Fallback struct {
	Primary   Classifier
	Secondary Classifier
}

// Categorize implements Classifier
func (f Fallback) Categorize(text string) Category {
	if c := f.Primary.Categorize(text); c != Other {
		return c
	}
	return f.Secondary.Categorize(text)
}

// WithKeywordFallback wraps primary so that lines it answers Other are
// matched against DefaultRules
func WithKeywordFallback(primary Classifier) (Classifier, error) {
	rules, err := NewRuleClassifier(DefaultRules())
	if err != nil {
		return nil, fmt.Errorf("compiling keyword rules: %w", err)
	}
	return Fallback{Primary: primary, Secondary: rules}, nil
}
