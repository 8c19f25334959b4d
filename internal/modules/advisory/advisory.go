// Package advisory turns computed results into ordered message keys. Rule sets are data:
// each rule pairs a predicate with a key, and a set is evaluated once, in order. Presentation
// and localization of the keys belong to the caller.
package advisory

// Severity grades a piece of advice.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Advice is one triggered rule.
type Advice struct {
	Key      string   `json:"key"`
	Severity Severity `json:"severity"`
}

// Rule fires Key when When holds for the subject.
type Rule[T any] struct {
	Key      string
	Severity Severity
	When     func(T) bool
}

// RuleSet is an ordered list of rules over one subject type.
type RuleSet[T any] []Rule[T]

// Evaluate runs every rule once, in order, and returns the advice that fired. The result is
// never nil.
func (rs RuleSet[T]) Evaluate(subject T) []Advice {
	out := make([]Advice, 0, len(rs))
	for _, r := range rs {
		if r.When(subject) {
			out = append(out, Advice{Key: r.Key, Severity: r.Severity})
		}
	}
	return out
}

// Keys returns the keys of the given advice in order.
func Keys(advice []Advice) []string {
	keys := make([]string, len(advice))
	for i, a := range advice {
		keys[i] = a.Key
	}
	return keys
}
