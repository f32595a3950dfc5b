package classify

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"kpiboard/pkg/contracts/domain"
)

// Rule is one entry of the classification table. A label matches when it
// contains every AllOf keyword and, if AnyOf is set, at least one AnyOf keyword.
type Rule struct {
	ID    domain.KPIID `json:"id"`
	AllOf []string     `json:"all_of,omitempty"`
	AnyOf []string     `json:"any_of,omitempty"`
}

// rules is evaluated top to bottom; order is significant.
var rules = []Rule{
	{ID: domain.KPILTIR, AllOf: []string{"ltir"}},
	{ID: domain.KPIReclamos, AllOf: []string{"reclamos"}},
	{ID: domain.KPIServicio, AnyOf: []string{"nivel", "servicio"}},
	{ID: domain.KPICostoTransf, AllOf: []string{"costo", "transform"}},
	{ID: domain.KPIBodega, AllOf: []string{"costo", "bodega"}},
	{ID: domain.KPIPlan, AllOf: []string{"ejecucion", "plan"}},
	{ID: domain.KPIAuditorias, AllOf: []string{"auditor"}},
}

// Rules returns a copy of the classification table in evaluation order
func Rules() []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{
			ID:    r.ID,
			AllOf: append([]string(nil), r.AllOf...),
			AnyOf: append([]string(nil), r.AnyOf...),
		}
	}
	return out
}

// Matches reports whether an already normalized label satisfies the rule
func (r Rule) Matches(normalized string) bool {
	for _, kw := range r.AllOf {
		if !strings.Contains(normalized, kw) {
			return false
		}
	}
	if len(r.AnyOf) == 0 {
		return true
	}
	for _, kw := range r.AnyOf {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// combiningDiacritic covers the Combining Diacritical Marks block (U+0300..U+036F)
func combiningDiacritic(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
}

// Normalize lower-cases label, decomposes it (NFD) and drops combining
// diacritical marks.
func Normalize(label string) string {
	// transform.Chain is stateful, so each call gets its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(combiningDiacritic)))
	out, _, err := transform.String(t, strings.ToLower(label))
	if err != nil {
		return strings.ToLower(label)
	}
	return out
}

// Classify returns the KPI a label refers to. The boolean is false when no
// rule matches or the label is empty.
func Classify(label string) (domain.KPIID, bool) {
	if label == "" {
		return "", false
	}
	s := Normalize(label)
	for _, r := range rules {
		if r.Matches(s) {
			return r.ID, true
		}
	}
	return "", false
}
