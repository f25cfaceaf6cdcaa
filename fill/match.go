package fill

import "regexp"

// Control models a fillable form control as seen by the browser-side
// executor: its identifying attributes and current value. The Go
// engine below mirrors the executor exactly so the matching semantics
// can be tested without a browser.
type Control struct {
	Tag         string // "input", "textarea", "select"
	Name        string
	ID          string
	Placeholder string
	Value       string

	// Events records the synthetic notifications dispatched after a
	// fill ("input", "change").
	Events []string
}

func (c *Control) fill(value string) {
	c.Value = value
	c.Events = append(c.Events, "input", "change")
}

// Apply runs the two-phase fill against a set of controls and returns
// the number of controls filled.
//
// Phase one matches declared fields by exact control name. Phase two,
// entered only when phase one filled nothing, tests each empty control
// against the rule list in order; the first pattern matching the
// control's name, id, or placeholder wins. A non-empty control is
// never overwritten in either phase.
func Apply(plan *Plan, controls []*Control) int {
	filled := fillDeclared(plan.Declared, controls)
	if filled > 0 {
		return filled
	}
	return fillHeuristic(plan.Rules, controls)
}

func fillDeclared(declared []DeclaredField, controls []*Control) int {
	filled := 0
	for _, df := range declared {
		if df.Value == "" {
			continue
		}
		for _, c := range controls {
			if c.Name != df.Name {
				continue
			}
			if c.Value != "" {
				continue
			}
			c.fill(df.Value)
			filled++
		}
	}
	return filled
}

func fillHeuristic(rules []PlanRule, controls []*Control) int {
	compiled := make([]*regexp.Regexp, len(rules))
	for i, rule := range rules {
		compiled[i] = regexp.MustCompile(`(?i)` + rule.Pattern)
	}

	filled := 0
	for _, c := range controls {
		if c.Value != "" {
			continue
		}
		if c.Name == "" && c.ID == "" && c.Placeholder == "" {
			continue
		}
		for i, rule := range rules {
			re := compiled[i]
			if re.MatchString(c.Name) || re.MatchString(c.ID) || re.MatchString(c.Placeholder) {
				c.fill(rule.Value)
				filled++
				break
			}
		}
	}
	return filled
}
