package fill

import (
	"regexp"

	"github.com/opptym/quill/directory"
	"github.com/opptym/quill/project"
)

// DeclaredField is a requirement-set entry with its value already
// resolved from the snapshot. Phase one of the fill matches these by
// exact control name.
type DeclaredField struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required,omitempty"`
	Value    string `json:"value"`
}

// PlanRule is a heuristic rule with its value resolved. Rules whose
// resolved value is empty are dropped from the plan, which is
// equivalent to treating them as non-matching.
type PlanRule struct {
	Field   string `json:"field"`
	Pattern string `json:"pattern"`
	Value   string `json:"value"`
}

// Plan is the complete fill instruction set embedded into a generated
// script: declared fields first, heuristic rules as fallback. All
// snapshot access happens at plan-build time; the plan itself is plain
// data.
type Plan struct {
	Declared []DeclaredField `json:"declared"`
	Rules    []PlanRule      `json:"rules"`
}

// BuildPlan resolves the requirement set and the heuristic rule table
// against a snapshot.
func BuildPlan(snap *project.Snapshot, fields []directory.FieldDescriptor) *Plan {
	rules := Rules()
	plan := &Plan{}

	for _, fd := range fields {
		plan.Declared = append(plan.Declared, DeclaredField{
			Name:     fd.Name,
			Type:     fd.Type,
			Required: fd.Required,
			Value:    resolveDeclared(rules, snap, fd.Name),
		})
	}

	for _, rule := range rules {
		value := rule.Resolve(snap)
		if value == "" {
			continue
		}
		plan.Rules = append(plan.Rules, PlanRule{
			Field:   rule.Name,
			Pattern: rule.Pattern,
			Value:   value,
		})
	}

	return plan
}

// resolveDeclared derives a value for a declared field by running its
// name through the heuristic table: first rule whose pattern matches
// the name and resolves non-empty wins.
func resolveDeclared(rules []Rule, snap *project.Snapshot, name string) string {
	for _, rule := range rules {
		re := regexp.MustCompile(`(?i)` + rule.Pattern)
		if !re.MatchString(name) {
			continue
		}
		if value := rule.Resolve(snap); value != "" {
			return value
		}
	}
	return ""
}
