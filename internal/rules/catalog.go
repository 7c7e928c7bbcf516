package rules

import "regexp"

// Builtin returns the built-in catalogue in a fixed order. Each call returns fresh values so
// callers may attach them to a registry without sharing state.
func Builtin() []Rule {
	var out []Rule
	for _, group := range [][]Rule{
		accessibilityRules(),
		stylingRules(),
		componentRules(),
		frameworkRules(),
		performanceRules(),
		typescriptRules(),
		securityRules(),
		maintainabilityRules(),
	} {
		for _, r := range group {
			r.Origin = OriginBuiltin
			out = append(out, r)
		}
	}
	return out
}

// Categories lists the categories used by the built-in catalogue, structure included.
func Categories() []string {
	return []string{
		"accessibility",
		"styling",
		"components",
		"framework",
		"performance",
		"typescript",
		"security",
		"maintainability",
		"structure",
	}
}

var re = regexp.MustCompile
