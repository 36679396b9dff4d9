package scapeid

import "strings"

// Canonical benchmark scape names.
const (
	Law       = "law"
	Shift     = "shift"
	Chaos     = "chaos"
	Imitation = "imitation"
)

// Names lists the canonical scape names in presentation order.
func Names() []string {
	return []string{Law, Shift, Chaos, Imitation}
}

// Normalize canonicalizes scape names and benchmark aliases. Unknown names
// are returned in normalized form.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalScapeName(candidate); ok {
			return canonical
		}
	}
	return normalized
}

func aliasCandidates(normalized string) []string {
	candidates := []string{normalized}
	candidate := normalized
	for _, prefix := range []string{"benchmark-", "bench-", "ds-bench-", "scape-"} {
		candidate = strings.TrimPrefix(candidate, prefix)
	}
	candidate = strings.Trim(candidate, "-")
	if candidate != "" && candidate != normalized {
		candidates = append(candidates, candidate)
	}
	if trimmed := trimBenchSuffix(candidate); trimmed != "" && trimmed != candidate {
		candidates = append(candidates, trimmed)
	}
	return candidates
}

func trimBenchSuffix(value string) string {
	switch {
	case strings.HasSuffix(value, "-bench"):
		return strings.TrimSuffix(value, "-bench")
	case strings.HasSuffix(value, "bench") && !strings.Contains(value, "-"):
		return strings.TrimSuffix(value, "bench")
	default:
		return value
	}
}

func canonicalScapeName(alias string) (string, bool) {
	switch strings.ReplaceAll(alias, "-", "") {
	case "law", "lawsync", "structuredlaw", "structuredlawsync":
		return Law, true
	case "shift", "rapidshift", "rapid15stepshift", "lawshift":
		return Shift, true
	case "chaos", "chaosadaptation", "chaosdynamicadaptation", "logistic":
		return Chaos, true
	case "imitation", "expert", "imitationwithoutreward", "observeexpert":
		return Imitation, true
	default:
		return "", false
	}
}
