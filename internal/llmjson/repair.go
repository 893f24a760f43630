package llmjson

import "strings"

// enumStemLen is the minimum shared prefix between an answer token and a
// variant token to count as the same stem ("historical" / "history").
const enumStemLen = 6

// RepairEnum maps a free-form LLM string onto the closest allowed variant.
// Matching order: exact (case-insensitive), substring containment in
// either direction, then token stems ("the editorial one" names
// editorial_strategist). Unmatchable values get the fallback variant —
// the caller documents its default rather than failing.
func RepairEnum(raw string, allowed []string, fallback string) string {
	norm := strings.ToLower(strings.TrimSpace(raw))
	if norm == "" {
		return fallback
	}
	// Free-form answers often arrive with punctuation or underscore/dash
	// variance ("lead-magnet", "Lead Magnet.").
	norm = strings.Trim(norm, ".\"' ")
	canon := func(s string) string {
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, "-", "_")
		s = strings.ReplaceAll(s, " ", "_")
		return s
	}
	normC := canon(norm)

	for _, a := range allowed {
		if canon(a) == normC {
			return a
		}
	}
	for _, a := range allowed {
		ac := canon(a)
		if strings.Contains(normC, ac) || strings.Contains(ac, normC) {
			return a
		}
	}
	for _, a := range allowed {
		if stemMatch(normC, canon(a)) {
			return a
		}
	}
	return fallback
}

// stemMatch reports whether any token of the answer shares a stem with
// any token of the variant.
func stemMatch(answer, variant string) bool {
	for _, at := range strings.Split(answer, "_") {
		for _, vt := range strings.Split(variant, "_") {
			if at == vt || prefixLen(at, vt) >= enumStemLen {
				return true
			}
		}
	}
	return false
}

func prefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
