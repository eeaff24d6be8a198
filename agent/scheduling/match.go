package scheduling

import (
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
)

var nonWord = regexp.MustCompile(`[^\w\s]+`)

// NormalizeName lowercases, strips non-word characters and collapses spaces.
func NormalizeName(s string) string {
	s = nonWord.ReplaceAllString(strings.ToLower(s), " ")
	return strings.Join(strings.Fields(s), " ")
}

// MatchProvider resolves free text to one canonical provider name using
// tiers: exact normalized equality, then whole-word containment, then
// substring containment. The first tier with any hit decides.
func MatchProvider(input string, options []string) (string, error) {
	needle := NormalizeName(input)
	options = dedupe(options)
	if needle == "" {
		return "", &contractx.ValidationError{Missing: []string{"provider"}, Options: options}
	}

	for _, opt := range options {
		if NormalizeName(opt) == needle {
			return opt, nil
		}
	}

	wordHits := filter(options, func(norm string) bool {
		return containsWords(norm, needle)
	})
	if resolved, done, err := decide(input, wordHits); done {
		return resolved, err
	}

	substrHits := filter(options, func(norm string) bool {
		return strings.Contains(norm, needle)
	})
	if resolved, done, err := decide(input, substrHits); done {
		return resolved, err
	}

	return "", &contractx.ValidationError{
		Field:   "provider",
		Reason:  "no provider matches " + strings.TrimSpace(input),
		Options: options,
	}
}

func decide(input string, hits []string) (string, bool, error) {
	switch len(hits) {
	case 0:
		return "", false, nil
	case 1:
		return hits[0], true, nil
	default:
		return "", true, &contractx.AmbiguityError{Field: "provider", Input: strings.TrimSpace(input), Matches: hits}
	}
}

// containsWords reports whether needle occurs in hay on word boundaries.
func containsWords(hay, needle string) bool {
	h := strings.Fields(hay)
	n := strings.Fields(needle)
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j := range n {
			if h[i+j] != n[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func filter(options []string, keep func(norm string) bool) []string {
	var out []string
	for _, opt := range options {
		if keep(NormalizeName(opt)) {
			out = append(out, opt)
		}
	}
	return out
}

func dedupe(options []string) []string {
	seen := make(map[string]struct{}, len(options))
	out := make([]string, 0, len(options))
	for _, opt := range options {
		key := NormalizeName(opt)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, opt)
	}
	return out
}
