package stylometry

import (
	"sort"

	"golang.org/x/text/cases"

	"stylomail/internal/models"
)

var fold = cases.Fold()

// BuildProfile ranks the tagged tokens by frequency and keeps the topN
// of each category. Tokens are case-folded before counting so "Send"
// and "send" land in the same bucket. Ties break alphabetically, which
// keeps profiles stable across runs.
func BuildProfile(tags *TagResult, topN int) models.StylometricProfile {
	return models.StylometricProfile{
		Verbs:      topTokens(tags.Verbs, topN),
		Adverbs:    topTokens(tags.Adverbs, topN),
		Adjectives: topTokens(tags.Adjectives, topN),
	}
}

func topTokens(tokens []string, topN int) []string {
	if len(tokens) == 0 || topN <= 0 {
		return []string{}
	}

	counts := make(map[string]int)
	for _, token := range tokens {
		folded := fold.String(token)
		if folded == "" {
			continue
		}
		counts[folded]++
	}

	ranked := make([]string, 0, len(counts))
	for token := range counts {
		ranked = append(ranked, token)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if topN < len(ranked) {
		ranked = ranked[:topN]
	}
	return ranked
}
