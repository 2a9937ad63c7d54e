// Package similarity scores how close two answer strings are after loose
// normalization. The primary scorer blends character bigram overlap with a
// sequence-alignment ratio so it tolerates both symbol noise and local
// reordering.
package similarity

import (
	"github.com/penmark/hweval-api/pkg/textnorm"
)

// DefaultFuzzyThreshold is the match threshold used when the caller does not
// supply one.
const DefaultFuzzyThreshold = 0.80

// shortInputRunes is the normalized length below which bigram Jaccard becomes
// unreliable and the sequence ratio is used on its own.
const shortInputRunes = 3

// Calculate returns a similarity in [0, 1] between two raw answer strings.
//
// Both inputs empty scores 1, exactly one empty scores 0. Inputs are first
// reduced with textnorm.NormalizeForSimilarity; equal normal forms score 1 and
// an empty normal form on either side scores 0. Very short normal forms fall
// back to the plain sequence ratio; otherwise the result is the 50/50 blend of
// character 2-gram Jaccard and the sequence ratio.
func Calculate(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	normA := textnorm.NormalizeForSimilarity(a)
	normB := textnorm.NormalizeForSimilarity(b)
	if normA == normB {
		return 1.0
	}
	if normA == "" || normB == "" {
		return 0.0
	}

	runesA := []rune(normA)
	runesB := []rune(normB)
	if len(runesA) < shortInputRunes || len(runesB) < shortInputRunes {
		return sequenceRatio(runesA, runesB)
	}

	jaccard := bigramJaccard(runesA, runesB)
	ratio := sequenceRatio(runesA, runesB)
	return 0.5*jaccard + 0.5*ratio
}

// IsFuzzyMatch reports whether the two strings score at or above the given
// threshold, returning the computed similarity alongside. A non-positive
// threshold selects DefaultFuzzyThreshold.
func IsFuzzyMatch(a, b string, threshold float64) (bool, float64) {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	score := Calculate(a, b)
	return score >= threshold, score
}

// CharRatio is a simpler character-bag overlap ratio kept as a diagnostic
// baseline next to Calculate. It ignores ordering entirely: the score is twice
// the shared character count over the combined length of the normal forms.
func CharRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	runesA := []rune(textnorm.NormalizeForSimilarity(a))
	runesB := []rune(textnorm.NormalizeForSimilarity(b))
	if len(runesA) == 0 && len(runesB) == 0 {
		return 1.0
	}
	if len(runesA) == 0 || len(runesB) == 0 {
		return 0.0
	}

	countsA := map[rune]int{}
	for _, r := range runesA {
		countsA[r]++
	}

	common := 0
	for _, r := range runesB {
		if countsA[r] > 0 {
			countsA[r]--
			common++
		}
	}

	return 2.0 * float64(common) / float64(len(runesA)+len(runesB))
}

// bigramJaccard computes set Jaccard over contiguous 2-rune substrings.
func bigramJaccard(a, b []rune) float64 {
	gramsA := bigrams(a)
	gramsB := bigrams(b)
	if len(gramsA) == 0 || len(gramsB) == 0 {
		return 0.0
	}

	intersection := 0
	for gram := range gramsA {
		if _, ok := gramsB[gram]; ok {
			intersection++
		}
	}

	union := len(gramsA) + len(gramsB) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

func bigrams(runes []rune) map[string]struct{} {
	grams := make(map[string]struct{}, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])] = struct{}{}
	}
	return grams
}

// sequenceRatio is the classic sequence-matcher similarity: twice the longest
// common subsequence length over the total length of both inputs.
func sequenceRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}

	matches := lcsLength(a, b)
	return 2.0 * float64(matches) / float64(total)
}

func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	previous := make([]int, len(b)+1)
	current := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				current[j] = previous[j-1] + 1
			} else if previous[j] >= current[j-1] {
				current[j] = previous[j]
			} else {
				current[j] = current[j-1]
			}
		}
		previous, current = current, previous
	}

	return previous[len(b)]
}
