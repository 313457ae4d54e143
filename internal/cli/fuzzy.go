package cli

import "unicode/utf8"

// suggestExitLiteral runs a small subsequence fuzzy match against the
// handful of control literals (exit/quit/bye) and, if one scores well
// enough, returns it as a "did you mean" hint. This is the same
// scan-and-score shape as a general-purpose fuzzy matcher, narrowed to a
// fixed three-word vocabulary: there is no dictionary or frequency table
// to weigh here, just a literal the user probably meant to type.
func suggestExitLiteral(input string) (string, bool) {
	if len(input) < 2 || len(input) > 6 {
		return "", false
	}
	best := ""
	bestScore := -1
	for _, lit := range exitLiterals {
		if score, ok := fuzzyScore(input, lit); ok && score > bestScore {
			bestScore = score
			best = lit
		}
	}
	if bestScore < minSuggestScore {
		return "", false
	}
	return best, true
}

const minSuggestScore = firstCharMatchBonus

const (
	firstCharMatchBonus            = 15
	adjacentMatchBonus             = 10
	unmatchedLeadingCharPenalty    = -3
	maxUnmatchedLeadingCharPenalty = -9
)

// fuzzyScore reports whether every rune of pattern occurs as a subsequence
// of candidate (case-insensitively) and, if so, a score rewarding an early
// first match and consecutive runs, mirroring the bonuses a full
// command-line fuzzy matcher would apply.
func fuzzyScore(pattern, candidate string) (int, bool) {
	p := []rune(pattern)
	c := []rune(candidate)

	patternIndex := 0
	matchedIndexes := make([]int, 0, len(p))
	score := 0
	bestLocal := -1
	matchedLocal := -1

	for i := 0; i < len(c) && patternIndex < len(p); i++ {
		if !equalFold(c[i], p[patternIndex]) {
			continue
		}
		local := 0
		if i == 0 {
			local += firstCharMatchBonus
		}
		if len(matchedIndexes) > 0 && matchedIndexes[len(matchedIndexes)-1] == i-1 {
			local += adjacentMatchBonus
		}
		if local > bestLocal {
			bestLocal = local
			matchedLocal = i
		}

		var nextPattern rune
		if patternIndex < len(p)-1 {
			nextPattern = p[patternIndex+1]
		}
		var nextCandidate rune
		if i < len(c)-1 {
			nextCandidate = c[i+1]
		}
		if equalFold(nextPattern, nextCandidate) || nextCandidate == 0 {
			if matchedLocal > -1 {
				if len(matchedIndexes) == 0 {
					penalty := matchedLocal * unmatchedLeadingCharPenalty
					if penalty < maxUnmatchedLeadingCharPenalty {
						penalty = maxUnmatchedLeadingCharPenalty
					}
					bestLocal += penalty
				}
				score += bestLocal
				matchedIndexes = append(matchedIndexes, matchedLocal)
				bestLocal = -1
				patternIndex++
			}
		}
	}

	if patternIndex < len(p) {
		return 0, false
	}
	score -= len(c) - len(matchedIndexes)
	return score, true
}

func equalFold(a, b rune) bool {
	if a == b {
		return true
	}
	if a < utf8.RuneSelf && b < utf8.RuneSelf {
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		return a == b
	}
	return false
}
