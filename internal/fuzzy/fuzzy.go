// Package fuzzy implements character-sequence similarity scoring.
//
// Ratio follows the classic Ratcliff/Obershelp measure: twice the total
// length of all matching blocks divided by the combined length of both
// strings. The same measure is used for cache lookups, catalog dedup and
// trivia answer grading, so the implementation lives in one place.
package fuzzy

import "strings"

// Ratio returns the similarity of a and b in [0, 1].
// Identical strings score 1.0; fully disjoint strings score 0.0.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0.0
	}
	matched := matchingTotal(a, b)
	return 2.0 * float64(matched) / float64(la+lb)
}

// RatioFold is Ratio over lower-cased input.
func RatioFold(a, b string) float64 {
	return Ratio(strings.ToLower(a), strings.ToLower(b))
}

// WordOverlap returns the fraction of words in the shorter input that also
// appear in the longer one. Comparison is case-insensitive. Returns 0 when
// either input has no words.
func WordOverlap(a, b string) float64 {
	wa := strings.Fields(strings.ToLower(a))
	wb := strings.Fields(strings.ToLower(b))
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}
	if len(wa) > len(wb) {
		wa, wb = wb, wa
	}
	set := make(map[string]struct{}, len(wb))
	for _, w := range wb {
		set[w] = struct{}{}
	}
	hits := 0
	for _, w := range wa {
		if _, ok := set[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(wa))
}

// matchingTotal sums the lengths of all matching blocks found by recursively
// splitting around the longest common substring.
func matchingTotal(a, b string) int {
	type frame struct {
		alo, ahi, blo, bhi int
	}
	total := 0
	stack := []frame{{0, len(a), 0, len(b)}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ai, bj, size := longestMatch(a, b, f.alo, f.ahi, f.blo, f.bhi)
		if size == 0 {
			continue
		}
		total += size
		stack = append(stack,
			frame{f.alo, ai, f.blo, bj},
			frame{ai + size, f.ahi, bj + size, f.bhi},
		)
	}
	return total
}

// longestMatch finds the longest common substring of a[alo:ahi] and
// b[blo:bhi] using the rolling dynamic-programming row.
func longestMatch(a, b string, alo, ahi, blo, bhi int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for j := blo; j < bhi; j++ {
			if a[i] != b[j] {
				continue
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestsize
}
