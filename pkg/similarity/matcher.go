// Package similarity locates approximate occurrences of a text snippet
// inside a document. It is used to re-anchor suggestions after the text
// they point at has been retyped or lightly paraphrased.
//
// All offsets are rune offsets.
package similarity

import (
	"sort"
	"strings"
	"unicode"

	"ai-critic-be/pkg/analysis"
)

const (
	minWindow       = 50
	longSnippet     = 100
	refineMinFactor = 0.6
	refineMaxFactor = 1.4
)

// Match is a candidate span of the searched content.
type Match struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
	Snippet    string  `json:"snippet"`
}

// Anchor converts the match into a text anchor remembering the query.
func (m Match) Anchor() analysis.TextAnchor {
	return analysis.TextAnchor{
		Start:        m.Start,
		End:          m.End,
		Text:         m.Text,
		Similarity:   analysis.Float(m.Similarity),
		OriginalText: m.Snippet,
	}
}

func (m Match) overlaps(o Match) bool {
	return m.Start < o.End && o.Start < m.End
}

// FindTextSnippet returns non-overlapping spans of content whose text
// approximates snippet with at least the given similarity, ordered by position.
func FindTextSnippet(content, snippet string, threshold float64) []Match {
	return FindTextSnippets(content, []string{snippet}, threshold)
}

// FindTextSnippets matches several snippets at once. Candidates of all
// snippets compete; higher similarity wins any overlap.
func FindTextSnippets(content string, snippets []string, threshold float64) []Match {
	if threshold <= 0 || content == "" {
		return nil
	}

	doc := []rune(content)
	folded := foldRunes(doc)

	var pool []Match
	for _, snippet := range snippets {
		if strings.TrimSpace(snippet) == "" {
			continue
		}
		pool = append(pool, candidates(doc, folded, snippet, threshold)...)
	}
	return selectNonOverlapping(pool)
}

func candidates(doc, folded []rune, snippet string, threshold float64) []Match {
	query := foldRunes([]rune(strings.TrimSpace(snippet)))

	var found []Match
	for _, start := range indexAll(folded, query) {
		found = append(found, Match{
			Start:      start,
			End:        start + len(query),
			Text:       string(doc[start : start+len(query)]),
			Similarity: 1,
			Snippet:    snippet,
		})
	}

	if len(found) == 0 || len(query) > longSnippet {
		found = append(found, fuzzy(doc, folded, query, snippet, threshold)...)
	}
	return selectNonOverlapping(found)
}

// fuzzy slides a window over the document and refines every promising
// window into its best-scoring exact span.
func fuzzy(doc, folded, query []rune, snippet string, threshold float64) []Match {
	n := len(folded)
	window := len(query)
	if window < minWindow {
		window = minWindow
	}
	step := window / 4
	if step < 1 {
		step = 1
	}

	var out []Match
	for pos := 0; pos < n; pos += step {
		end := pos + window
		if end > n {
			end = n
		}
		if windowPasses(folded[pos:end], query, threshold) {
			if m, ok := refine(doc, folded, query, pos, end, threshold); ok {
				m.Snippet = snippet
				out = append(out, m)
			}
		}
		if end == n {
			break
		}
	}
	return out
}

// windowPasses gates a window before the expensive refinement. Edits that
// are forced by the length difference between window and query do not count
// against the window, so short snippets inside wide windows still qualify.
func windowPasses(window, query []rune, threshold float64) bool {
	dist := levenshtein(window, query)
	diff := len(window) - len(query)
	if diff < 0 {
		diff = -diff
	}
	excess := dist - diff
	if excess < 0 {
		excess = 0
	}
	return 1-float64(excess)/float64(len(query)) >= threshold
}

// refine scans substrings of 0.6x-1.4x the query length starting inside
// [winStart, winEnd) and keeps the best one.
func refine(doc, folded, query []rune, winStart, winEnd int, threshold float64) (Match, bool) {
	n := len(folded)
	minLen := int(float64(len(query)) * refineMinFactor)
	if minLen < 1 {
		minLen = 1
	}
	maxLen := int(float64(len(query))*refineMaxFactor + 0.5)

	best := Match{Similarity: -1}
	for start := winStart; start < winEnd; start++ {
		if unicode.IsSpace(folded[start]) {
			continue
		}
		limit := start + maxLen
		if limit > n {
			limit = n
		}
		if limit-start < minLen {
			break
		}
		dists := prefixDistances(query, folded[start:limit])
		for l := minLen; l <= limit-start; l++ {
			if unicode.IsSpace(folded[start+l-1]) {
				continue
			}
			sim := score(dists[l], len(query), l)
			if sim > best.Similarity || (sim == best.Similarity && l < best.End-best.Start) {
				best = Match{Start: start, End: start + l, Similarity: sim}
			}
		}
	}

	if best.Similarity < threshold {
		return Match{}, false
	}
	best.Text = string(doc[best.Start:best.End])
	return best, true
}

func selectNonOverlapping(pool []Match) []Match {
	if len(pool) == 0 {
		return nil
	}
	sorted := make([]Match, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Similarity != sorted[j].Similarity {
			return sorted[i].Similarity > sorted[j].Similarity
		}
		return sorted[i].Start < sorted[j].Start
	})

	var accepted []Match
	for _, m := range sorted {
		clash := false
		for _, a := range accepted {
			if m.overlaps(a) {
				clash = true
				break
			}
		}
		if !clash {
			accepted = append(accepted, m)
		}
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})
	return accepted
}

// Similarity compares two strings after normalization:
// (max(len) - editDistance) / max(len).
func Similarity(a, b string) float64 {
	ra := []rune(Normalize(a))
	rb := []rune(Normalize(b))
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return score(levenshtein(ra, rb), len(ra), len(rb))
}

// Normalize case-folds, unifies quotes and collapses whitespace runs.
func Normalize(s string) string {
	return strings.Join(strings.Fields(string(foldRunes([]rune(s)))), " ")
}

func score(dist, la, lb int) float64 {
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return float64(longest-dist) / float64(longest)
}

// foldRunes lower-cases and unifies quotes and whitespace rune by rune, so
// offsets into the result are offsets into the input.
func foldRunes(in []rune) []rune {
	out := make([]rune, len(in))
	for i, r := range in {
		switch r {
		case '‘', '’', '‚', '‛', '`', '´':
			r = '\''
		case '“', '”', '„', '‟', '«', '»':
			r = '"'
		default:
			if unicode.IsSpace(r) {
				r = ' '
			} else {
				r = unicode.ToLower(r)
			}
		}
		out[i] = r
	}
	return out
}

func indexAll(haystack, needle []rune) []int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return nil
	}
	var out []int
	for i := 0; i+len(needle) <= len(haystack); {
		if equalRunes(haystack[i:i+len(needle)], needle) {
			out = append(out, i)
			i += len(needle)
			continue
		}
		i++
	}
	return out
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// prefixDistances returns, for every l in [0, len(text)], the edit
// distance between query and text[:l], in one O(len(query)*len(text)) pass.
func prefixDistances(query, text []rune) []int {
	prev := make([]int, len(text)+1)
	curr := make([]int, len(text)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(query); i++ {
		curr[0] = i
		for j := 1; j <= len(text); j++ {
			cost := 1
			if query[i-1] == text[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
