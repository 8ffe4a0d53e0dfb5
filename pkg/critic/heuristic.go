// Package critic holds the workers the analysis engine dispatches to:
// cheap rule based critics for the fast tier and LLM backed critics.
package critic

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"ai-critic-be/pkg/analysis"
)

const (
	LongSentenceID  = "long-sentences"
	RepeatedWordsID = "repeated-words"

	// DefaultMaxSentenceWords is where a sentence starts to read as long.
	DefaultMaxSentenceWords = 35
)

// span is a rune range of the document.
type span struct {
	start, end int
}

// LongSentenceCritic flags sentences with more than MaxWords words.
type LongSentenceCritic struct {
	MaxWords int
}

func NewLongSentenceCritic(maxWords int) *LongSentenceCritic {
	if maxWords <= 0 {
		maxWords = DefaultMaxSentenceWords
	}
	return &LongSentenceCritic{MaxWords: maxWords}
}

func (c *LongSentenceCritic) ID() string          { return LongSentenceID }
func (c *LongSentenceCritic) Tier() analysis.Tier { return analysis.TierFast }

func (c *LongSentenceCritic) Analyze(ctx context.Context, document string, opts analysis.AnalyzeOptions) (*analysis.WorkerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runes := []rune(document)

	insights := []analysis.Insight{}
	for _, s := range sentences(runes) {
		text := string(runes[s.start:s.end])
		words := len(strings.Fields(text))
		if words <= c.MaxWords {
			continue
		}
		priority := analysis.PriorityMedium
		if words > 2*c.MaxWords {
			priority = analysis.PriorityHigh
		}
		insights = append(insights, analysis.Insight{
			Type:       "clarity",
			Priority:   priority,
			Confidence: analysis.Float(0.7),
			Title:      "Long sentence",
			Feedback:   fmt.Sprintf("This sentence has %d words, which makes it hard to follow.", words),
			Suggestion: "Split it into two or more shorter sentences.",
			Anchors:    []analysis.TextAnchor{{Start: s.start, End: s.end, Text: text}},
		})
	}

	opts.Report(map[string]interface{}{"status": "complete", "found": len(insights)})
	return &analysis.WorkerResult{Insights: insights, Confidence: analysis.Float(0.7)}, nil
}

// RepeatedWordCritic flags a word immediately repeated, as in "the the".
type RepeatedWordCritic struct{}

func NewRepeatedWordCritic() *RepeatedWordCritic {
	return &RepeatedWordCritic{}
}

func (c *RepeatedWordCritic) ID() string          { return RepeatedWordsID }
func (c *RepeatedWordCritic) Tier() analysis.Tier { return analysis.TierFast }

func (c *RepeatedWordCritic) Analyze(ctx context.Context, document string, opts analysis.AnalyzeOptions) (*analysis.WorkerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runes := []rune(document)
	ws := words(runes)

	insights := []analysis.Insight{}
	for i := 1; i < len(ws); i++ {
		prev, cur := ws[i-1], ws[i]
		if !onlySpaceBetween(runes, prev.end, cur.start) {
			continue
		}
		if !strings.EqualFold(string(runes[prev.start:prev.end]), string(runes[cur.start:cur.end])) {
			continue
		}
		word := string(runes[cur.start:cur.end])
		insights = append(insights, analysis.Insight{
			Type:       "grammar",
			Priority:   analysis.PriorityHigh,
			Confidence: analysis.Float(0.9),
			Title:      "Repeated word",
			Feedback:   fmt.Sprintf("%q appears twice in a row.", word),
			Suggestion: "Remove the duplicate.",
			Anchors: []analysis.TextAnchor{{
				Start: prev.start,
				End:   cur.end,
				Text:  string(runes[prev.start:cur.end]),
			}},
		})
	}

	opts.Report(map[string]interface{}{"status": "complete", "found": len(insights)})
	return &analysis.WorkerResult{Insights: insights, Confidence: analysis.Float(0.9)}, nil
}

// sentences splits on . ! ? followed by whitespace or the end of text,
// trimming surrounding whitespace from each span.
func sentences(runes []rune) []span {
	var out []span
	start := 0
	emit := func(end int) {
		s, e := start, end
		for s < e && unicode.IsSpace(runes[s]) {
			s++
		}
		for e > s && unicode.IsSpace(runes[e-1]) {
			e--
		}
		if s < e {
			out = append(out, span{s, e})
		}
	}
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		emit(i + 1)
		start = i + 1
	}
	emit(len(runes))
	return out
}

// words returns the spans of letter/digit runs.
func words(runes []rune) []span {
	var out []span
	start := -1
	for i, r := range runes {
		inWord := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
		switch {
		case inWord && start < 0:
			start = i
		case !inWord && start >= 0:
			out = append(out, span{start, i})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, span{start, len(runes)})
	}
	return out
}

func onlySpaceBetween(runes []rune, from, to int) bool {
	if from >= to {
		return false
	}
	for _, r := range runes[from:to] {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
