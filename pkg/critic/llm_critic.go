package critic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/llm"
	"ai-critic-be/pkg/similarity"
)

// DefaultAnchorThreshold is the similarity a quoted passage needs to be
// anchored to the document.
const DefaultAnchorThreshold = 0.8

var ErrMalformedResponse = errors.New("critic response is not valid JSON")

const responseContract = `Respond with one JSON object and nothing else:
{"confidence": 0.0-1.0, "insights": [{"type": "category", "priority": "high|medium|low",
"confidence": 0.0-1.0, "title": "short title", "feedback": "what is wrong",
"suggestion": "how to fix it", "quotes": ["exact passage from the text"]}]}
Quote passages verbatim so they can be located in the text.`

// Definition describes an LLM critic.
type Definition struct {
	ID           string
	Name         string
	Tier         analysis.Tier
	SystemPrompt string
	Model        string
	Focus        []string
}

// LLMCritic asks a chat model to review the document.
type LLMCritic struct {
	def       Definition
	provider  llm.LLMProvider
	threshold float64
}

func NewLLMCritic(def Definition, provider llm.LLMProvider, threshold float64) *LLMCritic {
	if def.Tier == "" {
		def.Tier = analysis.TierResearch
	}
	if threshold <= 0 {
		threshold = DefaultAnchorThreshold
	}
	return &LLMCritic{def: def, provider: provider, threshold: threshold}
}

func (c *LLMCritic) ID() string          { return c.def.ID }
func (c *LLMCritic) Tier() analysis.Tier { return c.def.Tier }

type ResponseInsight struct {
	Type       string   `json:"type"`
	Priority   string   `json:"priority"`
	Confidence *float64 `json:"confidence"`
	Title      string   `json:"title"`
	Feedback   string   `json:"feedback"`
	Suggestion string   `json:"suggestion"`
	Quotes     []string `json:"quotes"`
}

// Response is the JSON shape critics are asked to reply with.
type Response struct {
	Confidence *float64          `json:"confidence"`
	Insights   []ResponseInsight `json:"insights"`
}

func (c *LLMCritic) Analyze(ctx context.Context, document string, opts analysis.AnalyzeOptions) (*analysis.WorkerResult, error) {
	opts.Report(map[string]interface{}{"status": "requesting", "critic": c.def.Name})

	maxTokens := 800
	if opts.Complexity == analysis.ComplexityHigh {
		maxTokens = 2000
	}

	reply, err := c.provider.Chat(ctx, c.messages(document, opts), llm.WithJSONOutput(), llm.WithModel(c.def.Model), llm.WithMaxTokens(maxTokens), llm.WithTemperature(0.2))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.def.ID, err)
	}

	opts.Report(map[string]interface{}{"status": "parsing", "critic": c.def.Name})

	parsed, err := ParseResponse(reply)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.def.ID, err)
	}

	insights := make([]analysis.Insight, 0, len(parsed.Insights))
	for _, raw := range parsed.Insights {
		insights = append(insights, c.toInsight(document, raw))
	}

	opts.Report(map[string]interface{}{"status": "complete", "found": len(insights)})
	return &analysis.WorkerResult{Insights: insights, Confidence: parsed.Confidence}, nil
}

func (c *LLMCritic) messages(document string, opts analysis.AnalyzeOptions) []llm.Message {
	var system strings.Builder
	system.WriteString(c.def.SystemPrompt)
	if len(c.def.Focus) > 0 {
		system.WriteString("\nFocus on: ")
		system.WriteString(strings.Join(c.def.Focus, ", "))
		system.WriteString(".")
	}
	if opts.Complexity == analysis.ComplexityLow {
		system.WriteString("\nReport only the most important issues.")
	}
	system.WriteString("\n")
	system.WriteString(responseContract)

	return []llm.Message{
		{Role: "system", Content: system.String()},
		{Role: "user", Content: document},
	}
}

func (c *LLMCritic) toInsight(document string, raw ResponseInsight) analysis.Insight {
	in := analysis.Insight{
		Type:       strings.ToLower(strings.TrimSpace(raw.Type)),
		Priority:   analysis.Priority(strings.ToLower(strings.TrimSpace(raw.Priority))),
		Confidence: raw.Confidence,
		Title:      raw.Title,
		Feedback:   raw.Feedback,
		Suggestion: raw.Suggestion,
		Source:     c.def.ID,
	}
	if in.Type == "" {
		in.Type = "general"
	}

	for _, quote := range raw.Quotes {
		if strings.TrimSpace(quote) == "" {
			continue
		}
		matches := similarity.FindTextSnippet(document, quote, c.threshold)
		if len(matches) == 0 {
			continue
		}
		best := matches[0]
		for _, m := range matches[1:] {
			if m.Similarity > best.Similarity {
				best = m
			}
		}
		in.Anchors = append(in.Anchors, best.Anchor())
	}
	return in
}

// ParseResponse extracts the JSON object from a model reply, tolerating
// code fences and chatter around it.
func ParseResponse(reply string) (*Response, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, ErrMalformedResponse
	}
	var out Response
	if err := json.Unmarshal([]byte(reply[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &out, nil
}
