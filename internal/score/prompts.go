package score

import (
	"fmt"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

const systemPrompt = "You are an expert at evaluating content for human flourishing and collective benefit. Provide precise, objective analysis in JSON format."

const empathyTemplate = `Analyze this search result for empathetic qualities. Score each dimension from 0-1:

1. Golden Rule (reciprocity): Does it treat others as the author would want to be treated?
2. Silver Rule (non-harm): Does it avoid causing harm?
3. Platinum Rule (other-centeredness): Does it consider others' actual needs and preferences?
4. Universal Love: Does it promote collective flourishing and wellbeing?

Content Title: %s
Content Snippet: %s

IMPORTANT: You must respond with valid JSON only. If you cannot assess the content, use score 0.5 for all dimensions.

Required JSON format:
{
  "golden": 0.5,
  "silver": 0.5,
  "platinum": 0.5,
  "love": 0.5,
  "reasoning": "Brief explanation"
}`

const axisTemplate = `%s

Score from 0-1 where:
%s

Content Title: %%s
Content Snippet: %%s

IMPORTANT: You must respond with valid JSON only. If you cannot assess the content, use score 0.5.

Required JSON format:
{
  "score": 0.5,
  "reasoning": "Brief explanation"
}`

var (
	certaintyTemplate = fmt.Sprintf(axisTemplate,
		"Assess how well this content handles uncertainty and acknowledges what it doesn't know.",
		"- 0 = Makes unfounded claims, false certainty\n- 0.5 = Normal certainty levels\n- 1 = Excellently acknowledges limitations and uncertainty")

	boundaryTemplate = fmt.Sprintf(axisTemplate,
		"Assess whether this content builds bridges or creates divisions.",
		"- 0 = Creates us-vs-them divisions, polarizing\n- 0.5 = Neutral\n- 1 = Actively builds bridges and understanding")

	refinementTemplate = fmt.Sprintf(axisTemplate,
		"Assess whether this content promotes growth, learning, and positive change.",
		"- 0 = Promotes stagnation, quick fixes, or harmful shortcuts\n- 0.5 = Neutral\n- 1 = Strongly encourages growth and learning")
)

// axisPrompt is one of the three single-score prompts
type axisPrompt struct {
	name     string
	template string
}

var axisPrompts = []axisPrompt{
	{"certainty", certaintyTemplate},
	{"boundary", boundaryTemplate},
	{"refinement", refinementTemplate},
}

func render(template string, r model.SearchResult) string {
	return fmt.Sprintf(template, r.Title, r.Snippet)
}
