package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

// ErrNoJSON is returned when a completion contains no JSON object
var ErrNoJSON = errors.New("no JSON object in response")

// ExtractJSON returns the substring from the first '{' to the last '}'
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

type axisReply struct {
	Score     *float64 `json:"score"`
	Reasoning string   `json:"reasoning"`
}

type empathyReply struct {
	Golden    *float64 `json:"golden"`
	Silver    *float64 `json:"silver"`
	Platinum  *float64 `json:"platinum"`
	Love      *float64 `json:"love"`
	Reasoning string   `json:"reasoning"`
}

// ParseAxis decodes a {"score", "reasoning"} reply. A missing or invalid
// score becomes 0.5. On error the returned value is the neutral axis.
func ParseAxis(text string) (model.AxisReasoning, error) {
	neutral := model.AxisReasoning{Score: 0.5, Reasoning: "API parsing failed"}

	var reply axisReply
	if err := decodeReply(text, &reply); err != nil {
		return neutral, err
	}

	score, ok := unitValue(reply.Score)
	out := model.AxisReasoning{Score: score, Reasoning: reply.Reasoning}
	if !ok {
		return out, fmt.Errorf("invalid score in reply")
	}
	return out, nil
}

// ParseEmpathy decodes the four empathy sub-rules. Each invalid field
// becomes 0.5 on its own and is reported in the returned error.
func ParseEmpathy(text string) (model.EmpathyBreakdown, error) {
	neutral := model.EmpathyBreakdown{Golden: 0.5, Silver: 0.5, Platinum: 0.5, Love: 0.5, Reasoning: "API parsing failed"}

	var reply empathyReply
	if err := decodeReply(text, &reply); err != nil {
		return neutral, err
	}

	out := model.EmpathyBreakdown{Reasoning: reply.Reasoning}
	var invalid []string
	for _, f := range []struct {
		name string
		in   *float64
		out  *float64
	}{
		{"golden", reply.Golden, &out.Golden},
		{"silver", reply.Silver, &out.Silver},
		{"platinum", reply.Platinum, &out.Platinum},
		{"love", reply.Love, &out.Love},
	} {
		v, ok := unitValue(f.in)
		*f.out = v
		if !ok {
			invalid = append(invalid, f.name)
		}
	}

	if len(invalid) > 0 {
		return out, fmt.Errorf("invalid empathy fields: %s", strings.Join(invalid, ", "))
	}
	return out, nil
}

func decodeReply(text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("parse reply: %w", err)
	}
	return nil
}

// unitValue accepts finite values in [0,1]; anything else is 0.5
func unitValue(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 || *v > 1 {
		return 0.5, false
	}
	return *v, true
}
