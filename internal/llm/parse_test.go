package llm

import (
	"errors"
	"math"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`{"score": 0.7}`, `{"score": 0.7}`, false},
		{"Here you go:\n```json\n{\"score\": 0.7}\n```", `{"score": 0.7}`, false},
		{`prefix {"a": {"b": 1}} suffix`, `{"a": {"b": 1}}`, false},
		{"no json here", "", true},
		{"} backwards {", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractJSON(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractJSON(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseAxis(t *testing.T) {
	got, err := ParseAxis("Sure! {\"score\": 0.82, \"reasoning\": \"hedges claims\"}")
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != 0.82 || got.Reasoning != "hedges claims" {
		t.Errorf("unexpected axis: %+v", got)
	}

	for _, in := range []string{
		`{"score": 1.5}`,
		`{"score": -0.1}`,
		`{"score": "high"}`,
		`{"reasoning": "no score"}`,
		"not json",
	} {
		got, err := ParseAxis(in)
		if err == nil {
			t.Errorf("ParseAxis(%q) expected error", in)
		}
		if got.Score != 0.5 {
			t.Errorf("ParseAxis(%q) score = %v, want 0.5", in, got.Score)
		}
	}

	if _, err := ParseAxis("nothing"); !errors.Is(err, ErrNoJSON) {
		t.Errorf("expected ErrNoJSON, got %v", err)
	}
}

func TestParseEmpathy_FieldsDegradeIndependently(t *testing.T) {
	got, err := ParseEmpathy(`{"golden": 0.9, "silver": 2, "platinum": 0.7, "reasoning": "mostly kind"}`)
	if err == nil {
		t.Fatal("expected error naming invalid fields")
	}
	if got.Golden != 0.9 || got.Platinum != 0.7 {
		t.Errorf("expected valid fields kept, got %+v", got)
	}
	if got.Silver != 0.5 || got.Love != 0.5 {
		t.Errorf("expected invalid fields neutral, got %+v", got)
	}
	if got.Reasoning != "mostly kind" {
		t.Errorf("expected reasoning kept, got %q", got.Reasoning)
	}

	all, err := ParseEmpathy(`{"golden": 1, "silver": 0, "platinum": 0.5, "love": 0.25}`)
	if err != nil {
		t.Fatal(err)
	}
	if all.Golden != 1 || all.Silver != 0 || all.Love != 0.25 {
		t.Errorf("unexpected breakdown: %+v", all)
	}

	neutral, err := ParseEmpathy("garbage")
	if err == nil || math.Abs(neutral.Combined()-0.5) > 1e-9 {
		t.Errorf("expected neutral breakdown on garbage, got %+v %v", neutral, err)
	}
}
