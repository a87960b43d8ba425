package model

import (
	"math"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Climate Science", "Climate Science"},
		{"control chars", "a\x00b\x07c\x7f", "abc"},
		{"c1 controls", "a\u0085b", "ab"},
		{"newlines become spaces", "line one\nline two", "line one line two"},
		{"line separators", "a\u2028b\u2029c", "a b c"},
		{"specials dropped", "a\ufff0b\uffffc", "abc"},
		{"trimmed", "  padded\t", "padded"},
		{"nfc", "e\u0301", "\u00e9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.in); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestComponents_Total(t *testing.T) {
	c := Components{Empathy: 1, Certainty: 1, Boundary: 1, Refinement: 1}
	if got := c.Total(); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected weights to sum to 1, got %f", got)
	}

	c = Components{Empathy: 0.6, Certainty: 0.6, Boundary: 0.5, Refinement: 0.6}
	want := 0.6*0.40 + 0.6*0.25 + 0.5*0.20 + 0.6*0.15
	if got := c.Total(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Total() = %f, want %f", got, want)
	}
}

func TestComponents_ApplyClamps(t *testing.T) {
	c := Components{Empathy: 0.9, Certainty: 0.1, Boundary: 0.5, Refinement: 0.5}
	got := c.Apply(Adjustments{Empathy: 0.4, Certainty: -0.4, Refinement: 0.1})

	if got.Empathy != 1 {
		t.Errorf("expected empathy clamped to 1, got %f", got.Empathy)
	}
	if got.Certainty != 0 {
		t.Errorf("expected certainty clamped to 0, got %f", got.Certainty)
	}
	if math.Abs(got.Refinement-0.6) > 1e-9 {
		t.Errorf("expected refinement 0.6, got %f", got.Refinement)
	}
}

func TestAdjustments_Clamp(t *testing.T) {
	a := Adjustments{Empathy: 0.9, Certainty: -0.9, Boundary: 0.1}.Clamp(MaxEnrichAdjustment)
	if a.Empathy != 0.4 || a.Certainty != -0.4 || a.Boundary != 0.1 {
		t.Errorf("unexpected clamp result: %+v", a)
	}
}

func TestNeutralScore(t *testing.T) {
	s := NeutralScore(MethodError, "boom")
	if s.Total != 0.5 {
		t.Errorf("expected total 0.5, got %f", s.Total)
	}
	if s.Method != MethodError {
		t.Errorf("expected method error, got %s", s.Method)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Fetch.MaxConcurrent != 2 {
		t.Errorf("expected 2 concurrent fetches, got %d", cfg.Fetch.MaxConcurrent)
	}
	if cfg.Fetch.Cache.Capacity != 100 || cfg.Fetch.Cache.Retain != 80 {
		t.Errorf("unexpected fetch cache limits: %+v", cfg.Fetch.Cache)
	}
	if cfg.Scoring.Cache.Capacity != 1000 || cfg.Enhancement.Cache.Capacity != 500 {
		t.Error("unexpected scoring/enhancement cache capacity")
	}
	if cfg.Enhancement.FailureThreshold != 3 {
		t.Errorf("expected failure threshold 3, got %d", cfg.Enhancement.FailureThreshold)
	}
}
