package pipeline

import (
	"strings"
	"testing"
)

func TestBuildPromptTeam(t *testing.T) {
	system, prompt := buildPrompt("team", "AAPL", "Apple Inc.")
	if !strings.Contains(system, "coordinated investment analysis team") {
		t.Errorf("team system instruction wrong:\n%s", system)
	}
	for _, want := range []string{"AAPL", "Apple Inc.", "RESEARCH AGENT", "SENTIMENT AGENT", "REPORT AGENT", "Only the final Markdown report"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("team prompt missing %q", want)
		}
	}
}

func TestBuildPromptSimple(t *testing.T) {
	system, prompt := buildPrompt("simple", "MSFT", "Microsoft")
	if !strings.Contains(system, "expert investment analyst") {
		t.Errorf("simple system instruction wrong:\n%s", system)
	}
	for _, want := range []string{"MSFT", "Microsoft", "EXECUTIVE SUMMARY", "RISK ASSESSMENT", "DISCLAIMERS"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("simple prompt missing %q", want)
		}
	}
}

func TestBuildPromptDefaultsCompanyName(t *testing.T) {
	_, prompt := buildPrompt("team", "XYZ", "")
	if !strings.Contains(prompt, "company name to be determined") {
		t.Error("empty company name should get a placeholder")
	}
}

func TestNormalizeTicker(t *testing.T) {
	tests := map[string]string{
		" aapl ": "AAPL",
		"MSFT":   "MSFT",
		"":       "",
		"  ":     "",
	}
	for in, want := range tests {
		if got := normalizeTicker(in); got != want {
			t.Errorf("normalizeTicker(%q) = %q, want %q", in, got, want)
		}
	}
}
