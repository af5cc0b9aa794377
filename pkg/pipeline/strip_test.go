package pipeline

import (
	"strings"
	"testing"
)

func TestStripCoordinationTextCleanReportUntouched(t *testing.T) {
	report := "## Executive Summary\n\nStrong Buy.\n\n## Valuation\n\nCheap."
	if got := StripCoordinationText(report); got != report {
		t.Errorf("clean report was modified:\n%s", got)
	}
}

func TestStripCoordinationTextCutsToHeading(t *testing.T) {
	report := "I will delegate this task to the research agent.\n" +
		"The research agent has completed its work.\n" +
		"## Executive Summary\n\nStrong Buy."
	got := StripCoordinationText(report)
	if !strings.HasPrefix(got, "## Executive Summary") {
		t.Errorf("expected output to start at the heading, got:\n%s", got)
	}
	if strings.Contains(got, "delegate") {
		t.Errorf("coordination chatter survived:\n%s", got)
	}
}

func TestStripCoordinationTextFirstHeadingWins(t *testing.T) {
	report := "Handover to report agent.\n" +
		"## Overview\n\nBackground.\n\n## Executive Summary\n\nBuy."
	got := StripCoordinationText(report)
	if !strings.HasPrefix(got, "## Overview") {
		t.Errorf("expected cut at the first recognized heading, got:\n%s", got)
	}
}

func TestStripCoordinationTextIndentedHeading(t *testing.T) {
	report := "As requested, here is the report.\n  ## Investment Thesis\n\nBuy."
	got := StripCoordinationText(report)
	if !strings.HasPrefix(strings.TrimLeft(got, " \t"), "## Investment Thesis") {
		t.Errorf("indented heading not recognized:\n%s", got)
	}
}

func TestStripCoordinationTextNoHeadingKeepsOriginal(t *testing.T) {
	report := "The workflow has completed. Everything looks fine.\nNo headings here."
	if got := StripCoordinationText(report); got != report {
		t.Errorf("report without headings must be returned unchanged, got:\n%s", got)
	}
}

func TestStripCoordinationTextHeadingOnFirstLineKeepsOriginal(t *testing.T) {
	// Marker present but the document already starts at a heading: nothing to cut.
	report := "## Executive Summary\n\nThe workflow produced a Buy rating."
	if got := StripCoordinationText(report); got != report {
		t.Errorf("report starting at a heading must be returned unchanged, got:\n%s", got)
	}
}

func TestStripCoordinationTextIdempotent(t *testing.T) {
	report := "I have reviewed the draft.\n# Investment Report: AAPL\n\nBuy."
	once := StripCoordinationText(report)
	twice := StripCoordinationText(once)
	if once != twice {
		t.Errorf("stripping is not idempotent:\n%q\nvs\n%q", once, twice)
	}
}

func TestStripCoordinationTextNeverEmpty(t *testing.T) {
	inputs := []string{
		"",
		"workflow",
		"handover\nhandover\nhandover",
		"I will delegate.\n# Report",
	}
	for _, input := range inputs {
		got := StripCoordinationText(input)
		if input != "" && strings.TrimSpace(got) == "" {
			t.Errorf("stripping emptied non-empty input %q", input)
		}
	}
}
