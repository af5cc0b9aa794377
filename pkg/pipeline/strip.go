// Package pipeline drives the multi-stage report generation workflow against
// the model provider, including failure classification, backoff retries, and
// cleanup of leaked agent coordination chatter.
package pipeline

import "strings"

// coordinationKeyphrases mark internal deliberation or hand-off text that the
// provider occasionally leaks into the final artifact instead of returning
// only the report.
var coordinationKeyphrases = []string{
	"i will delegate",
	"delegate this task",
	"has completed",
	"handover",
	"i have reviewed",
	"as requested",
	"workflow",
}

// StripCoordinationText removes leaked coordination chatter from generated
// output. If no marker phrase is present the text is returned unchanged.
// Otherwise the text is cut down to start at the first recognizable document
// heading, with priority given to an "Executive Summary" heading, then
// "Investment"- or "Overview"-prefixed headings, then any markdown heading
// line. If no heading exists the original text is returned unchanged: this
// is a best-effort filter and must never strip all content.
func StripCoordinationText(report string) string {
	lowered := strings.ToLower(report)
	found := false
	for _, marker := range coordinationKeyphrases {
		if strings.Contains(lowered, marker) {
			found = true
			break
		}
	}
	if !found {
		return report
	}

	lines := strings.Split(report, "\n")
	startIndex := 0
	for idx, line := range lines {
		stripped := strings.TrimLeft(line, " \t")
		header := strings.ToLower(stripped)
		if strings.HasPrefix(header, "## executive summary") || strings.HasPrefix(header, "# executive summary") {
			startIndex = idx
			break
		}
		if strings.HasPrefix(header, "## investment") || strings.HasPrefix(header, "# investment") {
			startIndex = idx
			break
		}
		if strings.HasPrefix(header, "## overview") || strings.HasPrefix(header, "# overview") {
			startIndex = idx
			break
		}
		if strings.HasPrefix(stripped, "# ") || strings.HasPrefix(stripped, "## ") {
			startIndex = idx
			break
		}
	}

	if startIndex == 0 {
		return report
	}
	return strings.Join(lines[startIndex:], "\n")
}
