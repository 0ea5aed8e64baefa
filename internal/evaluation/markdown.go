package evaluation

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a Result as Markdown string.
func RenderMarkdown(result *Result) string {
	var sb strings.Builder

	sb.WriteString("# Acceptance Report\n\n")
	sb.WriteString(fmt.Sprintf("## Verdict: %s\n\n", result.Verdict))

	sb.WriteString("| # | Criterion | Threshold | Actual | Pass |\n")
	sb.WriteString("|---|-----------|-----------|--------|------|\n")
	for i, c := range result.Criteria {
		passStr := "PASS"
		if !c.Pass {
			passStr = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, passStr))
	}
	sb.WriteString("\n")

	passed := 0
	for _, c := range result.Criteria {
		if c.Pass {
			passed++
		}
	}
	sb.WriteString(fmt.Sprintf("Criteria: %d/%d passed\n", passed, len(result.Criteria)))

	return sb.String()
}
