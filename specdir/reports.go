package specdir

import (
	"fmt"
	"strings"

	"github.com/devagent/orchestrator/atomicfile"
)

// WriteQAEscalation generates QA_ESCALATION.md when the QA Loop detects a
// recurring issue (spec.md §4.5). recurring is the issue that tripped the
// threshold; history is every issue recorded across prior iterations, in
// order, for context.
func WriteQAEscalation(d Dir, recurring QAIssue, history []QAIssue) error {
	var b strings.Builder
	b.WriteString("# QA Escalation\n\n")
	b.WriteString("A recurring issue could not be resolved automatically and requires human attention.\n\n")
	b.WriteString("## Recurring Issue\n\n")
	fmt.Fprintf(&b, "- **Title:** %s\n", recurring.Title)
	fmt.Fprintf(&b, "- **Location:** %s\n", recurring.Location)
	if recurring.Description != "" {
		fmt.Fprintf(&b, "- **Description:** %s\n", recurring.Description)
	}
	b.WriteString("\n## Iteration History\n\n")
	for i, issue := range history {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, issue.Title, issue.Location)
	}
	return atomicfile.Write(d.QAEscalationPath(), []byte(b.String()))
}

// WriteManualTestPlan generates MANUAL_TEST_PLAN.md when no automated test
// framework is detected in the project directory (spec.md §6). steps is
// the ordered list of manual verification steps a human reviewer should
// perform.
func WriteManualTestPlan(d Dir, steps []string) error {
	var b strings.Builder
	b.WriteString("# Manual Test Plan\n\n")
	b.WriteString("No automated test framework was detected for this project. Verify the following manually:\n\n")
	for i, step := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return atomicfile.Write(d.ManualTestPlanPath(), []byte(b.String()))
}

// ReadQAFixRequest reads the optional human-authored QA_FIX_REQUEST.md,
// returning the empty string and false when absent — it is optional input
// to qa_fixer, not a required artifact.
func ReadQAFixRequest(d Dir) (string, bool) {
	data, err := atomicfile.Read(d.QAFixRequestPath())
	if err != nil {
		return "", false
	}
	return string(data), true
}
