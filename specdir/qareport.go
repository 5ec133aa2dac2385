package specdir

import (
	"bufio"
	"strings"

	"github.com/devagent/orchestrator/atomicfile"
	agenterrors "github.com/devagent/orchestrator/errors"
)

// QAIssue is one reviewer-reported defect. Title and Location are
// required by spec.md §4.5; Description is optional free text used for
// similarity comparison alongside them.
type QAIssue struct {
	Title       string
	Location    string
	Description string
}

// QAReport is the parsed form of qa_report.md: an approval marker plus
// the issues raised when not approved.
type QAReport struct {
	Approved bool
	Issues   []QAIssue
}

// issueTitlePrefix marks the start of a new issue within the report body,
// e.g. "## Issue: race in connection pool". Location and Description
// lines follow until the next issue or end of file.
const issueTitlePrefix = "## Issue:"

// ParseQAReport reads and parses qa_report.md. The machine-relevant
// marker is a line starting with "Status: PASSED" or "Status: FAILED";
// its absence, or any other value, is a parse failure (spec.md §6/§7).
func ParseQAReport(d Dir) (QAReport, error) {
	data, err := atomicfile.Read(d.QAReportPath())
	if err != nil {
		return QAReport{}, err
	}
	return parseQAReportBytes(data)
}

func parseQAReportBytes(data []byte) (QAReport, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))

	var (
		report    QAReport
		sawStatus bool
		cur       *QAIssue
	)

	flush := func() {
		if cur != nil {
			report.Issues = append(report.Issues, *cur)
			cur = nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "Status:"):
			status := strings.TrimSpace(strings.TrimPrefix(trimmed, "Status:"))
			switch {
			case strings.HasPrefix(status, "PASSED"):
				report.Approved = true
				sawStatus = true
			case strings.HasPrefix(status, "FAILED"):
				report.Approved = false
				sawStatus = true
			default:
				return QAReport{}, agenterrors.Errorf(agenterrors.KindParse, "specdir: unrecognized qa_report.md status %q", status)
			}
		case strings.HasPrefix(trimmed, issueTitlePrefix):
			flush()
			title := strings.TrimSpace(strings.TrimPrefix(trimmed, issueTitlePrefix))
			cur = &QAIssue{Title: title}
		case strings.HasPrefix(trimmed, "Location:") && cur != nil:
			cur.Location = strings.TrimSpace(strings.TrimPrefix(trimmed, "Location:"))
		case trimmed != "" && cur != nil:
			if cur.Description != "" {
				cur.Description += " "
			}
			cur.Description += trimmed
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return QAReport{}, agenterrors.Wrap(agenterrors.KindParse, "specdir: scan qa_report.md", err)
	}
	if !sawStatus {
		return QAReport{}, agenterrors.New(agenterrors.KindParse, "specdir: qa_report.md missing Status marker")
	}
	if !report.Approved && len(report.Issues) == 0 {
		return QAReport{}, agenterrors.New(agenterrors.KindParse, "specdir: qa_report.md marked FAILED with no issues")
	}
	return report, nil
}
