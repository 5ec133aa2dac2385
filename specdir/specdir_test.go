package specdir_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/specdir"
)

func TestDirResolvesFixedFilenames(t *testing.T) {
	d := specdir.New("/tasks/123")
	assert.Equal(t, "/tasks/123/spec.md", d.SpecPath())
	assert.Equal(t, "/tasks/123/implementation_plan.json", d.ImplementationPlanPath())
	assert.Equal(t, "/tasks/123/complexity_assessment.json", d.ComplexityAssessmentPath())
	assert.Equal(t, "/tasks/123/qa_report.md", d.QAReportPath())
	assert.Equal(t, "/tasks/123/QA_ESCALATION.md", d.QAEscalationPath())
	assert.Equal(t, "/tasks/123/MANUAL_TEST_PLAN.md", d.ManualTestPlanPath())
	assert.Equal(t, "/tasks/123/QA_FIX_REQUEST.md", d.QAFixRequestPath())
	assert.Equal(t, "/tasks/123/task_metadata.json", d.TaskMetadataPath())
	assert.Equal(t, "/tasks/123/task_logs.json", d.TaskLogsPath())
}

func writeReport(t *testing.T, d specdir.Dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(d.QAReportPath(), []byte(body), 0o644))
}

func TestParseQAReportPassed(t *testing.T) {
	d := specdir.New(t.TempDir())
	writeReport(t, d, "Status: PASSED\n\nEverything looks good.\n")

	report, err := specdir.ParseQAReport(d)
	require.NoError(t, err)
	assert.True(t, report.Approved)
	assert.Empty(t, report.Issues)
}

func TestParseQAReportFailedWithIssues(t *testing.T) {
	d := specdir.New(t.TempDir())
	writeReport(t, d, `Status: FAILED

## Issue: race in connection pool
Location: db/pool.go:42
The mutex is acquired after the read, not before.

## Issue: missing nil check
Location: api/handler.go:10
Panics on nil payload.
`)

	report, err := specdir.ParseQAReport(d)
	require.NoError(t, err)
	assert.False(t, report.Approved)
	require.Len(t, report.Issues, 2)
	assert.Equal(t, "race in connection pool", report.Issues[0].Title)
	assert.Equal(t, "db/pool.go:42", report.Issues[0].Location)
	assert.Contains(t, report.Issues[0].Description, "mutex is acquired")
	assert.Equal(t, "missing nil check", report.Issues[1].Title)
}

func TestParseQAReportMissingStatusMarkerIsParseError(t *testing.T) {
	d := specdir.New(t.TempDir())
	writeReport(t, d, "no status line here\n")

	_, err := specdir.ParseQAReport(d)
	assert.Error(t, err)
}

func TestParseQAReportFailedWithNoIssuesIsParseError(t *testing.T) {
	d := specdir.New(t.TempDir())
	writeReport(t, d, "Status: FAILED\n\nno issue sections\n")

	_, err := specdir.ParseQAReport(d)
	assert.Error(t, err)
}

func TestComplexityAssessmentRoundTrip(t *testing.T) {
	d := specdir.New(t.TempDir())
	data := specdir.ComplexityAssessmentData{
		Complexity: specdir.ComplexityComplex,
		Confidence: 0.82,
		Reasoning:  "touches three subsystems",
	}
	require.NoError(t, specdir.WriteComplexityAssessment(d, data))

	got, ok := specdir.ReadComplexityAssessment(d)
	require.True(t, ok)
	assert.Equal(t, data, got)
}

func TestReadComplexityAssessmentMissingOrInvalidReturnsFalse(t *testing.T) {
	d := specdir.New(t.TempDir())
	_, ok := specdir.ReadComplexityAssessment(d)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(d.ComplexityAssessmentPath(), []byte(`{"complexity":"huge"}`), 0o644))
	_, ok = specdir.ReadComplexityAssessment(d)
	assert.False(t, ok)
}

func TestTaskMetadataRoundTrip(t *testing.T) {
	d := specdir.New(t.TempDir())
	require.NoError(t, specdir.WriteTaskMetadata(d, specdir.TaskMetadata{BaseBranch: "main"}))

	got, ok := specdir.ReadTaskMetadata(d)
	require.True(t, ok)
	assert.Equal(t, "main", got.BaseBranch)
}

func TestAppendTaskLogAddsSuccessiveEntries(t *testing.T) {
	d := specdir.New(t.TempDir())
	require.NoError(t, specdir.AppendTaskLog(d, specdir.TaskLogEntry{Phase: "planning", Message: "started"}))
	require.NoError(t, specdir.AppendTaskLog(d, specdir.TaskLogEntry{Phase: "planning", Message: "finished"}))

	data, err := os.ReadFile(d.TaskLogsPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"started"`)
	assert.Contains(t, string(data), `"message":"finished"`)
}

func TestWriteQAEscalationIncludesRecurringIssueAndHistory(t *testing.T) {
	d := specdir.New(t.TempDir())
	recurring := specdir.QAIssue{Title: "flaky test", Location: "pkg/foo_test.go"}
	history := []specdir.QAIssue{recurring, recurring, recurring}

	require.NoError(t, specdir.WriteQAEscalation(d, recurring, history))

	data, err := os.ReadFile(d.QAEscalationPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "flaky test")
	assert.Contains(t, string(data), "3. flaky test")
}

func TestWriteManualTestPlanNumbersSteps(t *testing.T) {
	d := specdir.New(t.TempDir())
	require.NoError(t, specdir.WriteManualTestPlan(d, []string{"run the server", "hit the health endpoint"}))

	data, err := os.ReadFile(d.ManualTestPlanPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "1. run the server")
	assert.Contains(t, string(data), "2. hit the health endpoint")
}

func TestReadQAFixRequestMissingReturnsFalse(t *testing.T) {
	d := specdir.New(t.TempDir())
	_, ok := specdir.ReadQAFixRequest(d)
	assert.False(t, ok)
}

func TestReadQAFixRequestPresent(t *testing.T) {
	d := specdir.New(t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(d.Root(), specdir.QAFixRequestFile), []byte("please also check auth"), 0o644))

	content, ok := specdir.ReadQAFixRequest(d)
	require.True(t, ok)
	assert.Equal(t, "please also check auth", content)
}
