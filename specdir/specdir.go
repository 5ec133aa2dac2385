// Package specdir centralizes the spec-directory file contract
// (spec.md §6): the fixed set of filenames the orchestration core reads
// and writes inside a task's spec directory, and the parsers/writers for
// the ones with a structured (not plain-JSON) shape.
package specdir

import "path/filepath"

// Filenames used inside a spec directory. These are fixed by the file
// contract; callers should reference the constants rather than the
// literal strings.
const (
	SpecFile               = "spec.md"
	ImplementationPlanFile = "implementation_plan.json"
	ComplexityAssessment   = "complexity_assessment.json"
	QAReportFile           = "qa_report.md"
	QAEscalationFile       = "QA_ESCALATION.md"
	ManualTestPlanFile     = "MANUAL_TEST_PLAN.md"
	QAFixRequestFile       = "QA_FIX_REQUEST.md"
	TaskMetadataFile       = "task_metadata.json"
	TaskLogsFile           = "task_logs.json"
)

// Dir wraps a spec directory root and resolves the fixed filenames
// against it.
type Dir struct {
	root string
}

// New returns a Dir rooted at root.
func New(root string) Dir { return Dir{root: root} }

// Root returns the spec directory path this Dir was constructed with.
func (d Dir) Root() string { return d.root }

func (d Dir) path(name string) string { return filepath.Join(d.root, name) }

// SpecPath, ImplementationPlanPath, ... resolve each fixed filename
// against the spec directory root.
func (d Dir) SpecPath() string                 { return d.path(SpecFile) }
func (d Dir) ImplementationPlanPath() string   { return d.path(ImplementationPlanFile) }
func (d Dir) ComplexityAssessmentPath() string { return d.path(ComplexityAssessment) }
func (d Dir) QAReportPath() string             { return d.path(QAReportFile) }
func (d Dir) QAEscalationPath() string         { return d.path(QAEscalationFile) }
func (d Dir) ManualTestPlanPath() string       { return d.path(ManualTestPlanFile) }
func (d Dir) QAFixRequestPath() string         { return d.path(QAFixRequestFile) }
func (d Dir) TaskMetadataPath() string         { return d.path(TaskMetadataFile) }
func (d Dir) TaskLogsPath() string             { return d.path(TaskLogsFile) }
