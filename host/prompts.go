package host

import (
	"fmt"
	"strings"

	"github.com/devagent/orchestrator/specdir"
	"github.com/devagent/orchestrator/specpipeline"
)

const plannerSystemPrompt = "You are the planning agent. Read spec.md in the spec directory and write " +
	"implementation_plan.json as an ordered list of phases, each with subtasks carrying a stable id, " +
	"description, and status \"pending\". Use the plan.read and plan.write tools; do not hand-edit the file."

func plannerUserPrompt(dir specdir.Dir) string {
	return fmt.Sprintf("Spec directory: %s\nRead %s and produce %s.", dir.Root(), specdir.SpecFile, specdir.ImplementationPlanFile)
}

const coderSystemPrompt = "You are the coding agent. Implement exactly one subtask from implementation_plan.json " +
	"against the project in your working directory, then mark that subtask completed in the plan file before finishing."

func coderUserPrompt(dir specdir.Dir, subtaskID string) string {
	return fmt.Sprintf("Spec directory: %s\nImplement subtask %q from %s. Mark it completed when done.",
		dir.Root(), subtaskID, specdir.ImplementationPlanFile)
}

const qaReviewerSystemPrompt = "You are the QA reviewer. Inspect the project against spec.md and write " +
	"qa_report.md with a \"Status: PASSED\" or \"Status: FAILED\" line, and one \"## Issue: <title>\" block per " +
	"defect (each with a Location: line) when failed."

func qaReviewerUserPrompt(dir specdir.Dir) string {
	return fmt.Sprintf("Spec directory: %s\nReview the implementation against %s and write %s.",
		dir.Root(), specdir.SpecFile, specdir.QAReportFile)
}

const qaFixerSystemPrompt = "You are the QA fixer. Address every issue in the most recent qa_report.md, then stop."

func qaFixerUserPrompt(dir specdir.Dir, report specdir.QAReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Spec directory: %s\nFix the following reported issues:\n", dir.Root())
	for _, issue := range report.Issues {
		fmt.Fprintf(&b, "- %s (%s): %s\n", issue.Title, issue.Location, issue.Description)
	}
	return b.String()
}

// specPhaseSystemPrompt and specPhaseUserPrompt give each Spec Orchestrator
// phase a short, phase-specific instruction. They are intentionally terse:
// the artifact contract (which file a phase must produce) is the load-
// bearing part, not prose.
func specPhaseSystemPrompt(phase specpipeline.Phase) string {
	switch phase {
	case specpipeline.PhaseDiscovery:
		return "You are the discovery agent. Explore the target project and summarize its structure and stack."
	case specpipeline.PhaseRequirements:
		return "You are the requirements-gathering agent. Turn the user's request into a clear requirements summary."
	case specpipeline.PhaseComplexityAssessment:
		return "You are the complexity-assessment agent. Decide whether this task is simple, standard, or complex " +
			"and whether it needs a research or self-critique phase, writing complexity_assessment.json."
	case specpipeline.PhaseQuickSpec:
		return "You are the spec writer for a simple task. Write a short, complete spec.md directly."
	case specpipeline.PhaseResearch:
		return "You are the research agent. Investigate unfamiliar libraries, APIs, or patterns this task needs."
	case specpipeline.PhaseContext:
		return "You are the context-gathering agent. Collect the existing code and conventions this spec must respect."
	case specpipeline.PhaseSpecWriting:
		return "You are the spec writer. Produce a complete spec.md from the gathered requirements and context."
	case specpipeline.PhaseSelfCritique:
		return "You are the self-critique agent. Find gaps or contradictions in spec.md and revise it."
	case specpipeline.PhasePlanning:
		return plannerSystemPrompt
	case specpipeline.PhaseValidation:
		return "You are the validation agent. Confirm spec.md and implementation_plan.json are internally consistent."
	default:
		return "You are an agent in the spec-authoring pipeline."
	}
}

func specPhaseUserPrompt(dir specdir.Dir, phase specpipeline.Phase) string {
	return fmt.Sprintf("Spec directory: %s\nPhase: %s", dir.Root(), phase)
}
