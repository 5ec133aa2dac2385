// Package toolregistry binds the tool catalog to a per-session execution
// context and filters it by agent role. The role capability table is the
// single source of truth for which tools a role may use; no other package
// hard-codes role-to-tool associations.
package toolregistry

import (
	"context"

	"github.com/devagent/orchestrator/security"
	"github.com/devagent/orchestrator/tools"
)

// AgentRole is a closed set of identities, each selecting a capability
// profile and a default thinking budget.
type AgentRole string

const (
	RoleSpecGatherer   AgentRole = "spec_gatherer"
	RoleSpecWriter     AgentRole = "spec_writer"
	RoleSpecCritic     AgentRole = "spec_critic"
	RoleSpecDiscovery  AgentRole = "spec_discovery"
	RoleSpecContext    AgentRole = "spec_context"
	RoleSpecResearcher AgentRole = "spec_researcher"
	RoleSpecValidation AgentRole = "spec_validation"
	RolePlanner        AgentRole = "planner"
	RoleCoder          AgentRole = "coder"
	RoleQAReviewer     AgentRole = "qa_reviewer"
	RoleQAFixer        AgentRole = "qa_fixer"
	RoleInsights       AgentRole = "insights"
	RoleMergeResolver  AgentRole = "merge_resolver"
	RolePRReviewer     AgentRole = "pr_reviewer"
)

// ThinkingLevel is the model reasoning budget a role defaults to.
type ThinkingLevel string

const (
	ThinkingLow    ThinkingLevel = "low"
	ThinkingMedium ThinkingLevel = "medium"
	ThinkingHigh   ThinkingLevel = "high"
)

// ProjectKind identifies the kind of project a session is operating on,
// supplied by the host (project-capability detection heuristics are out of
// scope for this module). It drives capability-dependent rewrites such as
// the "browser" tool.
type ProjectKind string

const (
	ProjectKindElectron ProjectKind = "electron"
	ProjectKindWeb      ProjectKind = "web"
	ProjectKindCLI      ProjectKind = "cli"
	ProjectKindUnknown  ProjectKind = ""
)

// ToolContext is the per-session execution environment a bound tool
// closes over: the working directory, the project and spec directories a
// tool's filesystem access must resolve inside, the security profile
// gating Bash calls, and the cancellation signal propagated to the tool's
// subprocess or network call.
type ToolContext struct {
	Cwd             string
	ProjectDir      string
	SpecDir         string
	SecurityProfile security.Profile
	ProjectKind     ProjectKind
	CancelSignal    context.Context
}

// BoundTool is a ToolSpec whose Execute closes over a ToolContext. Binding
// never mutates the catalog-level spec.
type BoundTool struct {
	tools.ToolSpec
}

// RoleCapability is one row of the role capability table: the built-in
// tools a role may use, a list of external capabilities, and the role's
// default thinking level. RequiredCapabilities is carried with the row but
// ToolsForAgent does not consult it; tools are filtered by each catalog
// spec's own RequiresCapability.
type RoleCapability struct {
	BuiltinTools         []tools.Ident
	RequiredCapabilities []string
	DefaultThinkingLevel ThinkingLevel
}
