package toolregistry

import "github.com/devagent/orchestrator/tools"

// DefaultRoleTable is the static role → capability mapping: the single
// source of truth for which built-in tools each agent role may use. Hosts
// may override individual rows via Options.RoleTable or at runtime via
// Registry.AddOverride/RemoveOverride.
func DefaultRoleTable() map[AgentRole]RoleCapability {
	readOnly := []tools.Ident{tools.ReadFile, tools.Grep, tools.Glob}
	readWrite := append(append([]tools.Ident{}, readOnly...), tools.WriteFile, tools.EditFile)

	return map[AgentRole]RoleCapability{
		RoleCoder: {
			BuiltinTools:         append(append([]tools.Ident{}, readWrite...), tools.Bash, tools.WebFetch, tools.Browser),
			DefaultThinkingLevel: ThinkingHigh,
		},
		RoleQAFixer: {
			BuiltinTools:         append(append([]tools.Ident{}, readWrite...), tools.Bash),
			DefaultThinkingLevel: ThinkingHigh,
		},
		RolePlanner: {
			BuiltinTools:         append(append([]tools.Ident{}, readOnly...), tools.PlanRead, tools.PlanWrite),
			DefaultThinkingLevel: ThinkingMedium,
		},
		RoleQAReviewer: {
			BuiltinTools:         readOnly,
			DefaultThinkingLevel: ThinkingMedium,
		},
		RoleSpecCritic: {
			BuiltinTools:         readOnly,
			DefaultThinkingLevel: ThinkingMedium,
		},
		RoleSpecValidation: {
			BuiltinTools:         readOnly,
			DefaultThinkingLevel: ThinkingMedium,
		},
		RoleSpecGatherer: {
			BuiltinTools:         append(append([]tools.Ident{}, readOnly...), tools.WebFetch, tools.WebSearch),
			DefaultThinkingLevel: ThinkingMedium,
		},
		RoleSpecDiscovery: {
			BuiltinTools:         readOnly,
			DefaultThinkingLevel: ThinkingLow,
		},
		RoleSpecContext: {
			BuiltinTools:         readOnly,
			DefaultThinkingLevel: ThinkingLow,
		},
		RoleSpecResearcher: {
			BuiltinTools:         append(append([]tools.Ident{}, readOnly...), tools.WebFetch, tools.WebSearch),
			DefaultThinkingLevel: ThinkingHigh,
		},
		RoleSpecWriter: {
			BuiltinTools:         append(append([]tools.Ident{}, readOnly...), tools.WriteFile, tools.EditFile),
			DefaultThinkingLevel: ThinkingMedium,
		},
		RoleInsights: {
			BuiltinTools:         readOnly,
			DefaultThinkingLevel: ThinkingMedium,
		},
		RolePRReviewer: {
			BuiltinTools:         readOnly,
			DefaultThinkingLevel: ThinkingMedium,
		},
		RoleMergeResolver: {
			BuiltinTools:         nil,
			DefaultThinkingLevel: ThinkingLow,
		},
	}
}
