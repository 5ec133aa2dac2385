package toolregistry

import (
	"context"
	"encoding/json"
	"sync"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/hooks"
	"github.com/devagent/orchestrator/security"
	"github.com/devagent/orchestrator/telemetry"
	"github.com/devagent/orchestrator/tools"
)

// capabilityBrowser is the RequiresCapability value the "browser" tool
// declares on its catalog spec; the registry rewrites it to whichever
// concrete backend ("electron" or "puppeteer") the running project
// supports.
const capabilityBrowser = "browser"

// Options configures a Registry.
type Options struct {
	// Catalog is the full set of tool specs the host has implemented,
	// keyed internally by ToolSpec.Name.
	Catalog []tools.ToolSpec
	// RoleTable maps each role to its capability row. DefaultRoleTable is
	// used when nil.
	RoleTable map[AgentRole]RoleCapability
	// Capabilities lists the external capabilities available in this
	// deployment (e.g. "electron", "puppeteer", "network"). A tool whose
	// RequiresCapability is not present here is dropped for every role.
	Capabilities []string
	// Builders supplies a tools.Builder per Ident for every catalog entry
	// whose Execute is left nil; the registry calls the builder with the
	// requesting agent's ToolContext.Cwd at bind time instead of reusing a
	// single package-level closure across every session. A tool present in
	// Catalog with no matching Builder falls back to its own (non-nil)
	// Execute, for specs that truly need no per-session state.
	Builders map[tools.Ident]tools.Builder
	Logger   telemetry.Logger
	Bus      hooks.Bus
}

// Registry holds the tool catalog and the role capability table, and binds
// a filtered, context-scoped subset of the catalog to a requesting agent.
type Registry struct {
	mu           sync.RWMutex
	catalog      map[tools.Ident]tools.ToolSpec
	builders     map[tools.Ident]tools.Builder
	roleTable    map[AgentRole]RoleCapability
	capabilities map[string]struct{}
	logger       telemetry.Logger
	bus          hooks.Bus
}

// New builds a Registry from opts. An empty RoleTable defaults to
// DefaultRoleTable().
func New(opts Options) *Registry {
	catalog := make(map[tools.Ident]tools.ToolSpec, len(opts.Catalog))
	for _, spec := range opts.Catalog {
		catalog[spec.Name] = spec
	}
	roleTable := opts.RoleTable
	if roleTable == nil {
		roleTable = DefaultRoleTable()
	}
	caps := make(map[string]struct{}, len(opts.Capabilities))
	for _, c := range opts.Capabilities {
		caps[c] = struct{}{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	builders := make(map[tools.Ident]tools.Builder, len(opts.Builders))
	for name, b := range opts.Builders {
		builders[name] = b
	}
	return &Registry{
		catalog:      catalog,
		builders:     builders,
		roleTable:    cloneRoleTable(roleTable),
		capabilities: caps,
		logger:       logger,
		bus:          opts.Bus,
	}
}

// AddOverride adds name to role's built-in tool list at runtime.
func (r *Registry) AddOverride(role AgentRole, name tools.Ident) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.roleTable[role]
	for _, existing := range row.BuiltinTools {
		if existing == name {
			return
		}
	}
	row.BuiltinTools = append(append([]tools.Ident{}, row.BuiltinTools...), name)
	r.roleTable[role] = row
}

// RemoveOverride removes name from role's built-in tool list at runtime.
func (r *Registry) RemoveOverride(role AgentRole, name tools.Ident) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.roleTable[role]
	filtered := make([]tools.Ident, 0, len(row.BuiltinTools))
	for _, existing := range row.BuiltinTools {
		if existing != name {
			filtered = append(filtered, existing)
		}
	}
	row.BuiltinTools = filtered
	r.roleTable[role] = row
}

// Request identifies the agent asking for its bound tools.
type Request struct {
	RunID   string
	AgentID string
	Role    AgentRole
	Context ToolContext
}

// ToolsForAgent returns the bound tools available to role in the given
// ToolContext. Tools requiring an unavailable external capability are
// dropped with a warning logged and a CapabilityDropped event published on
// the bus (when one is configured), rather than silently omitted.
func (r *Registry) ToolsForAgent(ctx context.Context, req Request) []BoundTool {
	r.mu.RLock()
	row, ok := r.roleTable[req.Role]
	catalog := r.catalog
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	bound := make([]BoundTool, 0, len(row.BuiltinTools))
	for _, name := range row.BuiltinTools {
		spec, ok := catalog[name]
		if !ok {
			continue
		}
		resolved, ok := r.resolveCapability(ctx, req, spec)
		if !ok {
			continue
		}
		bound = append(bound, BoundTool{ToolSpec: resolved.WithExecutor(r.bindExecutor(resolved, req.Context))})
	}
	return bound
}

// resolveCapability rewrites the "browser" capability to a concrete
// backend tool when available, and drops any tool whose required
// capability is unavailable, publishing CapabilityDropped.
func (r *Registry) resolveCapability(ctx context.Context, req Request, spec tools.ToolSpec) (tools.ToolSpec, bool) {
	if spec.RequiresCapability == "" {
		return spec, true
	}
	if spec.RequiresCapability == capabilityBrowser {
		backend, ok := r.browserBackend(req.Context.ProjectKind)
		if !ok {
			r.dropCapability(ctx, req, spec, "no browser backend available for project kind")
			return spec, false
		}
		rewritten := spec
		rewritten.RequiresCapability = backend
		return rewritten, true
	}
	r.mu.RLock()
	_, available := r.capabilities[spec.RequiresCapability]
	r.mu.RUnlock()
	if !available {
		r.dropCapability(ctx, req, spec, "capability is not available in this deployment")
		return spec, false
	}
	return spec, true
}

// browserBackend picks the concrete browser automation backend available
// in this deployment, preferring electron when the project itself is an
// Electron app and falling back to puppeteer otherwise.
func (r *Registry) browserBackend(kind ProjectKind) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	preferred := []string{"puppeteer", "electron"}
	if kind == ProjectKindElectron {
		preferred = []string{"electron", "puppeteer"}
	}
	for _, backend := range preferred {
		if _, ok := r.capabilities[backend]; ok {
			return backend, true
		}
	}
	return "", false
}

func (r *Registry) dropCapability(ctx context.Context, req Request, spec tools.ToolSpec, reason string) {
	r.logger.Warn(ctx, "toolregistry: dropping tool, required capability unavailable",
		"tool", string(spec.Name), "capability", spec.RequiresCapability, "role", string(req.Role), "reason", reason)
	if r.bus == nil {
		return
	}
	_ = r.bus.Publish(ctx, hooks.NewCapabilityDroppedEvent(req.RunID, req.AgentID, spec.RequiresCapability, string(spec.Name), reason))
}

// bindExecutor resolves spec's executor for one session, preferring a
// registered Builder over the catalog spec's own Execute so that
// filesystem- and shell-backed tools see the requesting agent's working
// directory rather than a closure fixed at catalog-build time. Every
// builder is called with tc.Cwd except plan.read/plan.write, which are
// rooted at tc.SpecDir since the implementation plan lives in the spec
// directory, not the project working directory a coder session edits.
// Bash additionally runs through the security hook regardless of which
// source supplied its inner executor.
func (r *Registry) bindExecutor(spec tools.ToolSpec, tc ToolContext) tools.Executor {
	r.mu.RLock()
	builder, hasBuilder := r.builders[spec.Name]
	r.mu.RUnlock()

	root := tc.Cwd
	if spec.Name == tools.PlanRead || spec.Name == tools.PlanWrite {
		root = tc.SpecDir
	}

	inner := spec.Execute
	if hasBuilder {
		inner = builder(root)
	}
	if inner == nil {
		return nil
	}
	if spec.Name != tools.Bash {
		return inner
	}
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var input map[string]any
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				return nil, agenterrors.Wrap(agenterrors.KindValidation, "bash tool payload is not a JSON object", err)
			}
		}
		decision := security.Validate(security.ToolCall{ToolName: "Bash", ToolInput: input, Cwd: tc.Cwd}, tc.SecurityProfile)
		if !decision.Allow {
			return nil, agenterrors.New(agenterrors.KindValidation, decision.Reason)
		}
		return inner(ctx, payload)
	}
}

func cloneRoleTable(src map[AgentRole]RoleCapability) map[AgentRole]RoleCapability {
	dst := make(map[AgentRole]RoleCapability, len(src))
	for role, row := range src {
		dst[role] = RoleCapability{
			BuiltinTools:         append([]tools.Ident{}, row.BuiltinTools...),
			RequiredCapabilities: append([]string{}, row.RequiredCapabilities...),
			DefaultThinkingLevel: row.DefaultThinkingLevel,
		}
	}
	return dst
}
