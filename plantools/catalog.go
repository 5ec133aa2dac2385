// Package plantools registers the plan.read and plan.write tool specs
// against a session's spec directory. It lives outside the tools package
// because it binds tools.Ident to the plan package's ImplementationPlan
// model — a dependency the tools package itself stays free of so it can be
// shared by hosts that never run a planner role.
package plantools

import (
	"context"
	"encoding/json"
	"path/filepath"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/plan"
	"github.com/devagent/orchestrator/specdir"
	"github.com/devagent/orchestrator/tools"
)

// Catalog returns the plan.read/plan.write ToolSpecs. Their Execute is left
// nil, matching the BuiltinCatalog convention; Builders supplies the
// matching tools.Builder map.
func Catalog() []tools.ToolSpec {
	return []tools.ToolSpec{
		{
			Name:        tools.PlanRead,
			Toolset:     "plan",
			Description: "Read the current implementation plan for this spec.",
			Permission:  tools.PermissionReadOnly,
			Payload:     tools.TypeSpec{Name: "PlanReadInput"},
		},
		{
			Name:        tools.PlanWrite,
			Toolset:     "plan",
			Description: "Replace the implementation plan for this spec with a new set of phases and subtasks.",
			Permission:  tools.PermissionRequiresWrite,
			Payload:     tools.TypeSpec{Name: "PlanWriteInput"},
		},
	}
}

// Builders returns the plan.read/plan.write Builder map. The toolregistry
// calls each Builder with the requesting session's spec directory (not its
// working directory) via its plan.read/plan.write special case.
func Builders() map[tools.Ident]tools.Builder {
	return map[tools.Ident]tools.Builder{
		tools.PlanRead:  readExecutor,
		tools.PlanWrite: writeExecutor,
	}
}

func readExecutor(specDir string) tools.Executor {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		path := filepath.Join(specDir, specdir.ImplementationPlanFile)
		p, err := plan.Load(path)
		if err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindTransient, "plan.read: load failed", err)
		}
		return json.Marshal(p)
	}
}

func writeExecutor(specDir string) tools.Executor {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var p plan.ImplementationPlan
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindValidation, "plan.write: invalid payload", err)
		}
		path := filepath.Join(specDir, specdir.ImplementationPlanFile)
		if err := plan.Save(path, p); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"ok": true})
	}
}
