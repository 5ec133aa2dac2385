package cli

import (
	"context"

	"github.com/devagent/orchestrator/config"
	"github.com/devagent/orchestrator/hooks"
	"github.com/devagent/orchestrator/host"
	"github.com/devagent/orchestrator/plantools"
	"github.com/devagent/orchestrator/specdir"
	"github.com/devagent/orchestrator/telemetry"
	"github.com/devagent/orchestrator/tools"
	"github.com/devagent/orchestrator/toolregistry"
	"github.com/devagent/orchestrator/worker"
)

// newHost assembles a host.Host from resolved settings and run options. It
// is the single place cmd/devagentd's subcommands go to get a fully wired
// Host, keeping the registry/bridge/resolver/store construction shared
// across the build, spec, and qa subcommands. The returned cleanup func
// closes whichever run.Store/memory.Store backend was dialed and must run
// after the orchestrator using the Host finishes.
func newHost(ctx context.Context, settings config.Settings, projectDir, specRoot string, opts runOptions) (*host.Host, func(), error) {
	registry := toolregistry.New(toolregistry.Options{
		Catalog:      append(tools.BuiltinCatalog(), plantools.Catalog()...),
		Builders:     mergeBuilders(tools.BuiltinBuilders(opts.bashTimeout), plantools.Builders()),
		Capabilities: opts.capabilities,
	})

	runStore, closeRunStore, err := newRunStore(ctx, opts.redisURL)
	if err != nil {
		return nil, nil, err
	}
	memStore, closeMemStore, err := newMemoryStore(ctx, opts.mongoURI, opts.mongoDatabase)
	if err != nil {
		closeRunStore()
		return nil, nil, err
	}

	bus := hooks.NewBus()
	if err := registerMemorySubscriber(bus, memStore); err != nil {
		closeRunStore()
		closeMemStore()
		return nil, nil, err
	}

	bridge := worker.NewBridge(worker.Options{
		Bus:    bus,
		Logger: telemetry.NewClueLogger(),
	})

	h := &host.Host{
		Bridge:                 bridge,
		Registry:               registry,
		Models:                 newProviderModels(settings),
		Dir:                    specdir.New(specRoot),
		ProjectDir:             projectDir,
		Security:               defaultSecurityProfile(),
		Store:                  runStore,
		Logger:                 telemetry.NewClueLogger(),
		MaxSteps:               opts.maxSteps,
		MaxToolCalls:           opts.maxToolCalls,
		MaxConsecutiveFailures: opts.maxConsecutiveFailures,
	}
	cleanup := func() {
		closeRunStore()
		closeMemStore()
	}
	return h, cleanup, nil
}

func mergeBuilders(maps ...map[tools.Ident]tools.Builder) map[tools.Ident]tools.Builder {
	out := make(map[tools.Ident]tools.Builder)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
