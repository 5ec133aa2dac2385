package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/hooks"
	"github.com/devagent/orchestrator/model"
	"github.com/devagent/orchestrator/run"
	"github.com/devagent/orchestrator/security"
	"github.com/devagent/orchestrator/session"
	"github.com/devagent/orchestrator/telemetry"
)

const defaultGraceTimeout = 1500 * time.Millisecond
const defaultEventBuffer = 256

// Options configures a Bridge.
type Options struct {
	Bus    hooks.Bus
	Logger telemetry.Logger
}

// Bridge spawns isolated session.Runner invocations.
type Bridge struct {
	bus    hooks.Bus
	logger telemetry.Logger
}

// NewBridge constructs a Bridge from opts.
func NewBridge(opts Options) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Bridge{bus: opts.Bus, logger: logger}
}

// Handle is the controller-side reference to a spawned worker.
type Handle struct {
	id           string
	events       chan Message
	cancel       context.CancelFunc
	done         chan struct{}
	graceTimeout time.Duration

	mu         sync.Mutex
	terminated bool
	forced     bool
	result     *session.Result
}

// ID returns the worker's generated identifier.
func (h *Handle) ID() string { return h.id }

// Events returns the channel of outbound Messages. It is closed once the
// worker has emitted its terminal exit message.
func (h *Handle) Events() <-chan Message { return h.events }

// Done is closed once the worker goroutine returns, whether it completed
// normally or was force-terminated.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result returns the session result once the worker has completed, and
// whether a result is available yet.
func (h *Handle) Result() (session.Result, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.result == nil {
		return session.Result{}, false
	}
	return *h.result, true
}

// Spawn starts cfg's session in a dedicated goroutine and returns a Handle
// for observing its events and controlling its lifecycle. Spawn itself
// never blocks on the session completing.
func (b *Bridge) Spawn(ctx context.Context, cfg ExecutorConfig) (*Handle, error) {
	if cfg.NewClient == nil {
		return nil, agenterrors.New(agenterrors.KindValidation, "worker: ExecutorConfig.NewClient is required")
	}
	workerID := uuid.NewString()

	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	runCtx, cancel := context.WithCancel(ctx)
	sessionCfg := cloneSessionConfig(cfg.SessionConfig)
	sessionCfg.ToolContext.CancelSignal = runCtx

	grace := cfg.GraceTimeout
	if grace <= 0 {
		grace = defaultGraceTimeout
	}

	h := &Handle{
		id:           workerID,
		events:       make(chan Message, buffer),
		cancel:       cancel,
		done:         make(chan struct{}),
		graceTimeout: grace,
	}

	go b.run(runCtx, h, cfg, sessionCfg)

	return h, nil
}

// Terminate signals graceful cancellation, then waits up to the Handle's
// grace period (ExecutorConfig.GraceTimeout, default 1500ms) before
// giving up and returning. A second call is a no-op. The underlying
// goroutine is never forcibly killed — Go has no preemptive cancellation
// — so a non-cooperative tool execution may continue running in the
// background after Terminate returns; the Handle is considered
// forced-terminated regardless and the caller should not rely on further
// events arriving.
func (h *Handle) Terminate() {
	h.mu.Lock()
	if h.terminated {
		h.mu.Unlock()
		return
	}
	h.terminated = true
	h.mu.Unlock()

	h.cancel()

	timer := time.NewTimer(h.graceTimeout)
	defer timer.Stop()
	select {
	case <-h.done:
	case <-timer.C:
		h.mu.Lock()
		h.forced = true
		h.mu.Unlock()
	}
}

// Forced reports whether Terminate's grace period elapsed before the
// worker goroutine observed cancellation and exited on its own.
func (h *Handle) Forced() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.forced
}

func (b *Bridge) run(ctx context.Context, h *Handle, cfg ExecutorConfig, sessionCfg session.Config) {
	defer close(h.done)
	defer close(h.events)

	// emit always blocks on the send rather than racing ctx.Done(): the
	// controller's contract is to keep draining Events() until it closes,
	// so the terminal result and exit messages must never be dropped just
	// because the run's context was cancelled.
	emit := func(msg Message) {
		msg.WorkerID = h.id
		h.events <- msg
	}

	if cfg.Store != nil {
		_ = cfg.Store.Upsert(ctx, run.Record{AgentID: cfg.AgentID, RunID: cfg.RunID, Status: run.StatusRunning})
	}

	result, runErr := b.invoke(ctx, cfg, sessionCfg, emit)
	if runErr != nil {
		crash := agenterrors.Wrap(agenterrors.KindWorkerCrash, "worker crashed before producing a result", runErr)
		emit(Message{Type: MessageError, Err: crash})
		synthesized := session.Result{Outcome: session.OutcomeError, Error: crash}
		h.recordResult(&synthesized)
		emit(Message{Type: MessageResult, Result: &synthesized})
		emit(Message{Type: MessageExit, ExitCode: 1})
		b.upsertFinalStatus(ctx, cfg, run.StatusFailed)
		return
	}

	h.recordResult(&result)
	emit(Message{Type: MessageResult, Result: &result})
	emit(Message{Type: MessageExit, ExitCode: exitCodeFor(result.Outcome)})
	b.upsertFinalStatus(ctx, cfg, statusFor(result.Outcome))
}

// invoke runs the session, converting a panic inside the runner into a
// worker-crash error rather than letting it propagate and take down the
// host process — the in-proc analogue of a subprocess crashing.
func (b *Bridge) invoke(ctx context.Context, cfg ExecutorConfig, sessionCfg session.Config, emit func(Message)) (result session.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	client, clientErr := cfg.NewClient(ctx)
	if clientErr != nil {
		return session.Result{}, fmt.Errorf("construct model client: %w", clientErr)
	}

	runner := cfg.Runner
	if runner == nil {
		runner = session.New(session.Options{Bus: b.bus, Logger: b.logger})
	}

	emit(Message{Type: MessageLog, Log: "worker started: " + cfg.RunID})

	callbacks := session.Callbacks{
		OnEvent: func(ev session.StreamEvent) {
			if ev.Type == session.StreamEventProgress {
				emit(Message{Type: MessageExecutionProgress, StreamEvent: &ev})
				return
			}
			emit(Message{Type: MessageStreamEvent, StreamEvent: &ev})
		},
		OnAuthRefresh:  cfg.OnAuthRefresh,
		OnModelRefresh: cfg.OnModelRefresh,
	}

	result, runErr := runner.Run(ctx, client, sessionCfg, callbacks)
	if runErr != nil {
		return session.Result{}, runErr
	}
	return result, nil
}

func (h *Handle) recordResult(result *session.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result = result
}

func (b *Bridge) upsertFinalStatus(ctx context.Context, cfg ExecutorConfig, status run.Status) {
	if cfg.Store == nil {
		return
	}
	_ = cfg.Store.Upsert(ctx, run.Record{AgentID: cfg.AgentID, RunID: cfg.RunID, Status: status})
}

// exitCodeFor maps a terminal Outcome to the worker's process-style exit
// code: 0 for a completed run or one that exhausted its step budget
// without erroring, 1 for every other terminal state.
func exitCodeFor(outcome session.Outcome) int {
	switch outcome {
	case session.OutcomeCompleted, session.OutcomeMaxSteps:
		return 0
	default:
		return 1
	}
}

func statusFor(outcome session.Outcome) run.Status {
	switch outcome {
	case session.OutcomeCompleted, session.OutcomeMaxSteps:
		return run.StatusCompleted
	case session.OutcomeCancelled:
		return run.StatusCanceled
	default:
		return run.StatusFailed
	}
}

// cloneSessionConfig deep-copies the mutable, reference-typed fields of
// cfg so the caller's copy and the worker's copy never alias the same
// backing arrays — no shared mutable memory crosses the boundary. The
// security profile's four command sets and script-name list round-trip
// through MarshalLists/UnmarshalLists exactly as the wire contract
// requires.
func cloneSessionConfig(cfg session.Config) session.Config {
	clone := cfg

	clone.Messages = make([]*model.Message, len(cfg.Messages))
	for i, msg := range cfg.Messages {
		if msg == nil {
			continue
		}
		m := *msg
		m.Parts = append([]model.Part{}, msg.Parts...)
		clone.Messages[i] = &m
	}

	base, stack, script, custom, scriptNames := cfg.ToolContext.SecurityProfile.MarshalLists()
	clone.ToolContext.SecurityProfile = security.UnmarshalLists(base, stack, script, custom, scriptNames)

	if cfg.Labels != nil {
		labels := make(map[string]string, len(cfg.Labels))
		for k, v := range cfg.Labels {
			labels[k] = v
		}
		clone.Labels = labels
	}

	return clone
}
