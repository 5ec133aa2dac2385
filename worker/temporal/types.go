package temporal

import "time"

// SessionRequest is the JSON-serializable input to RunSessionWorkflow. It
// carries the scalar identifiers and execution-environment fields a
// session.Config needs, plus a single flattened Prompt rather than a
// model.Message history — see the package doc for why.
type SessionRequest struct {
	RunID   string
	AgentID string
	Role    string
	Phase   string
	Subtask string

	Model      string
	ModelClass string

	SystemPrompt string
	Prompt       string

	Cwd         string
	ProjectDir  string
	SpecDir     string
	ProjectKind string

	SecurityBase        []string
	SecurityStack       []string
	SecurityScript      []string
	SecurityCustom      []string
	SecurityScriptNames []string

	MaxSteps               int
	MaxToolCalls           int
	MaxConsecutiveFailures int

	ThinkingLevel string
	Labels        map[string]string

	// ActivityTimeout overrides the Engine's default StartToCloseTimeout
	// for this session's activity attempts. Zero means use the Engine's
	// configured default.
	ActivityTimeout time.Duration
}

// SessionResponse is the JSON-serializable output of RunSessionWorkflow: a
// flattened summary of session.Result.
type SessionResponse struct {
	Outcome string

	FinalText string

	InputTokens  int
	OutputTokens int
	TotalTokens  int

	StepsExecuted int
	ToolCallCount int
	DurationMs    int64

	ErrorKind    string
	ErrorMessage string
}
