// Package plan implements the ImplementationPlan data model: the
// persisted artifact a planner session writes and a coder session reads
// and mutates, one subtask at a time, as the Build Orchestrator's shared
// durable state between phases.
package plan

// Status is a subtask's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Subtask is one unit of coding work within a Phase. ID is unique across
// the whole plan, not just within its Phase.
type Subtask struct {
	ID            string   `json:"id"`
	Description   string   `json:"description"`
	Status        Status   `json:"status"`
	FilesToCreate []string `json:"files_to_create,omitempty"`
	FilesToModify []string `json:"files_to_modify,omitempty"`
}

// Phase is an ordered group of Subtasks.
type Phase struct {
	Name     string    `json:"name"`
	Subtasks []Subtask `json:"subtasks"`
}

// ImplementationPlan is the ordered list of Phases a planner session
// produces and a coder session incrementally completes.
type ImplementationPlan struct {
	Phases []Phase `json:"phases"`
}
