package specdir

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/devagent/orchestrator/atomicfile"
	agenterrors "github.com/devagent/orchestrator/errors"
)

// TaskMetadata is the parsed form of task_metadata.json: the optional
// git-integration fields a host consults for branch naming.
type TaskMetadata struct {
	BaseBranch string `json:"baseBranch,omitempty"`
}

// ReadTaskMetadata reads task_metadata.json, returning the zero value and
// false when the file does not exist yet (a task with no git-integration
// fields set is a normal, not an error, state).
func ReadTaskMetadata(d Dir) (TaskMetadata, bool) {
	data, err := atomicfile.Read(d.TaskMetadataPath())
	if err != nil {
		return TaskMetadata{}, false
	}
	var meta TaskMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return TaskMetadata{}, false
	}
	return meta, true
}

// WriteTaskMetadata atomically writes task_metadata.json.
func WriteTaskMetadata(d Dir, meta TaskMetadata) error {
	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return agenterrors.Wrap(agenterrors.KindParse, "specdir: marshal task metadata", err)
	}
	return atomicfile.Write(d.TaskMetadataPath(), encoded)
}

// TaskLogEntry is one line of the append-only task_logs.json stream.
type TaskLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Phase     string    `json:"phase"`
	Message   string    `json:"message"`
}

// AppendTaskLog atomically appends one JSON-encoded log entry as a new
// line in task_logs.json: the existing lines plus the new one are written
// to a temp file that is renamed into place, so a reader never sees a
// partially written log.
func AppendTaskLog(d Dir, entry TaskLogEntry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return agenterrors.Wrap(agenterrors.KindParse, "specdir: marshal task log entry", err)
	}
	existing, err := atomicfile.Read(d.TaskLogsPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	data := make([]byte, 0, len(existing)+len(encoded)+1)
	data = append(append(append(data, existing...), encoded...), '\n')
	return atomicfile.Write(d.TaskLogsPath(), data)
}
