package domain

import "github.com/bytedance/sonic"

// Command types accepted on the task edit path.
const (
	CommandAddTask    = "add_task"
	CommandUpdateTask = "update_task"
	CommandDeleteTask = "delete_task"
)

// Command represents one task hour edit queued for the downstream writer.
type Command struct {
	// ID carries the idempotency key when enqueued to the writer queue.
	ID             string                 `json:"id,omitempty"`
	IdempotencyKey string                 `json:"idempotencyKey"`
	Type           string                 `json:"type"`
	TaskID         string                 `json:"taskId"`
	Data           sonic.NoCopyRawMessage `json:"data,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
}

// CommandEnvelope wraps a command with the analyst performing it.
type CommandEnvelope struct {
	UserID  string  `json:"userId"`
	Command Command `json:"command"`
}
