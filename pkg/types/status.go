package types

// TaskStatus is the review state shared by verification tasks and
// participation submissions.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusRejected   TaskStatus = "REJECTED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusRejected:
		return true
	}
	return false
}

// IsOpen reports whether a reviewer still has to act on the task.
func (s TaskStatus) IsOpen() bool {
	return s == TaskStatusPending || s == TaskStatusInProgress
}

// IsFinal reports whether a reviewer has reached a decision.
func (s TaskStatus) IsFinal() bool {
	return s == TaskStatusCompleted || s == TaskStatusRejected
}

// DisplayStatus is computed at read time for listings and never stored.
type DisplayStatus string

const (
	DisplayStatusOngoing   DisplayStatus = "ongoing"
	DisplayStatusUpcoming  DisplayStatus = "upcoming"
	DisplayStatusCompleted DisplayStatus = "completed"
)

func (s DisplayStatus) Valid() bool {
	switch s {
	case DisplayStatusOngoing, DisplayStatusUpcoming, DisplayStatusCompleted:
		return true
	}
	return false
}

const (
	ProcessStatusOpen      = "OPEN"
	ProcessStatusClosed    = "CLOSED"
	ProcessStatusCancelled = "CANCELLED"
)
