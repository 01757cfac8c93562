package notify

import "time"

// TaskAssignedEvent is sent when a task gets an assignee.
type TaskAssignedEvent struct {
	TaskID        string
	Title         string
	Description   string
	ProjectName   string
	AssigneeName  string
	AssigneeEmail string
	DueDate       *time.Time
	// Origin is the client origin the task link points at.
	Origin string
}

// TaskReminderEvent is sent at the due date of a task that is not done yet.
type TaskReminderEvent struct {
	TaskID        string
	Title         string
	Description   string
	ProjectName   string
	AssigneeName  string
	AssigneeEmail string
	DueDate       *time.Time
	Origin        string
}
