package notify

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/project-management-api/internal/mail"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	NotifyTaskAssigned(ctx context.Context, e TaskAssignedEvent) error
	NotifyTaskReminder(ctx context.Context, e TaskReminderEvent) error
}

// NoopNotifier is a no-op implementation used when mail is disabled.
type NoopNotifier struct{}

func (NoopNotifier) NotifyTaskAssigned(context.Context, TaskAssignedEvent) error { return nil }
func (NoopNotifier) NotifyTaskReminder(context.Context, TaskReminderEvent) error { return nil }

// EmailNotifier renders the notification templates and mails them.
type EmailNotifier struct {
	sender mail.Sender
}

func NewEmailNotifier(sender mail.Sender) *EmailNotifier {
	return &EmailNotifier{sender: sender}
}

type emailView struct {
	Intro       string
	Name        string
	Title       string
	Description string
	DueDate     string
	Link        string
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "No due date"
	}
	return due.UTC().Format("Jan 2, 2006")
}

func (n *EmailNotifier) NotifyTaskAssigned(ctx context.Context, e TaskAssignedEvent) error {
	if e.AssigneeEmail == "" {
		return nil
	}
	html, err := render(emailView{
		Intro:       "You've been assigned a new task:",
		Name:        e.AssigneeName,
		Title:       e.Title,
		Description: e.Description,
		DueDate:     formatDue(e.DueDate),
		Link:        e.Origin,
	})
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, mail.Message{
		To:      e.AssigneeEmail,
		Subject: fmt.Sprintf("New task Assignment in %s", e.ProjectName),
		HTML:    html,
	})
}

func (n *EmailNotifier) NotifyTaskReminder(ctx context.Context, e TaskReminderEvent) error {
	if e.AssigneeEmail == "" {
		return nil
	}
	html, err := render(emailView{
		Intro:       fmt.Sprintf("You have a task due in %s:", e.ProjectName),
		Name:        e.AssigneeName,
		Title:       e.Title,
		Description: e.Description,
		DueDate:     formatDue(e.DueDate),
		Link:        e.Origin,
	})
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, mail.Message{
		To:      e.AssigneeEmail,
		Subject: fmt.Sprintf("Reminder for %s", e.ProjectName),
		HTML:    html,
	})
}

func render(v emailView) (string, error) {
	var buf bytes.Buffer
	if err := taskTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}
	return buf.String(), nil
}
