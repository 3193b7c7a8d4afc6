package notify

import "log"

// Notifier is the notification collaborator. The pipeline calls it with
// (title, message) pairs: Notify on the fatal prediction-failure path,
// Warn on the non-fatal degraded-advisory path.
type Notifier interface {
	Notify(title, message string)
	Warn(title, message string)
}

// LogNotifier writes notifications to the process log. The surrounding UI
// shell replaces it with its own popup collaborator.
type LogNotifier struct{}

func (LogNotifier) Notify(title, message string) {
	log.Printf("notify: %s: %s", title, message)
}

func (LogNotifier) Warn(title, message string) {
	log.Printf("warn: %s: %s", title, message)
}

// Capture records notifications for tests.
type Capture struct {
	Errors   []Entry
	Warnings []Entry
}

type Entry struct {
	Title   string
	Message string
}

func (c *Capture) Notify(title, message string) {
	c.Errors = append(c.Errors, Entry{Title: title, Message: message})
}

func (c *Capture) Warn(title, message string) {
	c.Warnings = append(c.Warnings, Entry{Title: title, Message: message})
}
