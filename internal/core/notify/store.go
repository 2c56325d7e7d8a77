// Package notify defines user-facing notices raised by the console and the
// store that keeps their history between sessions.
package notify

import (
	"context"
	"time"
)

// Level is how loudly a notice is shown. Errors stay on screen until
// dismissed; the other levels expire.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// HistoryLimit is how many notices the history keeps. Older ones are pruned
// as new ones arrive.
const HistoryLimit = 200

// Notification is one notice. ID is zero until the notice is persisted.
type Notification struct {
	ID int64
	// Source names the console area that raised it (review, workspace, ...).
	Source    string
	Level     Level
	Message   string
	CreatedAt time.Time
}

// Store keeps the notice history. List returns newest first.
type Store interface {
	Save(ctx context.Context, n Notification) (int64, error)
	List(ctx context.Context) ([]Notification, error)
	Clear(ctx context.Context) error
	// Prune drops all but the newest keep notices and reports how many
	// were removed.
	Prune(ctx context.Context, keep int) (int64, error)
}
