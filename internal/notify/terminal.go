package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// TerminalNotifier prints notifications to a writer. It is the default
// channel for interactive runs.
type TerminalNotifier struct {
	out io.Writer
	mu  sync.Mutex
}

// NewTerminalNotifier creates a TerminalNotifier writing to stdout.
func NewTerminalNotifier() *TerminalNotifier {
	return &TerminalNotifier{out: os.Stdout}
}

// NewTerminalNotifierWithWriter creates a TerminalNotifier writing to w.
func NewTerminalNotifierWithWriter(w io.Writer) *TerminalNotifier {
	return &TerminalNotifier{out: w}
}

// Name returns the name of the notifier.
func (t *TerminalNotifier) Name() string { return "terminal" }

// IsEnabled returns whether the notifier is enabled.
func (t *TerminalNotifier) IsEnabled() bool { return true }

// Send prints the notification.
func (t *TerminalNotifier) Send(_ context.Context, n Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.out, "[%s] %s\n%s\n", n.Timestamp.Format("15:04:05"), n.Title, n.Message)
	return err
}
