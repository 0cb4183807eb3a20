// Package notify delivers user-facing cart messages.
package notify

import (
	"context"
	"sync"

	"cartflow/pkg/logger"
)

// Log writes each message to the application log.
type Log struct {
	log *logger.Logger
}

// NewLog returns a notifier backed by log.
func NewLog(log *logger.Logger) *Log {
	return &Log{log: log}
}

// Error implements cart.Notifier.
func (n *Log) Error(ctx context.Context, message string) {
	n.log.Warn(ctx, "user notification", "message", message)
}

// Recorder keeps messages in arrival order.
type Recorder struct {
	mu   sync.Mutex
	msgs []string
}

// Error implements cart.Notifier.
func (r *Recorder) Error(ctx context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, message)
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

// Reset drops recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}
