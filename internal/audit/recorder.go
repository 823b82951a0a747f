package audit

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

// Journal actions besides the mutation ops.
const (
	ActionSave       = "save"
	ActionSaveFailed = "save_failed"
)

// recordTimeout bounds a single journal write.
const recordTimeout = 2 * time.Second

// Logger is the logging interface used by the recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder turns store changes and save attempts into journal entries.
// Write failures are logged and never reach the caller.
type Recorder struct {
	repo   Repository
	node   string
	logger Logger
	now    func() time.Time
}

// NewRecorder creates a recorder writing entries for node.
func NewRecorder(repo Repository, node string) *Recorder {
	return &Recorder{
		repo:   repo,
		node:   node,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for write failures.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// ObserveChange records a committed mutation. It matches nodeconfig.Observer.
func (r *Recorder) ObserveChange(change nodeconfig.Change) {
	counts := make(map[string]any, len(change.Counts))
	for category, n := range change.Counts {
		counts[string(category)] = n
	}
	at := change.At
	if at.IsZero() {
		at = r.now()
	}
	r.create(&Entry{
		Node:       r.node,
		Action:     change.Op,
		InstanceID: change.ID,
		Sequence:   change.Revision,
		Details:    map[string]any{"counts": counts},
		CreatedAt:  at.UTC(),
	})
}

// ObserveSave records a save attempt. It matches nodeconfig.SaveHook.
func (r *Recorder) ObserveSave(rev *nodeconfig.Revision, err error) {
	entry := &Entry{Node: r.node, CreatedAt: r.now().UTC()}
	if err != nil {
		entry.Action = ActionSaveFailed
		entry.Details = map[string]any{"error": err.Error()}
	} else {
		entry.Action = ActionSave
		entry.Details = map[string]any{"revision": rev.ID, "instance_count": rev.InstanceCount}
	}
	r.create(entry)
}

// List returns a page of this node's journal.
func (r *Recorder) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter.Node = r.node
	return r.repo.List(ctx, filter)
}

func (r *Recorder) create(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Warn("recording config edit failed", "action", entry.Action, "error", err)
	}
}
