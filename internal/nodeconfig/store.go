package nodeconfig

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Store.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Mutation operation names reported in Change events.
const (
	OpReplace         = "replace"
	OpAddInstance     = "add_instance"
	OpDeleteInstance  = "delete_instance"
	OpChangeType      = "change_instance_type"
	OpInputChange     = "input_change"
	OpInstanceUpdate  = "instance_update"
	OpSensorTarget    = "sensor_target_select"
	OpIRTarget        = "ir_target_select"
	OpChangeUnits     = "change_units"
	OpSetIRBlaster    = "set_ir_blaster"
	OpRemoveIRBlaster = "remove_ir_blaster"
)

// Change describes one committed mutation.
type Change struct {
	Op       string           `json:"op"`
	ID       string           `json:"id,omitempty"`
	Revision uint64           `json:"revision"`
	Counts   map[Category]int `json:"counts"`
	At       time.Time        `json:"at"`
}

// Observer is notified after every committed mutation, in revision order.
// It runs outside the store lock and may read the store, but must not
// mutate it.
type Observer func(Change)

// Store holds the authoritative config snapshot and the key registry.
//
// The key registry maps every live instance ID to an opaque key that stays
// with the instance when renumbering changes its ID, so a view layer can
// track identity across a delete.
//
// Every mutation copies the current snapshot, transforms the copy and swaps
// it in as one step. Mutations are serialised, so each one always works on
// the latest snapshot.
//
// All public methods are thread-safe.
type Store struct {
	mu       sync.Mutex
	notifyMu sync.Mutex // held while observers run; taken before mu is released
	snapshot *Config
	keys     map[string]string
	revision uint64

	catalog  *Catalog
	logger   Logger
	observer Observer
	now      func() time.Time
}

// NewStore creates a store holding an empty config.
func NewStore(catalog *Catalog) *Store {
	return &Store{
		snapshot: NewConfig(),
		keys:     make(map[string]string),
		catalog:  catalog,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetObserver sets the callback invoked after each committed mutation.
func (s *Store) SetObserver(observer Observer) {
	s.mu.Lock()
	s.observer = observer
	s.mu.Unlock()
}

// Catalog returns the metadata catalog the store was built with.
func (s *Store) Catalog() *Catalog {
	return s.catalog
}

// Snapshot returns a deep copy of the current config.
func (s *Store) Snapshot() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.DeepCopy()
}

// Revision returns the number of mutations committed so far.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Keys returns a copy of the key registry.
func (s *Store) Keys() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyKeys(s.keys)
}

// Key returns the registry key of an instance.
func (s *Store) Key(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	return key, ok
}

// View returns a consistent copy of the snapshot, the key registry and the
// revision counter, all taken under one lock.
func (s *Store) View() (*Config, map[string]string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.DeepCopy(), copyKeys(s.keys), s.revision
}

// Replace validates cfg and installs it as the current snapshot.
//
// Keys of IDs present before and after are kept; new IDs get fresh keys.
func (s *Store) Replace(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	next := cfg.DeepCopy()
	return s.mutate(OpReplace, "", func(work *Config, keys map[string]string) error {
		*work = *next
		for id := range keys {
			if _, ok := work.Instances[id]; !ok {
				delete(keys, id)
			}
		}
		for id := range work.Instances {
			if _, ok := keys[id]; !ok {
				keys[id] = newKey()
			}
		}
		return nil
	})
}

// errUnchanged is returned by a mutation function that found nothing to do.
// mutate treats it as success without committing a new revision.
var errUnchanged = errors.New("nodeconfig: unchanged")

// mutate runs fn against a private copy of the snapshot and key registry
// and commits both if fn succeeds.
func (s *Store) mutate(op, id string, fn func(work *Config, keys map[string]string) error) error {
	s.mu.Lock()

	work := s.snapshot.DeepCopy()
	keys := copyKeys(s.keys)
	if err := fn(work, keys); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}

	s.snapshot = work
	s.keys = keys
	s.revision++

	change := Change{
		Op:       op,
		ID:       id,
		Revision: s.revision,
		Counts: map[Category]int{
			CategoryDevice: work.Count(CategoryDevice),
			CategorySensor: work.Count(CategorySensor),
		},
		At: s.now().UTC(),
	}
	observer := s.observer
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.logger.Debug("config mutation committed", "op", op, "id", id, "revision", change.Revision)
	if observer != nil {
		observer(change)
	}
	return nil
}

// lookup returns the instance with the given ID from a working copy.
func lookup(cfg *Config, id string) (*Instance, error) {
	inst, ok := cfg.Instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}
	return inst, nil
}

func copyKeys(keys map[string]string) map[string]string {
	cpy := make(map[string]string, len(keys))
	for id, key := range keys {
		cpy[id] = key
	}
	return cpy
}

func newKey() string {
	return uuid.NewString()
}
