package nodeconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Publisher announces a saved config to other components (for example over
// MQTT). Publishing is best effort: a failure is logged, not returned.
type Publisher interface {
	PublishConfig(ctx context.Context, rev *Revision) error
}

// SaveHook is called after every save attempt with the saved revision or
// the error that stopped it.
type SaveHook func(rev *Revision, err error)

// Service ties the in-memory store to revision persistence.
//
// Mutations never persist on their own. Save serialises the whole snapshot
// as one revision; Restore and LoadLatest install a saved revision as the
// current snapshot.
type Service struct {
	store     *Store
	repo      Repository
	node      string
	publisher Publisher
	hook      SaveHook
	logger    Logger
}

// NewService creates a service for the named node.
func NewService(store *Store, repo Repository, node string) *Service {
	return &Service{
		store:  store,
		repo:   repo,
		node:   node,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetPublisher sets where saved configs are announced.
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// SetSaveHook sets the callback invoked after each save attempt.
func (s *Service) SetSaveHook(hook SaveHook) {
	s.hook = hook
}

// Node returns the node name revisions are stored under.
func (s *Service) Node() string {
	return s.node
}

// Store returns the underlying config store.
func (s *Service) Store() *Store {
	return s.store
}

// Save persists the current snapshot as a new revision.
func (s *Service) Save(ctx context.Context) (*Revision, error) {
	rev, err := s.save(ctx)
	if s.hook != nil {
		s.hook(rev, err)
	}
	return rev, err
}

func (s *Service) save(ctx context.Context) (*Revision, error) {
	snapshot := s.store.Snapshot()
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	rev := &Revision{
		Node:          s.node,
		Config:        data,
		InstanceCount: len(snapshot.Instances),
	}
	if err := s.repo.Save(ctx, rev); err != nil {
		return nil, fmt.Errorf("saving config revision: %w", err)
	}
	s.logger.Info("config saved", "revision", rev.ID, "instances", rev.InstanceCount)

	if s.publisher != nil {
		if err := s.publisher.PublishConfig(ctx, rev); err != nil {
			s.logger.Warn("publishing saved config failed", "revision", rev.ID, "error", err)
		}
	}
	return rev, nil
}

// Restore installs a saved revision as the current snapshot.
func (s *Service) Restore(ctx context.Context, revisionID string) (*Revision, error) {
	rev, err := s.repo.Get(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	if err := s.install(rev); err != nil {
		return nil, err
	}
	s.logger.Info("config restored", "revision", rev.ID)
	return rev, nil
}

// LoadLatest installs the newest saved revision of this node, if any.
// It reports whether a revision was found.
func (s *Service) LoadLatest(ctx context.Context) (bool, error) {
	rev, err := s.repo.Latest(ctx, s.node)
	if errors.Is(err, ErrRevisionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.install(rev); err != nil {
		return false, err
	}
	s.logger.Info("config loaded", "revision", rev.ID, "instances", rev.InstanceCount)
	return true, nil
}

// Revisions lists this node's saved revisions, newest first.
func (s *Service) Revisions(ctx context.Context, limit int) ([]Revision, error) {
	return s.repo.List(ctx, s.node, limit)
}

func (s *Service) install(rev *Revision) error {
	var cfg Config
	if err := json.Unmarshal(rev.Config, &cfg); err != nil {
		return fmt.Errorf("%w: decoding revision %s: %w", ErrInvalidConfig, rev.ID, err)
	}
	return s.store.Replace(&cfg)
}
