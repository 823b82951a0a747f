package nodeconfig

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// newTestStore creates a store backed by the built-in catalog.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}
	return NewStore(catalog)
}

// loadSample replaces the store content with sampleConfigJSON.
func loadSample(t *testing.T, s *Store) {
	t.Helper()

	var cfg Config
	if err := json.Unmarshal([]byte(sampleConfigJSON), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if err := s.Replace(&cfg); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
}

func TestStoreReplaceMintsKeys(t *testing.T) {
	s := newTestStore(t)
	loadSample(t, s)

	keys := s.Keys()
	if len(keys) != 4 {
		t.Fatalf("len(Keys) = %d, want 4", len(keys))
	}
	seen := map[string]bool{}
	for id, key := range keys {
		if key == "" {
			t.Errorf("%s has an empty key", id)
		}
		if seen[key] {
			t.Errorf("key %s used twice", key)
		}
		seen[key] = true
	}
}

func TestStoreReplaceKeepsSurvivingKeys(t *testing.T) {
	s := newTestStore(t)
	loadSample(t, s)
	before := s.Keys()

	cfg := s.Snapshot()
	delete(cfg.Instances, "sensor2")
	if err := s.Replace(cfg); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	after := s.Keys()
	if _, ok := after["sensor2"]; ok {
		t.Error("sensor2 key should be dropped")
	}
	if after["device1"] != before["device1"] {
		t.Error("device1 key changed across Replace")
	}
}

func TestStoreReplaceRejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	cfg := NewConfig()
	cfg.Instances["device2"] = NewUnconfigured()
	if err := s.Replace(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Replace() error = %v, want ErrInvalidConfig", err)
	}
	if err := s.Replace(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Replace(nil) error = %v, want ErrInvalidConfig", err)
	}
	if s.Revision() != 0 {
		t.Errorf("Revision() = %d, want 0 after rejected replaces", s.Revision())
	}
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	s := newTestStore(t)
	loadSample(t, s)

	snap := s.Snapshot()
	snap.Instances["device1"].Params[ParamNickname] = "changed"
	delete(snap.Instances, "device2")

	fresh := s.Snapshot()
	if fresh.Instances["device1"].Nickname() != "Lamp" {
		t.Error("mutating a snapshot changed the store")
	}
	if _, ok := fresh.Instances["device2"]; !ok {
		t.Error("deleting from a snapshot changed the store")
	}
}

func TestStoreObserver(t *testing.T) {
	s := newTestStore(t)

	var changes []Change
	s.SetObserver(func(c Change) {
		changes = append(changes, c)
	})

	id, err := s.AddInstance(CategoryDevice)
	if err != nil {
		t.Fatalf("AddInstance() error = %v", err)
	}
	if err := s.DeleteInstance(id); err != nil {
		t.Fatalf("DeleteInstance() error = %v", err)
	}

	if len(changes) != 2 {
		t.Fatalf("observer saw %d changes, want 2", len(changes))
	}
	if changes[0].Op != OpAddInstance || changes[0].Counts[CategoryDevice] != 1 {
		t.Errorf("first change = %+v", changes[0])
	}
	if changes[1].Op != OpDeleteInstance || changes[1].ID != "device1" || changes[1].Revision != 2 {
		t.Errorf("second change = %+v", changes[1])
	}
}

func TestStoreFailedMutationDoesNotCommit(t *testing.T) {
	s := newTestStore(t)
	loadSample(t, s)
	rev := s.Revision()

	if err := s.DeleteInstance("device9"); !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("DeleteInstance() error = %v, want ErrInstanceNotFound", err)
	}
	if s.Revision() != rev {
		t.Errorf("Revision() = %d, want %d", s.Revision(), rev)
	}
}

func TestStoreConcurrentAdds(t *testing.T) {
	s := newTestStore(t)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddInstance(CategorySensor); err != nil {
				t.Errorf("AddInstance() error = %v", err)
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if err := snap.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if snap.Count(CategorySensor) != workers {
		t.Errorf("Count(sensor) = %d, want %d", snap.Count(CategorySensor), workers)
	}
	if len(s.Keys()) != workers {
		t.Errorf("len(Keys) = %d, want %d", len(s.Keys()), workers)
	}
}

func TestStoreObserverSeesRevisionsInOrder(t *testing.T) {
	s := newTestStore(t)

	var revisions []uint64
	s.SetObserver(func(c Change) {
		revisions = append(revisions, c.Revision)
	})

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddInstance(CategoryDevice); err != nil {
				t.Errorf("AddInstance() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if len(revisions) != workers {
		t.Fatalf("observer saw %d changes, want %d", len(revisions), workers)
	}
	for i, rev := range revisions {
		if rev != uint64(i+1) {
			t.Fatalf("change %d has revision %d, want %d (got %v)", i, rev, i+1, revisions)
		}
	}
}

func TestStoreViewIsConsistent(t *testing.T) {
	s := newTestStore(t)
	loadSample(t, s)

	cfg, keys, rev := s.View()
	if rev != s.Revision() {
		t.Errorf("View revision = %d, want %d", rev, s.Revision())
	}
	if len(keys) != len(cfg.Instances) {
		t.Errorf("View has %d keys for %d instances", len(keys), len(cfg.Instances))
	}
	for id := range cfg.Instances {
		if _, ok := keys[id]; !ok {
			t.Errorf("no key for %s", id)
		}
	}

	keys["device1"] = "tampered"
	if key, _ := s.Key("device1"); key == "tampered" {
		t.Error("mutating View keys changed the store")
	}
}
