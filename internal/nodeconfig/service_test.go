package nodeconfig

import (
	"context"
	"errors"
	"testing"
)

type recordingPublisher struct {
	revisions []*Revision
	err       error
}

func (p *recordingPublisher) PublishConfig(_ context.Context, rev *Revision) error {
	p.revisions = append(p.revisions, rev)
	return p.err
}

func TestServiceSaveAndRestore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := NewService(s, NewSQLiteRepository(setupTestDB(t)), "living-room")
	pub := &recordingPublisher{}
	svc.SetPublisher(pub)

	var hooked []error
	svc.SetSaveHook(func(_ *Revision, err error) { hooked = append(hooked, err) })

	addConfigured(t, s, CategoryDevice, "dimmer")
	mustChange(t, s, "device1", ParamNickname, "Lamp")

	rev, err := svc.Save(ctx)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if rev.InstanceCount != 1 {
		t.Errorf("InstanceCount = %d, want 1", rev.InstanceCount)
	}
	if len(pub.revisions) != 1 || pub.revisions[0].ID != rev.ID {
		t.Errorf("published %d revisions", len(pub.revisions))
	}
	if len(hooked) != 1 || hooked[0] != nil {
		t.Errorf("save hook calls = %v", hooked)
	}

	if err := s.DeleteInstance("device1"); err != nil {
		t.Fatalf("DeleteInstance() error = %v", err)
	}
	if _, err := svc.Restore(ctx, rev.ID); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	inst, ok := s.Snapshot().Get("device1")
	if !ok || inst.Nickname() != "Lamp" || inst.Type != "dimmer" {
		t.Errorf("restored device1 = %+v", inst)
	}
	if _, ok := s.Key("device1"); !ok {
		t.Error("restored instance has no key")
	}

	if _, err := svc.Restore(ctx, "rev-missing"); !errors.Is(err, ErrRevisionNotFound) {
		t.Errorf("Restore(missing) error = %v, want ErrRevisionNotFound", err)
	}
}

func TestServiceSaveSurvivesPublishFailure(t *testing.T) {
	s := newTestStore(t)
	svc := NewService(s, NewSQLiteRepository(setupTestDB(t)), "n")
	svc.SetPublisher(&recordingPublisher{err: errors.New("broker down")})

	if _, err := svc.Save(context.Background()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func TestServiceLoadLatest(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))

	first := NewService(newTestStore(t), repo, "n")
	found, err := first.LoadLatest(ctx)
	if err != nil || found {
		t.Fatalf("LoadLatest(empty) = %v, %v", found, err)
	}

	addConfigured(t, first.Store(), CategorySensor, "pir")
	if _, err := first.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := NewService(newTestStore(t), repo, "n")
	found, err = second.LoadLatest(ctx)
	if err != nil || !found {
		t.Fatalf("LoadLatest() = %v, %v", found, err)
	}
	if second.Store().Snapshot().Count(CategorySensor) != 1 {
		t.Error("LoadLatest did not install the saved config")
	}

	revs, err := second.Revisions(ctx, 10)
	if err != nil || len(revs) != 1 {
		t.Errorf("Revisions() = %v, %v", revs, err)
	}
}
