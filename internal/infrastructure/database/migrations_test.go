package database

import (
	"context"
	"testing"
	"testing/fstest"
)

// withMigrations swaps in a test filesystem for the duration of a test.
func withMigrations(t *testing.T, files fstest.MapFS) {
	t.Helper()
	prevFS, prevDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = files, "."
	t.Cleanup(func() { MigrationsFS, MigrationsDir = prevFS, prevDir })
}

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_config_revisions.up.sql": {Data: []byte(
			`CREATE TABLE config_revisions (id TEXT PRIMARY KEY, node TEXT NOT NULL);`)},
		"20260101_000000_config_revisions.down.sql": {Data: []byte(
			`DROP TABLE config_revisions;`)},
		"20260201_000000_revision_index.up.sql": {Data: []byte(
			`CREATE INDEX idx_config_revisions_node ON config_revisions(node);`)},
		"README.md": {Data: []byte("not a migration")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n); err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	withMigrations(t, testMigrations())
	db := openTestDB(t)
	ctx := context.Background()

	n, err := db.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Migrate() applied %d, want 2", n)
	}
	if !tableExists(t, db, "config_revisions") {
		t.Error("config_revisions table missing")
	}

	// Second run is a no-op.
	n, err = db.Migrate(ctx)
	if err != nil || n != 0 {
		t.Errorf("second Migrate() = %d, %v; want 0, nil", n, err)
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("status = %d applied, %d pending", len(applied), len(pending))
	}
}

func TestMigrateFailureStops(t *testing.T) {
	files := testMigrations()
	files["20260301_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte(`CREATE TABLE oops (`)}
	withMigrations(t, files)
	db := openTestDB(t)

	n, err := db.Migrate(context.Background())
	if err == nil {
		t.Fatal("Migrate() expected error")
	}
	if n != 2 {
		t.Errorf("applied before failure = %d, want 2", n)
	}
}

func TestMigrateDown(t *testing.T) {
	files := testMigrations()
	delete(files, "20260201_000000_revision_index.up.sql")
	withMigrations(t, files)
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "config_revisions") {
		t.Error("config_revisions should be dropped")
	}

	_, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	prev := MigrationsFS
	MigrationsFS = nil
	t.Cleanup(func() { MigrationsFS = prev })

	db := openTestDB(t)
	n, err := db.Migrate(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Migrate() = %d, %v; want 0, nil", n, err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260101_000000_config_revisions.up.sql", "20260101_000000", "config_revisions", true, true},
		{"20260101_000000_config_revisions.down.sql", "20260101_000000", "config_revisions", false, true},
		{"20260101_000000.up.sql", "20260101_000000", "20260101_000000", true, true},
		{"20260101_000000_x.sql", "", "", false, false},
		{"20260101.up.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || isUp != tt.wantUp {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)", version, name, isUp, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
