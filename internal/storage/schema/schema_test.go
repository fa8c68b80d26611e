package schema

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"
)

func sqliteDriver(t *testing.T, path string) database.Driver {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	return driver
}

func TestUp(t *testing.T) {
	files := fstest.MapFS{
		"m/000001_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id TEXT PRIMARY KEY);")},
		"m/000001_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
	}
	path := filepath.Join(t.TempDir(), "schema.db")

	for run := 1; run <= 2; run++ {
		driver := sqliteDriver(t, path)
		if err := Up(files, "m", "sqlite", driver); err != nil {
			t.Fatalf("run %d: Up() error = %v", run, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var name string
	if err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='notes'`).Scan(&name); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
}

func TestUpMissingDir(t *testing.T) {
	driver := sqliteDriver(t, filepath.Join(t.TempDir(), "empty.db"))
	defer driver.Close()
	if err := Up(fstest.MapFS{}, "nope", "sqlite", driver); err == nil {
		t.Fatal("expected error for a missing migrations directory")
	}
}
