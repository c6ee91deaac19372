package migrations

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
)

func migrationFS(names ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, name := range names {
		fsys[name] = &fstest.MapFile{Data: []byte("-- sql")}
	}

	return fsys
}

func TestNew_DefaultsToEmbeddedSet(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	embedded := New(nil)
	if embedded == nil {
		t.Fatal("expected non-nil EmbeddedMigration instance")
	}

	if embedded.FS() == nil {
		t.Fatal("expected non-nil migration filesystem")
	}

	files, err := embedded.List()
	if err != nil {
		t.Fatalf("failed to list embedded migrations: %v", err)
	}

	if len(files) == 0 {
		t.Error("expected to find embedded migration files")
	}
}

func TestEmbeddedSet_Validates(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	// The shipped migration set must always pass its own validation.
	if err := New(nil).Validate(); err != nil {
		t.Fatalf("embedded migration set failed validation: %v", err)
	}
}

func TestList_SortedAndFiltered(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fsys := migrationFS(
		"002_second.up.sql",
		"001_first.up.sql",
		"001_first.down.sql",
		"002_second.down.sql",
		"notes.txt",
		"badname.sql",
	)

	files, err := New(fsys).List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{
		"001_first.down.sql",
		"001_first.up.sql",
		"002_second.down.sql",
		"002_second.up.sql",
	}

	if !reflect.DeepEqual(files, expected) {
		t.Errorf("expected %v, got %v", expected, files)
	}
}

func TestValidate_EmptySet(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	err := New(fstest.MapFS{}).Validate()
	if !errors.Is(err, ErrNoMigrations) {
		t.Errorf("expected ErrNoMigrations, got %v", err)
	}
}

func TestValidate_OrphanedUpMigration(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fsys := migrationFS(
		"001_first.up.sql",
		"001_first.down.sql",
		"002_second.up.sql",
	)

	err := New(fsys).Validate()
	if err == nil || !strings.Contains(err.Error(), "missing down migration") {
		t.Errorf("expected missing down migration error, got %v", err)
	}
}

func TestValidate_OrphanedDownMigration(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fsys := migrationFS(
		"001_first.up.sql",
		"001_first.down.sql",
		"002_second.down.sql",
	)

	err := New(fsys).Validate()
	if err == nil || !strings.Contains(err.Error(), "missing up migration") {
		t.Errorf("expected missing up migration error, got %v", err)
	}
}

func TestValidate_SequenceMustStartAtOne(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fsys := migrationFS(
		"002_second.up.sql",
		"002_second.down.sql",
	)

	err := New(fsys).Validate()
	if err == nil || !strings.Contains(err.Error(), "should start with 001") {
		t.Errorf("expected sequence start error, got %v", err)
	}
}

func TestValidate_SequenceGap(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fsys := migrationFS(
		"001_first.up.sql",
		"001_first.down.sql",
		"003_third.up.sql",
		"003_third.down.sql",
	)

	err := New(fsys).Validate()
	if err == nil || !strings.Contains(err.Error(), "gap in migration sequence") {
		t.Errorf("expected sequence gap error, got %v", err)
	}
}

func TestParseFilename(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	info, err := parseFilename("003_create_ingestion_batches.up.sql")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.Sequence != 3 || info.Name != "create_ingestion_batches" || info.Direction != "up" {
		t.Errorf("unexpected parse result: %+v", info)
	}

	if _, err := parseFilename("create_stuff.sql"); err == nil {
		t.Error("expected error for malformed filename")
	}

	if _, err := parseFilename("01_short_sequence.up.sql"); err == nil {
		t.Error("expected error for two-digit sequence")
	}
}
