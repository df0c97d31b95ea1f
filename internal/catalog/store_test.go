package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalogFile(t *testing.T, body []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.ics")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write catalog file: %v", err)
	}
	return path
}

func TestStoreReloadAndFind(t *testing.T) {
	path := writeCatalogFile(t, icsBody(
		"BEGIN:VEVENT",
		"UID:raid",
		"SUMMARY:Raid Hour",
		"DTSTART:20250601T180000Z",
		"DTEND:20250601T210000Z",
		"END:VEVENT",
	))

	s := NewStore(path)
	if !s.LoadedAt().IsZero() {
		t.Error("LoadedAt should be zero before the first reload")
	}
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	events := s.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if _, ok := s.Find("raid"); !ok {
		t.Error("Find(raid) should succeed")
	}
	if _, ok := s.Find("nope"); ok {
		t.Error("Find(nope) should fail")
	}
	if s.LoadedAt().IsZero() {
		t.Error("LoadedAt should be set after a successful reload")
	}
}

func TestStoreKeepsSnapshotOnFailedReload(t *testing.T) {
	path := writeCatalogFile(t, icsBody(
		"BEGIN:VEVENT",
		"UID:raid",
		"DTSTART:20250601T180000Z",
		"DTEND:20250601T210000Z",
		"END:VEVENT",
	))

	s := NewStore(path)
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	// Corrupt the file: the reload must fail but the previous snapshot stays.
	if err := os.WriteFile(path, []byte("not an ics file"), 0o600); err != nil {
		t.Fatalf("corrupt catalog file: %v", err)
	}
	if err := s.Reload(); err == nil {
		t.Fatal("Reload of corrupt file should fail")
	}
	if len(s.Events()) != 1 {
		t.Errorf("events = %d after failed reload, want previous snapshot of 1", len(s.Events()))
	}
}

func TestStoreMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.ics"))
	if err := s.Reload(); err == nil {
		t.Error("Reload of missing file should fail")
	}

	if err := NewStore("").Reload(); err == nil {
		t.Error("Reload with empty path should fail")
	}
}
