package archive

import (
	"testing"

	"github.com/spectre-ops/spectre/internal/core"
	"github.com/spectre-ops/spectre/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open("")
	if err != nil {
		t.Fatalf("opening state db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn)
}

func TestAttachAndList(t *testing.T) {
	store := setupStore(t)

	img, err := store.Attach(core.SubjectMission, "m1", core.ImageSatellite, "data:image/png;base64,AAAA", "38.8977,-77.0365")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if img.ContentHash == "" {
		t.Error("expected content hash")
	}

	images, err := store.BySubject(core.SubjectMission, "m1")
	if err != nil {
		t.Fatalf("by subject: %v", err)
	}
	if len(images) != 1 || images[0].ID != img.ID {
		t.Errorf("imagery not listed: %+v", images)
	}

	// Other subjects see nothing.
	images, _ = store.BySubject(core.SubjectPOI, "m1")
	if len(images) != 0 {
		t.Errorf("expected no imagery for other subject, got %d", len(images))
	}
}

func TestIdenticalPayloadsShareContentHash(t *testing.T) {
	store := setupStore(t)

	a, _ := store.Attach(core.SubjectPOI, "p1", core.ImageFacialAging, "data:image/png;base64,BBBB", "")
	b, _ := store.Attach(core.SubjectPOI, "p1", core.ImageFacialAging, "data:image/png;base64,BBBB", "")

	if a.ContentHash != b.ContentHash {
		t.Error("identical payloads should hash identically")
	}
	if a.ID == b.ID {
		t.Error("records should still be distinct")
	}
}

func TestPurgeRemovesSubjectImagery(t *testing.T) {
	store := setupStore(t)

	store.Attach(core.SubjectPOI, "p1", core.ImageDrone, "data:image/png;base64,CCCC", "")
	store.Attach(core.SubjectPOI, "p1", core.ImageThermal, "data:image/png;base64,DDDD", "")
	store.Attach(core.SubjectPOI, "p2", core.ImageDrone, "data:image/png;base64,EEEE", "")

	n, err := store.Purge(core.SubjectPOI, "p1")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 purged, got %d", n)
	}

	remaining, _ := store.BySubject(core.SubjectPOI, "p2")
	if len(remaining) != 1 {
		t.Errorf("unrelated imagery must survive, got %d", len(remaining))
	}
}

func TestAttachRejectsEmptyPayload(t *testing.T) {
	store := setupStore(t)
	if _, err := store.Attach(core.SubjectPOI, "p1", core.ImageDrone, "", ""); err == nil {
		t.Error("expected empty payload to be rejected")
	}
}
