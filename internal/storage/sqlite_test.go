package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(versions) != 3 {
		t.Fatalf("expected 3 applied migrations, got %v", versions)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	for _, idx := range []string{"idx_interactions_created_at", "idx_interactions_session"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

func TestNoProfileTable(t *testing.T) {
	s := openTestStore(t)

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name LIKE '%profile%'").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("profiles must not be persisted")
	}
}

// TestSaveAndGetInteraction saves an interaction and retrieves it by ID.
func TestSaveAndGetInteraction(t *testing.T) {
	s := openTestStore(t)

	now := time.Date(2026, 3, 1, 10, 30, 0, 123000000, time.UTC)
	in := Interaction{
		ID:           "i1",
		SessionID:    "s1",
		CreatedAt:    now,
		Kind:         KindTurn,
		UserInput:    "I need money for my daughter's education",
		NextQuestion: "What's the purpose of your PF withdrawal?",
		Backend:      "gemini",
		Model:        "gemini-2.0-flash",
		Response:     "You can withdraw up to 50%.",
		Sufficient:   true,
		DurationMs:   842,
	}
	if err := s.SaveInteraction(in); err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}

	got, err := s.GetInteraction("i1")
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}

	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
	got.CreatedAt = now
	in.Status = StatusCompleted
	if got != in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, in)
	}
}

func TestSaveInteraction_Defaults(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveInteraction(Interaction{ID: "d1"}); err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}
	got, err := s.GetInteraction("d1")
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if got.Status != StatusCompleted || got.Kind != KindTurn {
		t.Errorf("defaults not applied: status=%q kind=%q", got.Status, got.Kind)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should default to now")
	}
}

func TestSaveInteraction_RequiresID(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveInteraction(Interaction{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestSaveInteraction_Failed(t *testing.T) {
	s := openTestStore(t)

	err := s.SaveInteraction(Interaction{ID: "f1", Status: StatusFailed, Error: "quota exceeded"})
	if err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}
	got, _ := s.GetInteraction("f1")
	if got.Status != StatusFailed || got.Error != "quota exceeded" {
		t.Errorf("got status=%q error=%q", got.Status, got.Error)
	}
}

func TestGetInteractionNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetInteraction("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateFeedback(t *testing.T) {
	s := openTestStore(t)
	s.SaveInteraction(Interaction{ID: "fb1"})

	if err := s.UpdateFeedback("fb1", 1, "clear answer"); err != nil {
		t.Fatalf("UpdateFeedback: %v", err)
	}
	got, _ := s.GetInteraction("fb1")
	if got.FeedbackScore != 1 || got.FeedbackNotes != "clear answer" {
		t.Errorf("feedback = %d %q", got.FeedbackScore, got.FeedbackNotes)
	}

	if err := s.UpdateFeedback("missing", 1, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteInteraction(t *testing.T) {
	s := openTestStore(t)
	s.SaveInteraction(Interaction{ID: "del1"})

	if err := s.DeleteInteraction("del1"); err != nil {
		t.Fatalf("DeleteInteraction: %v", err)
	}
	if _, err := s.GetInteraction("del1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("interaction still present: %v", err)
	}
	if err := s.DeleteInteraction("del1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestListInteractions_NewestFirstWithPaging(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		// Sub-second offsets guard the fixed-width timestamp ordering.
		err := s.SaveInteraction(Interaction{
			ID:        fmt.Sprintf("i%d", i),
			CreatedAt: base.Add(time.Duration(i) * 100 * time.Millisecond),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	page, err := s.ListInteractions(2, 0)
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(page) != 2 || page[0].ID != "i4" || page[1].ID != "i3" {
		t.Errorf("first page = %v", ids(page))
	}

	page, err = s.ListInteractions(2, 4)
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(page) != 1 || page[0].ID != "i0" {
		t.Errorf("last page = %v", ids(page))
	}

	n, err := s.CountInteractions()
	if err != nil || n != 5 {
		t.Errorf("CountInteractions = %d, %v", n, err)
	}
}

func TestListSessionInteractions(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SaveInteraction(Interaction{ID: "a2", SessionID: "a", CreatedAt: base.Add(2 * time.Second)})
	s.SaveInteraction(Interaction{ID: "b1", SessionID: "b", CreatedAt: base.Add(time.Second)})
	s.SaveInteraction(Interaction{ID: "a1", SessionID: "a", CreatedAt: base})

	got, err := s.ListSessionInteractions("a", 10)
	if err != nil {
		t.Fatalf("ListSessionInteractions: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a2" {
		t.Errorf("session a = %v, want [a1 a2]", ids(got))
	}
}

func ids(list []Interaction) []string {
	out := make([]string, len(list))
	for i, it := range list {
		out[i] = it.ID
	}
	return out
}
