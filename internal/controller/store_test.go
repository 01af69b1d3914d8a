package controller

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreAddGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "views.json")
	s := NewStore(path)

	saved, err := s.Add(View{
		Name:  "warmup phase",
		Start: 0, End: 120,
		Kinds:     []string{"compute", "send"},
		Samples:   5000,
		LaneCount: 4,
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if saved.ID == "" {
		t.Error("Add should assign an id")
	}
	if saved.CreatedAt == 0 {
		t.Error("Add should stamp creation time")
	}

	got, ok := s.Get(saved.ID)
	if !ok {
		t.Fatal("Get should find the saved view")
	}
	if got.Name != "warmup phase" || got.End != 120 {
		t.Errorf("Unexpected view: %+v", got)
	}

	if err := s.Delete(saved.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := s.Get(saved.ID); ok {
		t.Error("View should be gone after Delete")
	}
	if err := s.Delete(saved.ID); err != os.ErrNotExist {
		t.Errorf("Deleting a missing view should return os.ErrNotExist, got %v", err)
	}
}

func TestStorePersistsAcrossLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "views.json")

	s := NewStore(path)
	if _, err := s.Add(View{Name: "full trace", Start: 0, End: 1000}); err != nil {
		t.Fatal(err)
	}

	reopened := NewStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	views := reopened.List()
	if len(views) != 1 || views[0].Name != "full trace" {
		t.Errorf("Expected the saved view to survive reload, got %+v", views)
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent.json"))
	if err := s.Load(); err != nil {
		t.Fatalf("Missing file should not be an error, got %v", err)
	}
	if len(s.List()) != 0 {
		t.Error("Expected an empty store")
	}
}
