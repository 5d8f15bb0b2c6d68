package homegraph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hearthd/hearth/internal/homegraph"
)

func TestAdd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("with empty ID generates one", func(t *testing.T) {
		t.Parallel()
		s := homegraph.NewMemStore()
		got, err := s.Add(ctx, homegraph.Device{Name: "tv light", Kind: homegraph.KindLight})
		if err != nil {
			t.Fatalf("Add: unexpected error: %v", err)
		}
		if got.ID == "" {
			t.Fatal("Add: expected generated ID, got empty string")
		}
	})

	t.Run("with explicit ID is preserved", func(t *testing.T) {
		t.Parallel()
		s := homegraph.NewMemStore()
		got, err := s.Add(ctx, homegraph.Device{ID: "light-001", Name: "porch light", Kind: homegraph.KindLight})
		if err != nil {
			t.Fatalf("Add: unexpected error: %v", err)
		}
		if got.ID != "light-001" {
			t.Fatalf("Add: expected ID %q, got %q", "light-001", got.ID)
		}
	})

	t.Run("duplicate ID returns ErrDuplicateID", func(t *testing.T) {
		t.Parallel()
		s := homegraph.NewMemStore()
		d := homegraph.Device{ID: "dup-01", Name: "first", Kind: homegraph.KindSwitch}
		if _, err := s.Add(ctx, d); err != nil {
			t.Fatalf("Add first: unexpected error: %v", err)
		}
		_, err := s.Add(ctx, d)
		if !errors.Is(err, homegraph.ErrDuplicateID) {
			t.Fatalf("Add duplicate: expected ErrDuplicateID, got %v", err)
		}
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := homegraph.NewMemStore()
	added, _ := s.Add(ctx, homegraph.Device{Name: "kitchen light", Kind: homegraph.KindLight, Room: "kitchen"})

	t.Run("existing device", func(t *testing.T) {
		t.Parallel()
		got, err := s.Get(ctx, added.ID)
		if err != nil {
			t.Fatalf("Get: unexpected error: %v", err)
		}
		if got.Name != "kitchen light" {
			t.Fatalf("Get: expected name %q, got %q", "kitchen light", got.Name)
		}
	})

	t.Run("missing device returns ErrNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := s.Get(ctx, "does-not-exist")
		if !errors.Is(err, homegraph.ErrNotFound) {
			t.Fatalf("Get: expected ErrNotFound, got %v", err)
		}
	})
}

func TestList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := homegraph.NewMemStore()
	fixtures := []homegraph.Device{
		{Name: "tv light", Kind: homegraph.KindLight, Room: "living room"},
		{Name: "floor lamp", Kind: homegraph.KindLight, Room: "bedroom"},
		{Name: "movie night", Kind: homegraph.KindScene},
	}
	for _, f := range fixtures {
		if _, err := s.Add(ctx, f); err != nil {
			t.Fatalf("setup Add: %v", err)
		}
	}

	t.Run("no filter returns all", func(t *testing.T) {
		t.Parallel()
		got, err := s.List(ctx, homegraph.ListOptions{})
		if err != nil {
			t.Fatalf("List: unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("List: expected 3 devices, got %d", len(got))
		}
	})

	t.Run("filter by kind", func(t *testing.T) {
		t.Parallel()
		got, err := s.List(ctx, homegraph.ListOptions{Kind: homegraph.KindLight})
		if err != nil {
			t.Fatalf("List: unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("List: expected 2 lights, got %d", len(got))
		}
	})

	t.Run("filter by kind and room", func(t *testing.T) {
		t.Parallel()
		got, err := s.List(ctx, homegraph.ListOptions{Kind: homegraph.KindLight, Room: "bedroom"})
		if err != nil {
			t.Fatalf("List: unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Name != "floor lamp" {
			t.Fatalf("List: expected only the floor lamp, got %+v", got)
		}
	})
}

func TestRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := homegraph.NewMemStore()
	added, _ := s.Add(ctx, homegraph.Device{Name: "heater", Kind: homegraph.KindSwitch})

	if err := s.Remove(ctx, added.ID); err != nil {
		t.Fatalf("Remove: unexpected error: %v", err)
	}
	if err := s.Remove(ctx, added.ID); !errors.Is(err, homegraph.ErrNotFound) {
		t.Fatalf("Remove twice: expected ErrNotFound, got %v", err)
	}
}

func TestBulkImport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := homegraph.NewMemStore()

	n, err := s.BulkImport(ctx, []homegraph.Device{
		{Name: "a", Kind: homegraph.KindLight},
		{Name: "b", Kind: homegraph.KindLight},
	})
	if err != nil {
		t.Fatalf("BulkImport: unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("BulkImport: expected 2 imported, got %d", n)
	}

	t.Run("aborts on duplicate", func(t *testing.T) {
		t.Parallel()
		s := homegraph.NewMemStore()
		n, err := s.BulkImport(ctx, []homegraph.Device{
			{ID: "x", Name: "a", Kind: homegraph.KindLight},
			{ID: "x", Name: "b", Kind: homegraph.KindLight},
		})
		if err == nil {
			t.Fatal("BulkImport: expected error for duplicate ID")
		}
		if n != 1 {
			t.Fatalf("BulkImport: expected 1 imported before abort, got %d", n)
		}
	})
}
