package database

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"
)

func seededTemplateStore(t *testing.T) *TemplateStore {
	t.Helper()
	store := NewTemplateStore(newTestDB(t))
	if err := store.Seed(context.Background(), SeedCatalog()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func TestTemplateStoreList_OrdersByDownloads(t *testing.T) {
	store := seededTemplateStore(t)

	templates, err := store.List(context.Background(), "", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(templates) != len(SeedCatalog()) {
		t.Fatalf("expected %d templates, got %d", len(SeedCatalog()), len(templates))
	}
	for i := 1; i < len(templates); i++ {
		if templates[i].Downloads > templates[i-1].Downloads {
			t.Fatalf("not sorted by downloads: %d before %d", templates[i-1].Downloads, templates[i].Downloads)
		}
	}
	if templates[0].Name != "Modern Professional" {
		t.Fatalf("expected most downloaded first, got %q", templates[0].Name)
	}
}

func TestTemplateStoreList_CategoryFilterIsCaseInsensitive(t *testing.T) {
	store := seededTemplateStore(t)

	templates, err := store.List(context.Background(), "creative", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("expected 2 creative templates, got %d", len(templates))
	}
	if templates[0].Name != "Creative Edge" || templates[1].Name != "Designer's Choice" {
		t.Fatalf("unexpected order: %q, %q", templates[0].Name, templates[1].Name)
	}
}

func TestTemplateStoreList_QueryMatchesNameSubstring(t *testing.T) {
	store := seededTemplateStore(t)

	templates, err := store.List(context.Background(), "", "MINIMAL")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(templates) != 1 || templates[0].Name != "Classic Minimal" {
		t.Fatalf("unexpected result: %#v", templates)
	}

	none, err := store.List(context.Background(), "", "does-not-exist")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %d", len(none))
	}
}

func TestTemplateStoreSeed_IsIdempotent(t *testing.T) {
	store := seededTemplateStore(t)
	ctx := context.Background()

	if err := store.Seed(ctx, SeedCatalog()); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	var count int64
	if err := store.db.Model(&Template{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != int64(len(SeedCatalog())) {
		t.Fatalf("reseed duplicated rows: %d", count)
	}
}

func TestTemplateStoreGet(t *testing.T) {
	store := seededTemplateStore(t)
	ctx := context.Background()

	templates, err := store.List(ctx, "", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	got, err := store.Get(ctx, templates[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != templates[0].Name {
		t.Fatalf("wrong template: %q", got.Name)
	}

	if _, err := store.Get(ctx, 9999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}
