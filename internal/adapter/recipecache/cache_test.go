package recipecache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cwygoda/recipequeue/internal/adapter/api"
	"github.com/cwygoda/recipequeue/internal/domain"
)

type mockFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockFetcher) FetchRecipes(ctx context.Context) ([]api.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []api.Recipe{{ID: int64(m.calls), Name: "Pasta"}}, nil
}

func TestCache_ReadThrough(t *testing.T) {
	f := &mockFetcher{}
	c := New(f, nil)
	ctx := context.Background()

	first, err := c.Recipes(ctx)
	if err != nil {
		t.Fatalf("Recipes() error = %v", err)
	}
	second, _ := c.Recipes(ctx)

	if f.calls != 1 {
		t.Errorf("fetches = %d, want 1", f.calls)
	}
	if first[0].ID != second[0].ID {
		t.Errorf("second read = %d, want cached %d", second[0].ID, first[0].ID)
	}
}

func TestCache_Invalidate(t *testing.T) {
	f := &mockFetcher{}
	c := New(f, nil)
	ctx := context.Background()

	c.Recipes(ctx)
	if err := c.Invalidate(ctx, domain.RecipesTag); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	got, _ := c.Recipes(ctx)

	if f.calls != 2 {
		t.Errorf("fetches = %d, want 2", f.calls)
	}
	if got[0].ID != 2 {
		t.Errorf("recipe id = %d, want fresh 2", got[0].ID)
	}
	if v := c.Version(domain.RecipesTag); v != 1 {
		t.Errorf("Version() = %d, want 1", v)
	}
}

func TestCache_OtherTagKeepsRecipes(t *testing.T) {
	f := &mockFetcher{}
	c := New(f, nil)
	ctx := context.Background()

	c.Recipes(ctx)
	c.Invalidate(ctx, "ingredients")
	c.Recipes(ctx)

	if f.calls != 1 {
		t.Errorf("fetches = %d, want 1", f.calls)
	}
	if v := c.Version("ingredients"); v != 1 {
		t.Errorf("Version(ingredients) = %d, want 1", v)
	}
}

func TestCache_ErrorNotCached(t *testing.T) {
	f := &mockFetcher{err: errors.New("offline")}
	c := New(f, nil)
	ctx := context.Background()

	if _, err := c.Recipes(ctx); err == nil {
		t.Fatal("Recipes() error = nil, want error")
	}
	f.err = nil
	if _, err := c.Recipes(ctx); err != nil {
		t.Fatalf("Recipes() error = %v", err)
	}
	if f.calls != 2 {
		t.Errorf("fetches = %d, want 2", f.calls)
	}
}
