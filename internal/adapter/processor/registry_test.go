package processor

import (
	"context"
	"testing"

	"github.com/cwygoda/recipequeue/internal/domain"
)

type mockExtractor struct {
	name string
}

func (m *mockExtractor) Name() string                                       { return m.name }
func (m *mockExtractor) Extract(ctx context.Context, job domain.Job) error { return nil }

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()

	video := &mockExtractor{name: "video"}
	images := &mockExtractor{name: "images"}
	r.Register(domain.KindVideo, video)
	r.Register(domain.KindImageBatch, images)

	tests := []struct {
		kind     domain.Kind
		wantName string
	}{
		{domain.KindVideo, "video"},
		{domain.KindImageBatch, "images"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := r.Lookup(tt.kind)
			if e == nil {
				t.Fatal("Lookup() returned nil")
			}
			if e.Name() != tt.wantName {
				t.Errorf("Lookup() name = %q, want %q", e.Name(), tt.wantName)
			}
		})
	}
}

func TestRegistry_Register_Replaces(t *testing.T) {
	r := NewRegistry()
	r.Register(domain.KindVideo, &mockExtractor{name: "old"})
	r.Register(domain.KindVideo, &mockExtractor{name: "new"})

	if got := r.Lookup(domain.KindVideo).Name(); got != "new" {
		t.Errorf("Lookup() name = %q, want %q", got, "new")
	}
}

func TestRegistry_Empty(t *testing.T) {
	r := NewRegistry()

	if e := r.Lookup(domain.KindVideo); e != nil {
		t.Errorf("Lookup() = %v, want nil", e)
	}
}
