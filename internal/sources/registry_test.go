package sources

import (
	"context"
	"errors"
	"testing"

	"newsbrief/internal/news"
)

type stubSource struct {
	desc  Descriptor
	items []news.Item
}

func (s *stubSource) Descriptor() Descriptor { return s.desc }

func (s *stubSource) Fetch(ctx context.Context, limit int) ([]news.Item, error) {
	if limit < len(s.items) {
		return s.items[:limit], nil
	}
	return s.items, nil
}

func newStub(name string, enabled bool) *stubSource {
	return &stubSource{desc: Descriptor{Name: name, Kind: KindAPI, Enabled: enabled}}
}

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newStub("A", true).Descriptor(), newStub("A", true)); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	err := r.Register(newStub("A", true).Descriptor(), newStub("A", true))
	var dup *news.DuplicateSourceError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSourceError, got %v", err)
	}
	if dup.Name != "A" {
		t.Errorf("expected duplicate name A, got %q", dup.Name)
	}
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"C", "A", "B"} {
		s := newStub(name, true)
		if err := r.Register(s.Descriptor(), s); err != nil {
			t.Fatal(err)
		}
	}

	descs := r.List(All)
	got := []string{descs[0].Name, descs[1].Name, descs[2].Name}
	want := []string{"C", "A", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("registration order not preserved: got %v, want %v", got, want)
		}
	}
}

func TestListFiltersDisabledSources(t *testing.T) {
	r := NewRegistry()
	enabled := newStub("On", true)
	disabled := newStub("Off", false)
	if err := r.Register(enabled.Descriptor(), enabled); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(disabled.Descriptor(), disabled); err != nil {
		t.Fatal(err)
	}

	descs := r.List(Enabled)
	if len(descs) != 1 || descs[0].Name != "On" {
		t.Errorf("expected only the enabled source, got %v", descs)
	}

	if len(r.List(All)) != 2 {
		t.Error("All filter should include disabled sources")
	}
}

func TestResolveReportsEveryUnknownName(t *testing.T) {
	r := NewRegistry()
	s := newStub("Known", true)
	if err := r.Register(s.Descriptor(), s); err != nil {
		t.Fatal(err)
	}

	_, err := r.Resolve([]string{"Unknown", "Known", "AlsoUnknown"})
	var unknown *news.UnknownSourceError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSourceError, got %v", err)
	}
	if len(unknown.Names) != 2 {
		t.Errorf("expected both unknown names reported, got %v", unknown.Names)
	}
}

func TestResolveEmptySelectionIsValid(t *testing.T) {
	r := NewRegistry()
	s := newStub("Known", true)
	if err := r.Register(s.Descriptor(), s); err != nil {
		t.Fatal(err)
	}

	srcs, err := r.Resolve(nil)
	if err != nil {
		t.Fatalf("empty selection must not be an error: %v", err)
	}
	if len(srcs) != 0 {
		t.Errorf("empty selection should resolve to no sources, got %d", len(srcs))
	}
}

func TestResolveReturnsRegistryOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"First", "Second", "Third"} {
		s := newStub(name, true)
		if err := r.Register(s.Descriptor(), s); err != nil {
			t.Fatal(err)
		}
	}

	srcs, err := r.Resolve([]string{"Third", "First"})
	if err != nil {
		t.Fatal(err)
	}
	if len(srcs) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(srcs))
	}
	if srcs[0].Descriptor().Name != "First" || srcs[1].Descriptor().Name != "Third" {
		t.Errorf("resolve should return registry order, got %s, %s",
			srcs[0].Descriptor().Name, srcs[1].Descriptor().Name)
	}
}
