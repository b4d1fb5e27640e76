package hooks

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFireRunsHandlersInOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	r.On(AfterSaveItem, func(ctx context.Context, payload any) error {
		order = append(order, "first:"+payload.(string))
		return nil
	})
	r.On(AfterSaveItem, func(ctx context.Context, payload any) error {
		order = append(order, "second:"+payload.(string))
		return nil
	})

	if err := r.Fire(context.Background(), AfterSaveItem, "x"); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if strings.Join(order, ",") != "first:x,second:x" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestFireJoinsErrorsAndKeepsGoing(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	ran := false
	r.On(Install, func(ctx context.Context, payload any) error { return boom })
	r.On(Install, func(ctx context.Context, payload any) error {
		ran = true
		return nil
	})

	err := r.Fire(context.Background(), Install, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "install: ") {
		t.Fatalf("expected hook name prefix, got %q", err.Error())
	}
	if !ran {
		t.Fatalf("second handler did not run")
	}
}

func TestFireUnknownHookIsNoop(t *testing.T) {
	r := NewRegistry()
	if err := r.Fire(context.Background(), "nothing", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if r.Handlers("nothing") != 0 {
		t.Fatalf("expected no handlers")
	}
}

func TestApplyFilterChains(t *testing.T) {
	r := NewRegistry()
	name := FilterName("Display", "Item", "PDF Search", "Text")
	if name != "Display/Item/PDF Search/Text" {
		t.Fatalf("unexpected filter name %q", name)
	}
	r.AddFilter(name, func(v string, args FilterArgs) string { return strings.ToUpper(v) })
	r.AddFilter(name, func(v string, args FilterArgs) string {
		if !args.Admin {
			return ""
		}
		return v + "!"
	})

	if got := r.ApplyFilter(name, "text", FilterArgs{Admin: true}); got != "TEXT!" {
		t.Fatalf("admin: got %q", got)
	}
	if got := r.ApplyFilter(name, "text", FilterArgs{}); got != "" {
		t.Fatalf("public: got %q", got)
	}
	if got := r.ApplyFilter("Display/Item/Dublin Core/Title", "keep", FilterArgs{}); got != "keep" {
		t.Fatalf("unfiltered: got %q", got)
	}
}
