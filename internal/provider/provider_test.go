package provider

import (
	"context"
	"testing"
)

type echoProvider struct {
	name      string
	available bool
}

func (e *echoProvider) Name() string                         { return e.name }
func (e *echoProvider) IsAvailable(ctx context.Context) bool { return e.available }

func TestRegistryFactoryLifecycle(t *testing.T) {
	reg := NewRegistry[*echoProvider]()
	reg.RegisterFactory("echo", func(cfg map[string]any) (*echoProvider, error) {
		return &echoProvider{name: "echo", available: true}, nil
	})

	p, err := reg.Create("echo", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Name() != "echo" {
		t.Errorf("expected name echo, got %q", p.Name())
	}

	reg.Set("echo", p)
	cached, ok := reg.Get("echo")
	if !ok || cached != p {
		t.Error("expected cached instance")
	}

	if _, err := reg.Create("missing", nil); err == nil {
		t.Error("expected error for unregistered factory")
	}

	names := reg.List()
	if len(names) != 1 || names[0] != "echo" {
		t.Errorf("unexpected names: %v", names)
	}
}
