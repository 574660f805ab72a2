package hook

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

// testHook implements Hook + AfterCheck + UserInvalidated.
type testHook struct {
	afterCheckCalled  bool
	invalidatedUserID string
}

func (t *testHook) Name() string { return "test-hook" }

func (t *testHook) OnAfterCheck(_ context.Context, _ string, _, _ any) error {
	t.afterCheckCalled = true
	return nil
}

func (t *testHook) OnUserInvalidated(_ context.Context, userID string) error {
	t.invalidatedUserID = userID
	return nil
}

// minimalHook only implements Hook (no events).
type minimalHook struct{}

func (m *minimalHook) Name() string { return "minimal" }

// failingHook always errors; errors must be swallowed.
type failingHook struct{}

func (f *failingHook) Name() string { return "failing" }

func (f *failingHook) OnCacheFlushed(_ context.Context) error {
	return errors.New("boom")
}

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	th := &testHook{}
	reg.Register(th)
	reg.Register(&minimalHook{})

	if len(reg.Hooks()) != 2 {
		t.Fatalf("expected 2 hooks, got %d", len(reg.Hooks()))
	}

	reg.EmitAfterCheck(ctx, "u1", nil, nil)
	if !th.afterCheckCalled {
		t.Fatal("OnAfterCheck was not called")
	}

	reg.EmitUserInvalidated(ctx, "u1")
	if th.invalidatedUserID != "u1" {
		t.Fatalf("expected u1, got %q", th.invalidatedUserID)
	}

	// Should not panic on events with no listeners.
	reg.EmitBeforeCheck(ctx, "u1", nil)
	reg.EmitCacheFlushed(ctx)
	reg.EmitShutdown(ctx)
}

func TestRegistrySwallowsHookErrors(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.Register(&failingHook{})

	// Must log and continue, not panic or propagate.
	reg.EmitCacheFlushed(context.Background())
}
