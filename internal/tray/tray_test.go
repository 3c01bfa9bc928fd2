package tray

import "testing"

func TestNew_DefaultsEnabled(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Error("expected a new Tray to default to enabled")
	}
}

func TestHandleToggle_FlipsStateAndInvokesCallback(t *testing.T) {
	tr := New()

	var got []bool
	tr.OnToggle(func(enabled bool) {
		got = append(got, enabled)
	})

	tr.handleToggle()
	if tr.IsEnabled() {
		t.Error("expected state to flip to disabled after first toggle")
	}

	tr.handleToggle()
	if !tr.IsEnabled() {
		t.Error("expected state to flip back to enabled after second toggle")
	}

	if len(got) != 2 || got[0] != false || got[1] != true {
		t.Errorf("expected callback sequence [false true], got %v", got)
	}
}

func TestHandleToggle_NoCallbackRegistered(t *testing.T) {
	tr := New()
	// Before Run()/onReady(), menuToggle is nil; handleToggle must not panic.
	tr.handleToggle()
	if tr.IsEnabled() {
		t.Error("expected state to flip to disabled")
	}
}

func TestSetLastGesture_NoMenuItem(t *testing.T) {
	tr := New()
	// menuLastGesture is nil before Run()/onReady(); SetLastGesture must be a no-op, not a panic.
	tr.SetLastGesture("OPEN_PALM")
}

func TestSetStats_NoMenuItem(t *testing.T) {
	tr := New()
	// menuStats is nil before Run()/onReady(); SetStats must be a no-op, not a panic.
	tr.SetStats(2, 3)
}

func TestHandleSettings_InvokesCallback(t *testing.T) {
	tr := New()
	called := false
	tr.OnSettings(func() { called = true })
	tr.handleSettings()
	if !called {
		t.Error("expected settings callback to be invoked")
	}
}

func TestHandleSettings_NoCallbackRegistered(t *testing.T) {
	tr := New()
	tr.handleSettings() // must not panic
}
