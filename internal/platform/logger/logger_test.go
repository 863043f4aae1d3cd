package logger

import "testing"

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "production", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q) error = %v", mode, err)
		}
		l.Info("hello", "mode", mode)
		child := l.With("component", "test")
		if child == nil || child.SugaredLogger == nil {
			t.Fatalf("With() returned nil logger for mode %q", mode)
		}
	}
}

func TestNop_DiscardsWithoutPanic(t *testing.T) {
	l := Nop()
	l.Debug("d")
	l.Warn("w", "k", 1)
	l.Error("e", "err", "boom")
	l.Sync()
}
