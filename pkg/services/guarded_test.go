package services

import (
	"errors"
	"strings"
	"testing"
)

func TestGuarded_WithRecoversPanic(t *testing.T) {
	g := NewGuarded("counter", 0)

	err := g.With(func(v *int) error {
		*v = 41
		panic("boom")
	})
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("services:guarded_test - expected PanicError, got %v", err)
	}
	if pe.Service != "counter" || pe.Value != "boom" || len(pe.Stack) == 0 {
		t.Errorf("services:guarded_test - unexpected panic error %+v", pe)
	}
	if !strings.Contains(pe.Error(), "counter") {
		t.Errorf("services:guarded_test - message %q does not name the service", pe.Error())
	}

	if !g.mu.TryLock() {
		t.Fatal("services:guarded_test - lock still held after panic")
	}
	g.mu.Unlock()

	got, err := Read(g, func(v *int) (int, error) {
		*v++
		return *v, nil
	})
	if err != nil || got != 42 {
		t.Errorf("services:guarded_test - Read = %d, %v; want 42 (value kept in place)", got, err)
	}
}

func TestGuarded_WithPassesErrorThrough(t *testing.T) {
	g := NewGuarded("svc", "x")
	want := NewServiceError(CodeInvalidState, "nope")

	err := g.With(func(*string) error { return want })
	if err != want {
		t.Errorf("services:guarded_test - err = %v, want %v", err, want)
	}
}
