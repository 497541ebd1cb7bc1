package commsutil

import "testing"

func TestBuildEventSubject(t *testing.T) {
	tests := []struct {
		name string
		kind string
		want string
	}{
		{"bound", "session.bound", "shell.events.session.bound"},
		{"dispatch", "dispatch", "shell.events.dispatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildEventSubject(tt.kind)
			if got != tt.want {
				t.Errorf("BuildEventSubject(%q) = %q, want %q", tt.kind, got, tt.want)
			}
		})
	}
}

func TestBuildWindowSubject(t *testing.T) {
	tests := []struct {
		name string
		base string
		id   uint64
		want string
	}{
		{"content in", SubjectContentIn, 1, "shell.content.in.w1"},
		{"trailing dot", "shell.content.out.", 42, "shell.content.out.w42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildWindowSubject(tt.base, tt.id)
			if got != tt.want {
				t.Errorf("BuildWindowSubject(%q, %d) = %q, want %q", tt.base, tt.id, got, tt.want)
			}
		})
	}
}
