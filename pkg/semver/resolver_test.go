package semver

import (
	"testing"
)

var published = []string{
	"3.4.2",
	"3.3.0",
	"3.2.1",
	"2.1.0",
	"2.0.0",
	"1.0.0",
	"3.5.0-alpha.1",
	"not-a-version",
}

func TestResolveVersion(t *testing.T) {
	tests := []struct {
		name    string
		rng     string
		want    string
		wantErr bool
	}{
		{name: "no range picks latest stable", rng: "", want: "3.4.2"},
		{name: "major only", rng: "2", want: "2.1.0"},
		{name: "missing major", rng: "9", wantErr: true},
		{name: "caret range", rng: "^3.2.0", want: "3.4.2"},
		{name: "tilde range", rng: "~3.3.0", want: "3.3.0"},
		{name: "comparison range", rng: ">=2.0.0 <3.0.0", want: "2.1.0"},
		{name: "exact version", rng: "3.2.1", want: "3.2.1"},
		{name: "explicit prerelease", rng: "3.5.0-alpha.1", want: "3.5.0-alpha.1"},
		{name: "unsatisfiable", rng: "^4.0.0", wantErr: true},
		{name: "garbage range", rng: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveVersion(published, tt.rng)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("semver:resolver_test - expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("semver:resolver_test - unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.String())
			}
		})
	}
}

func TestResolveVersion_OnlyPrerelease(t *testing.T) {
	got, err := ResolveVersion([]string{"1.0.0-beta.1", "1.0.0-beta.2"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "1.0.0-beta.2" {
		t.Errorf("expected 1.0.0-beta.2, got %s", got)
	}
}

func TestResolveVersion_NothingPublished(t *testing.T) {
	if _, err := ResolveVersion(nil, ""); err == nil {
		t.Error("expected error for empty version list")
	}
}

func TestGetUniqueMajors(t *testing.T) {
	majors := GetUniqueMajors(published)
	want := []int{3, 2, 1}
	if len(majors) != len(want) {
		t.Fatalf("expected %v, got %v", want, majors)
	}
	for i := range want {
		if majors[i] != want[i] {
			t.Errorf("majors[%d] = %d, want %d", i, majors[i], want[i])
		}
	}
}

func TestSatisfiesRange(t *testing.T) {
	tests := []struct {
		version string
		rng     string
		want    bool
	}{
		{"3.4.2", "^3.0.0", true},
		{"3.4.2", "~3.3.0", false},
		{"3.4.2", "3", true},
		{"2.1.0", "3", false},
		{"2.1.0", ">=2.0.0", true},
		{"bad", "^1.0.0", false},
		{"1.0.0", "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.version+" "+tt.rng, func(t *testing.T) {
			if got := SatisfiesRange(tt.version, tt.rng); got != tt.want {
				t.Errorf("SatisfiesRange(%q, %q) = %v, want %v", tt.version, tt.rng, got, tt.want)
			}
		})
	}
}
