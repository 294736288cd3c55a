package prompt

import "testing"

func TestBuild(t *testing.T) {
	got := Build("What is Go?", "Go is a language.\nIt compiles fast.")
	want := "\nAnswer using ONLY the context below.\n\nContext:\n" +
		"Go is a language.\nIt compiles fast.\n\nQuestion:\nWhat is Go?\n"
	if got != want {
		t.Errorf("Build mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestBuild_EmptyContext(t *testing.T) {
	got := Build("q", "")
	want := "\nAnswer using ONLY the context below.\n\nContext:\n\n\nQuestion:\nq\n"
	if got != want {
		t.Errorf("Build mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestJoinContext(t *testing.T) {
	tests := []struct {
		name     string
		passages []string
		want     string
	}{
		{"none", nil, ""},
		{"one", []string{"a"}, "a"},
		{"ordered", []string{"first", "second", "third"}, "first\nsecond\nthird"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := JoinContext(tc.passages); got != tc.want {
				t.Errorf("JoinContext(%v) = %q, want %q", tc.passages, got, tc.want)
			}
		})
	}
}
