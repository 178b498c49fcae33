package shader

import (
	"strings"
	"testing"
)

func TestPreprocess(t *testing.T) {
	source := "a\n#ifdef FOO\nfoo\n#else\nnot-foo\n#endif\n#ifndef BAR\nno-bar\n#endif\nz\n"

	tests := []struct {
		name string
		defs []string
		want []string
		omit []string
	}{
		{
			name: "no defs",
			defs: nil,
			want: []string{"a", "not-foo", "no-bar", "z"},
			omit: []string{"\nfoo\n", "#"},
		},
		{
			name: "foo defined",
			defs: []string{"FOO"},
			want: []string{"a", "foo", "no-bar", "z"},
			omit: []string{"not-foo"},
		},
		{
			name: "foo and bar defined",
			defs: []string{"FOO", "BAR"},
			want: []string{"a", "foo", "z"},
			omit: []string{"not-foo", "no-bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Preprocess(source, tt.defs)
			if err != nil {
				t.Fatalf("Preprocess: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
			for _, o := range tt.omit {
				if strings.Contains(got, o) {
					t.Errorf("output should not contain %q:\n%s", o, got)
				}
			}
		})
	}
}

func TestPreprocessNested(t *testing.T) {
	source := "#ifdef A\n#ifdef B\nab\n#else\na-only\n#endif\n#endif\n"

	got, err := Preprocess(source, []string{"A"})
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if !strings.Contains(got, "a-only") || strings.Contains(got, "ab\n") {
		t.Errorf("nested else mishandled:\n%s", got)
	}

	got, err = Preprocess(source, []string{"A", "B"})
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if !strings.Contains(got, "ab") || strings.Contains(got, "a-only") {
		t.Errorf("nested ifdef mishandled:\n%s", got)
	}

	got, err = Preprocess(source, []string{"B"})
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if strings.Contains(got, "ab") || strings.Contains(got, "a-only") {
		t.Errorf("outer guard mishandled:\n%s", got)
	}
}

func TestPreprocessErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unterminated", "#ifdef A\nbody\n"},
		{"stray else", "#else\n"},
		{"stray endif", "#endif\n"},
		{"unknown directive", "#define A\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Preprocess(tt.source, nil); err == nil {
				t.Errorf("expected error for %q", tt.source)
			}
		})
	}
}

func TestDefaultMesh2DEntryPoints(t *testing.T) {
	s := DefaultMesh2D()
	if got := s.EntryPoint(StageVertex); got != "vs_main" {
		t.Errorf("vertex entry = %q, want vs_main", got)
	}
	if got := s.EntryPoint(StageFragment); got != "fs_main" {
		t.Errorf("fragment entry = %q, want fs_main", got)
	}
}

func TestDefaultMesh2DPreprocesses(t *testing.T) {
	s := DefaultMesh2D()
	for _, defs := range [][]string{
		nil,
		{"TONEMAP_IN_SHADER", "TONEMAP_METHOD_REINHARD"},
		{"TONEMAP_IN_SHADER", "DEBAND_DITHER"},
		{"BLEND_ALPHA"},
	} {
		desc, err := s.ModuleDescriptor(defs)
		if err != nil {
			t.Fatalf("ModuleDescriptor(%v): %v", defs, err)
		}
		if strings.Contains(desc.WGSLDescriptor.Code, "#") {
			t.Errorf("defs %v: directives left in output", defs)
		}
	}
}
