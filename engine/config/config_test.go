package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseAppliesDefaults(t *testing.T) {
	s, err := Parse([]byte("hdr: true\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !s.HDR {
		t.Error("expected hdr to be set")
	}
	if s.MSAASamples != 4 {
		t.Errorf("msaa_samples = %d, want default 4", s.MSAASamples)
	}
	if s.PresentMode != "uncapped" {
		t.Errorf("present_mode = %q, want default uncapped", s.PresentMode)
	}
	if s.QueueWorkers < 1 {
		t.Errorf("queue_workers = %d, want >= 1", s.QueueWorkers)
	}
}

func TestParseFullDocument(t *testing.T) {
	doc := `msaa_samples: 8
present_mode: vsync
hdr: true
tonemapping: tony_mc_mapface
deband_dither: true
watch_shaders: true
shader_dirs:
  - shaders
queue_workers: 3
`
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.MSAASamples != 8 || s.PresentMode != "vsync" || !s.HDR {
		t.Errorf("unexpected settings: %+v", s)
	}
	if s.Tonemapping != "tony_mc_mapface" || !s.DebandDither {
		t.Errorf("unexpected tonemap settings: %+v", s)
	}
	if !s.WatchShaders || len(s.ShaderDirs) != 1 || s.ShaderDirs[0] != "shaders" {
		t.Errorf("unexpected watcher settings: %+v", s)
	}
	if s.QueueWorkers != 3 {
		t.Errorf("queue_workers = %d, want 3", s.QueueWorkers)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad msaa":         "msaa_samples: 3\n",
		"bad present mode": "present_mode: triple_buffer\n",
		"bad yaml":         ": not yaml\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.yaml")
	if err := os.WriteFile(path, []byte("present_mode: vsync\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.PresentMode != "vsync" {
		t.Errorf("present_mode = %q, want vsync", s.PresentMode)
	}
}
