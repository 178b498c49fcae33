// Package config loads engine render settings from YAML files.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// RenderSettings holds the user-tunable rendering configuration applied at
// engine startup. Zero values fall back to the defaults from Default().
type RenderSettings struct {
	// MSAASamples is the multisample count for the main render pass (1, 2, 4, or 8).
	MSAASamples uint32 `yaml:"msaa_samples"`

	// PresentMode selects frame delivery: "vsync" or "uncapped".
	PresentMode string `yaml:"present_mode"`

	// HDR enables high-dynamic-range views. HDR views tonemap in a later
	// pass, so in-shader tonemapping is suppressed for them.
	HDR bool `yaml:"hdr"`

	// Tonemapping names the tonemapping method for non-HDR views: "none",
	// "reinhard", "reinhard_luminance", "aces_fitted", "agx",
	// "somewhat_boring_display_transform", "tony_mc_mapface", or
	// "blender_filmic". Empty disables in-shader tonemapping entirely.
	Tonemapping string `yaml:"tonemapping"`

	// DebandDither enables dithering to hide banding after tonemapping.
	DebandDither bool `yaml:"deband_dither"`

	// WatchShaders enables the fsnotify shader hot-reload watcher.
	WatchShaders bool `yaml:"watch_shaders"`

	// ShaderDirs lists the directories watched for shader changes.
	ShaderDirs []string `yaml:"shader_dirs"`

	// QueueWorkers is the worker count for the parallel per-view queue
	// stage. Zero means NumCPU-1.
	QueueWorkers int `yaml:"queue_workers"`
}

// Default returns the settings used when no config file is present.
func Default() RenderSettings {
	return RenderSettings{
		MSAASamples:  4,
		PresentMode:  "uncapped",
		Tonemapping:  "none",
		QueueWorkers: max(runtime.NumCPU()-1, 1),
	}
}

// Load reads and parses a RenderSettings YAML file, filling unset fields
// with defaults.
//
// Parameters:
//   - path: the YAML file to read
//
// Returns:
//   - RenderSettings: the parsed settings with defaults applied
//   - error: an error if the file cannot be read or parsed
func Load(path string) (RenderSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RenderSettings{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses RenderSettings from raw YAML bytes, filling unset fields
// with defaults.
//
// Parameters:
//   - data: the raw YAML document
//
// Returns:
//   - RenderSettings: the parsed settings with defaults applied
//   - error: an error if the document cannot be parsed or a value is invalid
func Parse(data []byte) (RenderSettings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return RenderSettings{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	switch s.MSAASamples {
	case 1, 2, 4, 8:
	default:
		return RenderSettings{}, fmt.Errorf("config: invalid msaa_samples %d (want 1, 2, 4, or 8)", s.MSAASamples)
	}
	switch s.PresentMode {
	case "vsync", "uncapped":
	default:
		return RenderSettings{}, fmt.Errorf("config: invalid present_mode %q", s.PresentMode)
	}
	if s.QueueWorkers <= 0 {
		s.QueueWorkers = max(runtime.NumCPU()-1, 1)
	}
	return s, nil
}
