// Package shader loads and caches WGSL shader sources for the 2D render
// pipeline. Materials reference shaders through a Ref, which either defers to
// the engine default mesh shader or names a concrete source by path or handle.
package shader

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed mesh2d.wgsl
var mesh2dSource string

// Stage identifies a render shader stage.
type Stage int

const (
	// StageVertex is the vertex stage of a render pipeline.
	StageVertex Stage = iota

	// StageFragment is the fragment stage of a render pipeline.
	StageFragment
)

// Shader is a loaded WGSL shader module source. A single Shader may carry
// both a vertex and a fragment entry point.
type Shader struct {
	key    string
	path   string
	source string

	vertexEntry   string
	fragmentEntry string
}

// New creates a Shader from in-memory WGSL source.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and labels
//   - source: the WGSL source code
//
// Returns:
//   - *Shader: the shader with entry points parsed from the source
func New(key, source string) *Shader {
	return &Shader{
		key:           key,
		source:        source,
		vertexEntry:   parseEntryPoint(source, "@vertex"),
		fragmentEntry: parseEntryPoint(source, "@fragment"),
	}
}

// Load reads a Shader from a WGSL file on disk. The file path doubles as the
// shader key.
//
// Parameters:
//   - path: the WGSL source file to read
//
// Returns:
//   - *Shader: the loaded shader
//   - error: an error if the file cannot be read
func Load(path string) (*Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader: read %s: %w", path, err)
	}
	s := New(path, string(data))
	s.path = path
	return s, nil
}

// Key returns the shader's unique identifier.
func (s *Shader) Key() string {
	return s.key
}

// Path returns the source file path, or empty for in-memory shaders.
func (s *Shader) Path() string {
	return s.path
}

// Source returns the raw WGSL source before preprocessing.
func (s *Shader) Source() string {
	return s.source
}

// EntryPoint returns the entry point function name for the given stage, or
// an empty string if the source declares no such stage.
//
// Parameters:
//   - stage: the render stage to look up
//
// Returns:
//   - string: the entry point name, or ""
func (s *Shader) EntryPoint(stage Stage) string {
	if stage == StageVertex {
		return s.vertexEntry
	}
	return s.fragmentEntry
}

// ModuleDescriptor builds the wgpu shader module descriptor for this shader
// with the given preprocessor defines applied.
//
// Parameters:
//   - defs: preprocessor define names enabling #ifdef blocks
//
// Returns:
//   - *wgpu.ShaderModuleDescriptor: the descriptor with preprocessed source
//   - error: an error if preprocessing fails
func (s *Shader) ModuleDescriptor(defs []string) (*wgpu.ShaderModuleDescriptor, error) {
	src, err := Preprocess(s.source, defs)
	if err != nil {
		return nil, fmt.Errorf("shader: preprocess %s: %w", s.key, err)
	}
	return &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: src,
		},
	}, nil
}

// parseEntryPoint scans the source for the first function declared after the
// given stage attribute and returns its name. WGSL entry points look like:
//
//	@vertex
//	fn vs_main(...) -> ...
func parseEntryPoint(source, attribute string) string {
	idx := strings.Index(source, attribute)
	if idx < 0 {
		return ""
	}
	rest := source[idx+len(attribute):]
	fnIdx := strings.Index(rest, "fn ")
	if fnIdx < 0 {
		return ""
	}
	rest = rest[fnIdx+len("fn "):]
	end := strings.IndexAny(rest, "( \t\n")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// defaultMesh2d is the engine default shader, created once on first use.
var (
	defaultMesh2dOnce sync.Once
	defaultMesh2d     *Shader
)

// DefaultMesh2D returns the engine's built-in 2D mesh shader, used when a
// material's shader Ref is the default.
func DefaultMesh2D() *Shader {
	defaultMesh2dOnce.Do(func() {
		defaultMesh2d = New("tessera/mesh2d.wgsl", mesh2dSource)
	})
	return defaultMesh2d
}

// RefKind discriminates the variants of a shader Ref.
type RefKind int

const (
	// RefDefault defers to the engine default mesh shader.
	RefDefault RefKind = iota

	// RefPath names a shader by source file path, resolved through a Library.
	RefPath

	// RefHandle carries an already-loaded shader.
	RefHandle
)

// Ref is a material's reference to a shader: the engine default, a source
// path, or a concrete handle.
type Ref struct {
	kind   RefKind
	path   string
	handle *Shader
}

// DefaultRef returns a Ref deferring to the engine default mesh shader.
func DefaultRef() Ref {
	return Ref{kind: RefDefault}
}

// PathRef returns a Ref naming a shader source file.
func PathRef(path string) Ref {
	return Ref{kind: RefPath, path: path}
}

// HandleRef returns a Ref carrying an already-loaded shader.
func HandleRef(s *Shader) Ref {
	return Ref{kind: RefHandle, handle: s}
}

// Kind returns the variant of this Ref.
func (r Ref) Kind() RefKind {
	return r.kind
}

// IsDefault reports whether this Ref defers to the engine default shader.
func (r Ref) IsDefault() bool {
	return r.kind == RefDefault
}

// Resolve returns the concrete shader for this Ref, loading path refs
// through the given library. Default refs resolve to nil so callers keep
// the base pipeline's shader stage.
//
// Parameters:
//   - lib: the library used to resolve path refs (may be nil for non-path refs)
//
// Returns:
//   - *Shader: the resolved shader, or nil for a default Ref
//   - error: an error if a path Ref cannot be loaded
func (r Ref) Resolve(lib *Library) (*Shader, error) {
	switch r.kind {
	case RefDefault:
		return nil, nil
	case RefHandle:
		return r.handle, nil
	case RefPath:
		if lib == nil {
			return nil, fmt.Errorf("shader: path ref %q requires a library", r.path)
		}
		return lib.Load(r.path)
	default:
		return nil, fmt.Errorf("shader: unknown ref kind %d", r.kind)
	}
}

// Library is a memoizing loader for path-referenced shaders. It is safe for
// concurrent use.
type Library struct {
	mu      sync.RWMutex
	shaders map[string]*Shader
}

// NewLibrary creates an empty shader Library.
func NewLibrary() *Library {
	return &Library{shaders: make(map[string]*Shader)}
}

// Load returns the cached shader for path, reading it from disk on first use.
//
// Parameters:
//   - path: the WGSL source file path
//
// Returns:
//   - *Shader: the loaded shader
//   - error: an error if the file cannot be read
func (l *Library) Load(path string) (*Shader, error) {
	l.mu.RLock()
	s, ok := l.shaders[path]
	l.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.shaders[path]; ok {
		return existing, nil
	}
	l.shaders[path] = s
	return s, nil
}

// Reload re-reads a shader from disk, replacing the cached entry. Shaders
// not previously loaded are ignored.
//
// Parameters:
//   - path: the WGSL source file path to reload
//
// Returns:
//   - bool: true if a cached shader was replaced
//   - error: an error if the file cannot be re-read
func (l *Library) Reload(path string) (bool, error) {
	l.mu.RLock()
	_, ok := l.shaders[path]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}

	s, err := Load(path)
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	l.shaders[path] = s
	l.mu.Unlock()
	return true, nil
}
