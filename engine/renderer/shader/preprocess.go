package shader

import (
	"fmt"
	"strings"
)

// Preprocess resolves #ifdef/#ifndef/#else/#endif blocks in WGSL source.
// WGSL has no preprocessor of its own, so pipeline specialization uses these
// directives to produce per-key shader variants (tonemapping, dithering,
// blend handling) from a single source file.
//
// Directives must appear alone on a line, optionally indented. Nesting is
// supported. Any other #-directive is an error.
//
// Parameters:
//   - source: the WGSL source containing directives
//   - defs: the define names considered set
//
// Returns:
//   - string: the source with inactive blocks and directive lines removed
//   - error: an error on unbalanced or unknown directives
func Preprocess(source string, defs []string) (string, error) {
	defined := make(map[string]bool, len(defs))
	for _, d := range defs {
		defined[d] = true
	}

	// Each frame on the stack records whether the enclosing block emits
	// lines and whether any branch of the current if-chain has matched.
	type frame struct {
		emitting bool
		matched  bool
	}
	stack := []frame{}
	emitting := true

	var out strings.Builder
	for i, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#ifdef "), strings.HasPrefix(trimmed, "#ifndef "):
			name := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(trimmed, "#ifndef "), "#ifdef "))
			if name == "" {
				return "", fmt.Errorf("line %d: %s missing name", i+1, strings.Fields(trimmed)[0])
			}
			cond := defined[name]
			if strings.HasPrefix(trimmed, "#ifndef ") {
				cond = !cond
			}
			stack = append(stack, frame{emitting: emitting, matched: emitting && cond})
			emitting = emitting && cond

		case trimmed == "#else":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #else without #ifdef", i+1)
			}
			top := &stack[len(stack)-1]
			emitting = top.emitting && !top.matched
			top.matched = top.matched || emitting

		case trimmed == "#endif":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #endif without #ifdef", i+1)
			}
			emitting = stack[len(stack)-1].emitting
			stack = stack[:len(stack)-1]

		case strings.HasPrefix(trimmed, "#"):
			return "", fmt.Errorf("line %d: unknown directive %q", i+1, strings.Fields(trimmed)[0])

		default:
			if emitting {
				out.WriteString(line)
				out.WriteByte('\n')
			}
		}
	}

	if len(stack) != 0 {
		return "", fmt.Errorf("unterminated #ifdef (%d open)", len(stack))
	}
	return out.String(), nil
}
