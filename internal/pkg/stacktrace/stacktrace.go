// Package stacktrace trims goroutine stack dumps down to the frames that
// belong to this module.
package stacktrace

import "strings"

const marker = "/internal/"

// InternalPaths returns "internal/.../file.go:line" for every frame of stack
// that points into an internal package. Frames are returned innermost first.
func InternalPaths(stack []byte) []string {
	var paths []string

	for line := range strings.Lines(string(stack)) {
		line = strings.TrimSpace(line)

		// file lines look like "/src/app/internal/x/y.go:42 +0x1d"
		file, _, _ := strings.Cut(line, " ")
		if !strings.Contains(file, ".go:") {
			continue
		}

		idx := strings.Index(file, marker)
		if idx == -1 {
			continue
		}

		paths = append(paths, file[idx+1:])
	}

	return paths
}
