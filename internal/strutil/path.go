package strutil

import "strings"

// SplitPath splits the path into segments, skipping empty ones.
func SplitPath(path string) []string {
	var segments []string
	for len(path) > 0 {
		var segment string
		segment, path, _ = strings.Cut(path, "/")
		if len(segment) > 0 {
			segments = append(segments, segment)
		}
	}

	return segments
}
