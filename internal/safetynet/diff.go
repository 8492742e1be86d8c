package safetynet

import (
	"fmt"
	"strings"
)

// writeFileDiff appends a minimal line diff for one path: snapshot
// lines that changed prefixed with "-", current lines with "+".
// Unchanged leading and trailing lines are trimmed; this is a
// readability aid for the undo window, not a patch format.
func writeFileDiff(b *strings.Builder, path string, old []byte, oldExists bool, cur []byte, curExists bool) {
	fmt.Fprintf(b, "--- %s (snapshot)\n", path)
	fmt.Fprintf(b, "+++ %s (current)\n", path)

	switch {
	case !oldExists:
		b.WriteString("  (absent at snapshot time)\n")
		for _, line := range splitLines(cur) {
			b.WriteString("+" + line + "\n")
		}
		return
	case !curExists:
		for _, line := range splitLines(old) {
			b.WriteString("-" + line + "\n")
		}
		b.WriteString("  (deleted since snapshot)\n")
		return
	}

	oldLines := splitLines(old)
	curLines := splitLines(cur)

	// Trim common prefix and suffix, then dump the differing middle.
	start := 0
	for start < len(oldLines) && start < len(curLines) && oldLines[start] == curLines[start] {
		start++
	}
	oldEnd, curEnd := len(oldLines), len(curLines)
	for oldEnd > start && curEnd > start && oldLines[oldEnd-1] == curLines[curEnd-1] {
		oldEnd--
		curEnd--
	}

	if start > 0 {
		fmt.Fprintf(b, "@@ %d unchanged line(s) @@\n", start)
	}
	for _, line := range oldLines[start:oldEnd] {
		b.WriteString("-" + line + "\n")
	}
	for _, line := range curLines[start:curEnd] {
		b.WriteString("+" + line + "\n")
	}
	if tail := len(oldLines) - oldEnd; tail > 0 {
		fmt.Fprintf(b, "@@ %d unchanged line(s) @@\n", tail)
	}
}

func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	s := strings.TrimSuffix(string(data), "\n")
	return strings.Split(s, "\n")
}
