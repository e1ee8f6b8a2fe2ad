package lineage

import "strings"

// ExtractPrecedingLine scans patch-style change detail for the first
// added line whose trimmed text contains target, and returns the
// content line immediately preceding it in the same linear ordering,
// with its sigil stripped and leading whitespace trimmed.
//
// ok is false when no added line matches, or when the match has no
// preceding content line (it opens its hunk, so there is no
// well-defined prior content to continue a walk from).
//
// Matching is substring containment, not equality: when one added
// line's text is a substring of another, the first occurrence wins.
// This is a known imprecision, kept deliberately.
func ExtractPrecedingLine(detail, target string) (string, bool) {
	lines := strings.Split(detail, "\n")
	for i, line := range lines {
		if !isAddedLine(line) {
			continue
		}
		if !strings.Contains(strings.TrimSpace(line[1:]), target) {
			continue
		}
		if i == 0 {
			return "", false
		}
		prev := lines[i-1]
		if !isContentLine(prev) {
			// Hunk or file headers precede the match: the added line
			// is the first content line of the detail.
			return "", false
		}
		return strings.TrimLeft(prev[1:], " \t"), true
	}
	return "", false
}

// isAddedLine reports whether line is an added content line
// (leading '+', excluding the '+++' file header).
func isAddedLine(line string) bool {
	return strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++")
}

// isContentLine reports whether line is a context, added, or removed
// content line as opposed to hunk/file metadata.
func isContentLine(line string) bool {
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
		return false
	}
	switch line[0] {
	case '+', '-', ' ':
		return true
	}
	return false
}
