package patch

import (
	"regexp"
	"strings"
)

// insertAfter inserts addition right after the first occurrence of anchor.
// Content that already contains marker, or lacks anchor, is returned as is.
func insertAfter(content, anchor, addition, marker string) string {
	// The marker proves an earlier run already inserted the addition.
	if strings.Contains(content, marker) {
		return content
	}
	i := strings.Index(content, anchor)
	if i < 0 {
		return content
	}
	// Insert after the anchor so it stays first, e.g. an opening bracket.
	at := i + len(anchor)
	return content[:at] + addition + content[at:]
}

// replaceFirst replaces the first match of re with the literal repl.
func replaceFirst(re *regexp.Regexp, content, repl string) string {
	// Slicing rather than ReplaceAllString keeps $ in repl literal.
	loc := re.FindStringIndex(content)
	if loc == nil {
		return content
	}
	return content[:loc[0]] + repl + content[loc[1]:]
}

// appendBlock appends block, separated by a blank line, unless marker is present.
func appendBlock(content, marker, block string) string {
	if strings.Contains(content, marker) {
		return content
	}
	// Terminate the last line first so the block starts after a blank line.
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + block
}

// prependLine puts line at the top of content unless it is already there.
func prependLine(content, line string) string {
	if strings.Contains(content, line) {
		return content
	}
	return line + "\n\n" + content
}

var importLine = regexp.MustCompile(`(?m)^import .*$`)

// insertImport adds stmt after the last top-level import statement, or at
// the top when there is none.
func insertImport(content, stmt string) string {
	if strings.Contains(content, stmt) {
		return content
	}
	all := importLine.FindAllStringIndex(content, -1)
	if len(all) == 0 {
		return stmt + "\n" + content
	}
	// End of the last import line; the new statement goes on its own line.
	at := all[len(all)-1][1]
	return content[:at] + "\n" + stmt + content[at:]
}
