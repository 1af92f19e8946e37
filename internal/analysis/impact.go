package analysis

import (
	"reqprops/internal/git"
	"reqprops/internal/syntax"
)

// ChangedFunctions keeps the functions whose line range overlaps a changed
// line of the file.
func ChangedFunctions(functions []*syntax.Function, change git.ChangedFile) []*syntax.Function {
	var affected []*syntax.Function
	for _, fn := range functions {
		if isAffected(fn, change.ChangedLines) {
			affected = append(affected, fn)
		}
	}
	return affected
}

func isAffected(fn *syntax.Function, lines []int) bool {
	start := fn.StartLine
	if fn.Directive != nil && fn.Directive.Location.Line < start {
		start = fn.Directive.Location.Line
	}
	// Simple overlap check
	for _, line := range lines {
		if line >= start && line <= fn.EndLine {
			return true
		}
	}
	return false
}
