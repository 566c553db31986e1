package merge

import (
	"fmt"
	"strings"

	"github.com/loomctl/loom/internal/change"
	"github.com/loomctl/loom/internal/conflict"
)

// Compile-time check that AppendMethods implements Strategy.
var _ Strategy = (*AppendMethods)(nil)

// AppendMethods inserts newly added methods into their class bodies. The
// class is named by the change target's "Class.method" form; changes without
// a class prefix are skipped. Class bodies are located by brace scanning,
// which works for brace-delimited languages (JS/TS/Java/Go-like) and no-ops
// for indentation-based class bodies such as Python's.
type AppendMethods struct{}

// Name returns the strategy variant this implementation handles.
func (s *AppendMethods) Name() conflict.MergeStrategy {
	return conflict.StrategyAppendMethods
}

// Execute groups ADD_METHOD changes by class and inserts each group before
// the class's closing brace.
func (s *AppendMethods) Execute(mc *Context) *Result {
	byClass := make(map[string][]string)
	var classOrder []string
	for _, snap := range mc.TaskSnapshots {
		for _, c := range snap.Changes {
			if c.ChangeType != change.AddMethod || c.ContentAfter == nil {
				continue
			}
			className := c.ClassName()
			if className == "" {
				continue // class name unresolved, nothing to anchor on
			}
			if _, ok := byClass[className]; !ok {
				classOrder = append(classOrder, className)
			}
			byClass[className] = append(byClass[className], strings.TrimRight(*c.ContentAfter, "\n"))
		}
	}

	content := mc.BaselineContent
	methodsAdded := 0
	classesFound := 0

	for _, className := range classOrder {
		closing, ok := classClosingBrace(content, className)
		if !ok {
			continue
		}
		classesFound++

		block := "\n" + strings.Join(byClass[className], "\n\n") + "\n"
		content = content[:closing] + block + content[closing:]
		methodsAdded += len(byClass[className])
	}

	explanation := fmt.Sprintf("Added %d methods to %d classes", methodsAdded, classesFound)
	return autoMerged(mc, content, explanation)
}

// classClosingBrace finds the byte offset of the closing brace of the named
// class's body. Returns false when the class or a balanced body cannot be
// found, which covers both missing classes and indentation-based languages.
func classClosingBrace(content, className string) (int, bool) {
	start := classDeclIndex(content, className)
	if start < 0 {
		return 0, false
	}

	open := strings.Index(content[start:], "{")
	if open < 0 {
		return 0, false
	}
	open += start

	depth := 0
	for i := open; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// classDeclIndex locates a class declaration for className, requiring the
// name to end at a word boundary so "Foo" does not match "FooBar".
func classDeclIndex(content, className string) int {
	needle := "class " + className
	from := 0
	for {
		i := strings.Index(content[from:], needle)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(needle)
		if end >= len(content) || !isIdentChar(content[end]) {
			return i
		}
		from = end
	}
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
