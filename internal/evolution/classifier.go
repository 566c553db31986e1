package evolution

import (
	"regexp"
	"strings"

	"github.com/loomctl/loom/internal/change"
)

// The classifier turns diff hunks into typed semantic changes using line
// patterns, not a parser. It covers the common shapes of JS/TS, Python, and
// Go declarations; anything it cannot name becomes a generic additive
// variable so the statement strategy can still carry it. AST-accurate
// extraction is out of scope.

var (
	jsFunctionRe = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s+(\w+)`)
	goFunctionRe = regexp.MustCompile(`^func\s+(\w+)`)
	goMethodRe   = regexp.MustCompile(`^func\s+\(\s*\w+\s+\*?(\w+)\s*\)\s*(\w+)`)
	pyFunctionRe = regexp.MustCompile(`^def\s+(\w+)`)
	pyMethodRe   = regexp.MustCompile(`^(\s+)def\s+(\w+)`)
	jsMethodRe   = regexp.MustCompile(`^(\s+)(?:async\s+)?(\w+)\s*\([^)]*\)\s*\{`)
	classRe      = regexp.MustCompile(`^(?:export\s+)?class\s+(\w+)`)
	interfaceRe  = regexp.MustCompile(`^(?:export\s+)?interface\s+(\w+)`)
	typeRe       = regexp.MustCompile(`^(?:export\s+)?type\s+(\w+)`)
	constRe      = regexp.MustCompile(`^(?:export\s+)?const\s+(\w+)`)
	varRe        = regexp.MustCompile(`^(?:export\s+)?(?:var|let)\s+(\w+)`)
	importRe     = regexp.MustCompile(`^(?:import\s+|from\s+\S+\s+import\s+)`)
	assignRe     = regexp.MustCompile(`^(\w+)\s*=`)
	hookCallRe   = regexp.MustCompile(`\buse[A-Z]\w*\s*\(`)
)

// classifyAddition types a block of added lines and names its target symbol.
func classifyAddition(block string) (change.Type, string) {
	line := firstMeaningfulLine(block)
	if line == "" {
		return change.AddComment, ""
	}

	switch {
	case importRe.MatchString(line):
		return change.AddImport, importTarget(line)
	case goMethodRe.MatchString(line):
		m := goMethodRe.FindStringSubmatch(line)
		return change.AddMethod, m[1] + "." + m[2]
	case goFunctionRe.MatchString(line):
		return change.AddFunction, goFunctionRe.FindStringSubmatch(line)[1]
	case jsFunctionRe.MatchString(line):
		return change.AddFunction, jsFunctionRe.FindStringSubmatch(line)[1]
	case classRe.MatchString(line):
		return change.AddClass, classRe.FindStringSubmatch(line)[1]
	case interfaceRe.MatchString(line):
		return change.AddInterface, interfaceRe.FindStringSubmatch(line)[1]
	case typeRe.MatchString(line):
		return change.AddType, typeRe.FindStringSubmatch(line)[1]
	case pyMethodRe.MatchString(line):
		// Indented def: a method of an unknown class. The append-methods
		// strategy skips targets without a class prefix.
		return change.AddMethod, pyMethodRe.FindStringSubmatch(line)[2]
	case pyFunctionRe.MatchString(line):
		return change.AddFunction, pyFunctionRe.FindStringSubmatch(line)[1]
	case constRe.MatchString(line):
		return change.AddConstant, constRe.FindStringSubmatch(line)[1]
	case varRe.MatchString(line):
		return change.AddVariable, varRe.FindStringSubmatch(line)[1]
	case strings.HasPrefix(line, "@"):
		return change.AddDecorator, strings.TrimPrefix(strings.Fields(line)[0], "@")
	case strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "/*"):
		return change.AddComment, ""
	case strings.HasPrefix(line, "<"):
		return change.AddJSXElement, jsxTarget(line)
	case hookCallRe.MatchString(line):
		return change.AddHookCall, strings.TrimSuffix(hookCallRe.FindString(line), "(")
	case jsMethodRe.MatchString(line):
		return change.AddMethod, jsMethodRe.FindStringSubmatch(line)[2]
	case assignRe.MatchString(line):
		return change.AddVariable, assignRe.FindStringSubmatch(line)[1]
	default:
		return change.AddVariable, ""
	}
}

// classifyModification names the symbol a mixed hunk most plausibly rewrites.
func classifyModification(before, after string) (change.Type, string) {
	// Prefer a symbol named in the new text, fall back to the old.
	if t, target := classifyAddition(after); target != "" {
		switch t {
		case change.AddFunction:
			return change.ModifyFunction, target
		case change.AddMethod:
			return change.ModifyMethod, target
		case change.AddClass:
			return change.ModifyClass, target
		default:
			return change.ModifyVariable, target
		}
	}
	if _, target := classifyAddition(before); target != "" {
		return change.ModifyFunction, target
	}
	return change.ModifyFunction, ""
}

// classifyRemoval types a block of removed lines.
func classifyRemoval(block string) (change.Type, string) {
	t, target := classifyAddition(block)
	switch t {
	case change.AddFunction, change.AddMethod:
		return change.RemoveFunction, target
	case change.AddImport:
		return change.RemoveImport, target
	default:
		return change.RemoveVariable, target
	}
}

func firstMeaningfulLine(block string) string {
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			return strings.TrimRight(line, " \t")
		}
	}
	return ""
}

func importTarget(line string) string {
	fields := strings.Fields(line)
	if len(fields) >= 2 {
		return strings.Trim(fields[1], `"';`)
	}
	return ""
}

func jsxTarget(line string) string {
	trimmed := strings.TrimPrefix(line, "<")
	for i, r := range trimmed {
		if !isWordRune(r) {
			return trimmed[:i]
		}
	}
	return trimmed
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
