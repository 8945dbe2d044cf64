// Package scaffold generates per-language starter code for a coding problem.
// Generation is a total function: malformed schemas or test cases degrade to
// category defaults, never to an error.
package scaffold

import (
	"fmt"
	"strings"

	"github.com/codigloo/contestd/internal/domain"
)

// Supported target languages.
const (
	LangPython     = "python"
	LangJavaScript = "javascript"
	LangJava       = "java"
	LangCPP        = "cpp"
	LangGo         = "go"
)

// Canonical type tokens used by problem schemas. Unknown tokens map to the
// target language's untyped fallback.
const (
	typeInt      = "int"
	typeFloat    = "float"
	typeBool     = "bool"
	typeStr      = "str"
	typeListNode = "ListNode"
	typeTreeNode = "TreeNode"
)

type signature struct {
	name       string
	params     []domain.Param
	returnType string
}

// Generate renders a starter skeleton for the problem in the given language.
// Preference order for the signature: explicit schema, inference from the
// first test case, then per-category defaults.
func Generate(p domain.Problem, language string) string {
	sig := resolveSignature(p)

	switch language {
	case LangPython:
		return renderPython(sig)
	case LangJavaScript:
		return renderJavaScript(sig)
	case LangJava:
		return renderJava(sig)
	case LangCPP:
		return renderCPP(sig)
	case LangGo:
		return renderGo(sig)
	default:
		// Unknown language: python is the platform default.
		return renderPython(sig)
	}
}

func resolveSignature(p domain.Problem) signature {
	name := functionName(p)

	if s := p.Schema; s != nil && len(s.Params) > 0 && s.ReturnType != "" {
		params := make([]domain.Param, 0, len(s.Params))
		for i, prm := range s.Params {
			n := prm.Name
			if n == "" {
				n = fmt.Sprintf("arg%d", i+1)
			}
			params = append(params, domain.Param{Name: n, Type: prm.Type})
		}
		return signature{name: name, params: params, returnType: s.ReturnType}
	}

	if len(p.TestCases) > 0 {
		if sig, ok := inferFromTestCase(name, p.TestCases[0]); ok {
			return sig
		}
	}

	return categoryDefault(name, p.Category)
}

// functionName prefers the schema's stored name, then derives a camel-case
// identifier from the title, then falls back to "solution".
func functionName(p domain.Problem) string {
	if p.Schema != nil && p.Schema.FunctionName != "" {
		return p.Schema.FunctionName
	}

	words := splitWords(p.Title)
	if len(words) == 0 {
		return "solution"
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(strings.ToLower(w[1:]))
	}
	return b.String()
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		default:
			return true
		}
	})
}

// inferFromTestCase deduces one canonical type per input line of the first
// test case and one for its expected output.
func inferFromTestCase(name string, tc domain.TestCase) (signature, bool) {
	lines := nonEmptyLines(tc.Input)
	if len(lines) == 0 {
		return signature{}, false
	}

	params := make([]domain.Param, 0, len(lines))
	names := []string{"a", "b", "c", "d", "e", "f"}
	for i, l := range lines {
		n := fmt.Sprintf("arg%d", i+1)
		if i < len(names) {
			n = names[i]
		}
		params = append(params, domain.Param{Name: n, Type: sniffType(l)})
	}

	ret := typeInt
	if out := strings.TrimSpace(tc.Expected); out != "" {
		ret = sniffType(out)
	}

	return signature{name: name, params: params, returnType: ret}, true
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// sniffType structurally classifies one literal into a canonical type token.
func sniffType(lit string) string {
	lit = strings.TrimSpace(lit)
	switch {
	case lit == "true" || lit == "false" || lit == "True" || lit == "False":
		return typeBool
	case strings.HasPrefix(lit, "[["):
		return "List[List[int]]"
	case strings.HasPrefix(lit, "["):
		return "List[" + sniffElemType(lit) + "]"
	case strings.HasPrefix(lit, "{"):
		return "Map[str,int]"
	case strings.HasPrefix(lit, `"`) || strings.HasPrefix(lit, "'"):
		return typeStr
	case isInteger(lit):
		return typeInt
	case isFloat(lit):
		return typeFloat
	default:
		return typeStr
	}
}

func sniffElemType(lit string) string {
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(lit, "["), "]"))
	if inner == "" {
		return typeInt
	}
	first := strings.TrimSpace(strings.Split(inner, ",")[0])
	switch {
	case strings.HasPrefix(first, `"`) || strings.HasPrefix(first, "'"):
		return typeStr
	case isInteger(first):
		return typeInt
	case isFloat(first):
		return typeFloat
	default:
		return typeStr
	}
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isFloat(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	dot := false
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return dot && digits > 0
}

func categoryDefault(name, category string) signature {
	switch category {
	case "array":
		return signature{
			name:       name,
			params:     []domain.Param{{Name: "nums", Type: "List[int]"}},
			returnType: "List[int]",
		}
	case "linked_list":
		return signature{
			name:       name,
			params:     []domain.Param{{Name: "head", Type: typeListNode}},
			returnType: typeListNode,
		}
	case "binary_tree":
		return signature{
			name:       name,
			params:     []domain.Param{{Name: "root", Type: typeTreeNode}},
			returnType: typeTreeNode,
		}
	case "string":
		return signature{
			name:       name,
			params:     []domain.Param{{Name: "s", Type: typeStr}},
			returnType: typeStr,
		}
	default:
		return signature{
			name:       name,
			params:     []domain.Param{{Name: "n", Type: typeInt}},
			returnType: typeInt,
		}
	}
}

func usesType(sig signature, token string) bool {
	if strings.Contains(sig.returnType, token) {
		return true
	}
	for _, p := range sig.params {
		if strings.Contains(p.Type, token) {
			return true
		}
	}
	return false
}
