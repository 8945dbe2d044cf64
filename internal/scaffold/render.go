package scaffold

import (
	"fmt"
	"strings"
)

// mapType translates a canonical type token through a fixed lookup table,
// falling back to the language's untyped/any form for unknown tokens.
func mapType(table map[string]string, fallback, token string) string {
	if t, ok := table[strings.TrimSpace(token)]; ok {
		return t
	}
	return fallback
}

var pythonTypes = map[string]string{
	typeInt:           "int",
	typeFloat:         "float",
	typeBool:          "bool",
	typeStr:           "str",
	"List[int]":       "List[int]",
	"List[float]":     "List[float]",
	"List[str]":       "List[str]",
	"List[bool]":      "List[bool]",
	"List[List[int]]": "List[List[int]]",
	"Map[str,int]":    "Dict[str, int]",
	"Set[int]":        "Set[int]",
	typeListNode:      "Optional[ListNode]",
	typeTreeNode:      "Optional[TreeNode]",
}

func renderPython(sig signature) string {
	var b strings.Builder

	mapped := []string{mapType(pythonTypes, "Any", sig.returnType)}
	for _, p := range sig.params {
		mapped = append(mapped, mapType(pythonTypes, "Any", p.Type))
	}

	var imports []string
	for _, tok := range []string{"List", "Dict", "Set", "Optional", "Any"} {
		for _, m := range mapped {
			if strings.HasPrefix(m, tok+"[") || m == tok {
				imports = append(imports, tok)
				break
			}
		}
	}
	if len(imports) > 0 {
		b.WriteString("from typing import " + strings.Join(dedupe(imports), ", ") + "\n\n")
	}

	if usesType(sig, typeListNode) {
		b.WriteString("# Definition for singly-linked list.\n")
		b.WriteString("class ListNode:\n")
		b.WriteString("    def __init__(self, val=0, next=None):\n")
		b.WriteString("        self.val = val\n")
		b.WriteString("        self.next = next\n\n")
	}
	if usesType(sig, typeTreeNode) {
		b.WriteString("# Definition for a binary tree node.\n")
		b.WriteString("class TreeNode:\n")
		b.WriteString("    def __init__(self, val=0, left=None, right=None):\n")
		b.WriteString("        self.val = val\n")
		b.WriteString("        self.left = left\n")
		b.WriteString("        self.right = right\n\n")
	}

	args := make([]string, 0, len(sig.params))
	for _, p := range sig.params {
		args = append(args, fmt.Sprintf("%s: %s", p.Name, mapType(pythonTypes, "Any", p.Type)))
	}

	b.WriteString(fmt.Sprintf("def %s(%s) -> %s:\n", sig.name, strings.Join(args, ", "), mapType(pythonTypes, "Any", sig.returnType)))
	b.WriteString("    # Write your solution here\n")
	b.WriteString("    pass\n")
	return b.String()
}

var jsDocTypes = map[string]string{
	typeInt:           "number",
	typeFloat:         "number",
	typeBool:          "boolean",
	typeStr:           "string",
	"List[int]":       "number[]",
	"List[float]":     "number[]",
	"List[str]":       "string[]",
	"List[bool]":      "boolean[]",
	"List[List[int]]": "number[][]",
	"Map[str,int]":    "Object<string, number>",
	"Set[int]":        "Set<number>",
	typeListNode:      "ListNode",
	typeTreeNode:      "TreeNode",
}

func renderJavaScript(sig signature) string {
	var b strings.Builder

	if usesType(sig, typeListNode) {
		b.WriteString("// Definition for singly-linked list.\n")
		b.WriteString("function ListNode(val, next) {\n")
		b.WriteString("  this.val = val === undefined ? 0 : val;\n")
		b.WriteString("  this.next = next === undefined ? null : next;\n")
		b.WriteString("}\n\n")
	}
	if usesType(sig, typeTreeNode) {
		b.WriteString("// Definition for a binary tree node.\n")
		b.WriteString("function TreeNode(val, left, right) {\n")
		b.WriteString("  this.val = val === undefined ? 0 : val;\n")
		b.WriteString("  this.left = left === undefined ? null : left;\n")
		b.WriteString("  this.right = right === undefined ? null : right;\n")
		b.WriteString("}\n\n")
	}

	b.WriteString("/**\n")
	for _, p := range sig.params {
		b.WriteString(fmt.Sprintf(" * @param {%s} %s\n", mapType(jsDocTypes, "*", p.Type), p.Name))
	}
	b.WriteString(fmt.Sprintf(" * @return {%s}\n", mapType(jsDocTypes, "*", sig.returnType)))
	b.WriteString(" */\n")

	names := make([]string, 0, len(sig.params))
	for _, p := range sig.params {
		names = append(names, p.Name)
	}
	b.WriteString(fmt.Sprintf("function %s(%s) {\n", sig.name, strings.Join(names, ", ")))
	b.WriteString("  // Write your solution here\n")
	b.WriteString("}\n")
	return b.String()
}

var javaTypes = map[string]string{
	typeInt:           "int",
	typeFloat:         "double",
	typeBool:          "boolean",
	typeStr:           "String",
	"List[int]":       "int[]",
	"List[float]":     "double[]",
	"List[str]":       "String[]",
	"List[bool]":      "boolean[]",
	"List[List[int]]": "int[][]",
	"Map[str,int]":    "Map<String, Integer>",
	"Set[int]":        "Set<Integer>",
	typeListNode:      "ListNode",
	typeTreeNode:      "TreeNode",
}

func renderJava(sig signature) string {
	var b strings.Builder

	if usesType(sig, "Map[") || usesType(sig, "Set[") {
		b.WriteString("import java.util.*;\n\n")
	}

	if usesType(sig, typeListNode) {
		b.WriteString("// Definition for singly-linked list.\n")
		b.WriteString("class ListNode {\n")
		b.WriteString("    int val;\n")
		b.WriteString("    ListNode next;\n")
		b.WriteString("    ListNode(int val) { this.val = val; }\n")
		b.WriteString("}\n\n")
	}
	if usesType(sig, typeTreeNode) {
		b.WriteString("// Definition for a binary tree node.\n")
		b.WriteString("class TreeNode {\n")
		b.WriteString("    int val;\n")
		b.WriteString("    TreeNode left;\n")
		b.WriteString("    TreeNode right;\n")
		b.WriteString("    TreeNode(int val) { this.val = val; }\n")
		b.WriteString("}\n\n")
	}

	args := make([]string, 0, len(sig.params))
	for _, p := range sig.params {
		args = append(args, fmt.Sprintf("%s %s", mapType(javaTypes, "Object", p.Type), p.Name))
	}

	b.WriteString("class Solution {\n")
	b.WriteString(fmt.Sprintf("    public %s %s(%s) {\n", mapType(javaTypes, "Object", sig.returnType), sig.name, strings.Join(args, ", ")))
	b.WriteString("        // Write your solution here\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")
	return b.String()
}

var cppTypes = map[string]string{
	typeInt:           "int",
	typeFloat:         "double",
	typeBool:          "bool",
	typeStr:           "string",
	"List[int]":       "vector<int>",
	"List[float]":     "vector<double>",
	"List[str]":       "vector<string>",
	"List[bool]":      "vector<bool>",
	"List[List[int]]": "vector<vector<int>>",
	"Map[str,int]":    "map<string, int>",
	"Set[int]":        "set<int>",
	typeListNode:      "ListNode*",
	typeTreeNode:      "TreeNode*",
}

func renderCPP(sig signature) string {
	var b strings.Builder

	var includes []string
	if usesType(sig, "List[") {
		includes = append(includes, "#include <vector>")
	}
	if usesType(sig, typeStr) {
		includes = append(includes, "#include <string>")
	}
	if usesType(sig, "Map[") {
		includes = append(includes, "#include <map>")
	}
	if usesType(sig, "Set[") {
		includes = append(includes, "#include <set>")
	}
	if len(includes) > 0 {
		b.WriteString(strings.Join(includes, "\n") + "\nusing namespace std;\n\n")
	}

	if usesType(sig, typeListNode) {
		b.WriteString("// Definition for singly-linked list.\n")
		b.WriteString("struct ListNode {\n")
		b.WriteString("    int val;\n")
		b.WriteString("    ListNode *next;\n")
		b.WriteString("    ListNode(int x) : val(x), next(nullptr) {}\n")
		b.WriteString("};\n\n")
	}
	if usesType(sig, typeTreeNode) {
		b.WriteString("// Definition for a binary tree node.\n")
		b.WriteString("struct TreeNode {\n")
		b.WriteString("    int val;\n")
		b.WriteString("    TreeNode *left;\n")
		b.WriteString("    TreeNode *right;\n")
		b.WriteString("    TreeNode(int x) : val(x), left(nullptr), right(nullptr) {}\n")
		b.WriteString("};\n\n")
	}

	args := make([]string, 0, len(sig.params))
	for _, p := range sig.params {
		t := mapType(cppTypes, "auto", p.Type)
		if strings.HasPrefix(t, "vector") || strings.HasPrefix(t, "map") || strings.HasPrefix(t, "set") || t == "string" {
			t += "&"
		}
		args = append(args, fmt.Sprintf("%s %s", t, p.Name))
	}

	b.WriteString(fmt.Sprintf("%s %s(%s) {\n", mapType(cppTypes, "auto", sig.returnType), sig.name, strings.Join(args, ", ")))
	b.WriteString("    // Write your solution here\n")
	b.WriteString("}\n")
	return b.String()
}

var goTypes = map[string]string{
	typeInt:           "int",
	typeFloat:         "float64",
	typeBool:          "bool",
	typeStr:           "string",
	"List[int]":       "[]int",
	"List[float]":     "[]float64",
	"List[str]":       "[]string",
	"List[bool]":      "[]bool",
	"List[List[int]]": "[][]int",
	"Map[str,int]":    "map[string]int",
	"Set[int]":        "map[int]struct{}",
	typeListNode:      "*ListNode",
	typeTreeNode:      "*TreeNode",
}

func renderGo(sig signature) string {
	var b strings.Builder

	if usesType(sig, typeListNode) {
		b.WriteString("// Definition for singly-linked list.\n")
		b.WriteString("type ListNode struct {\n")
		b.WriteString("\tVal  int\n")
		b.WriteString("\tNext *ListNode\n")
		b.WriteString("}\n\n")
	}
	if usesType(sig, typeTreeNode) {
		b.WriteString("// Definition for a binary tree node.\n")
		b.WriteString("type TreeNode struct {\n")
		b.WriteString("\tVal   int\n")
		b.WriteString("\tLeft  *TreeNode\n")
		b.WriteString("\tRight *TreeNode\n")
		b.WriteString("}\n\n")
	}

	args := make([]string, 0, len(sig.params))
	for _, p := range sig.params {
		args = append(args, fmt.Sprintf("%s %s", p.Name, mapType(goTypes, "any", p.Type)))
	}

	b.WriteString(fmt.Sprintf("func %s(%s) %s {\n", sig.name, strings.Join(args, ", "), mapType(goTypes, "any", sig.returnType)))
	b.WriteString("\t// Write your solution here\n")
	b.WriteString("}\n")
	return b.String()
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
