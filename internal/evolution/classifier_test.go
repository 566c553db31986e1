package evolution

import (
	"testing"

	"github.com/loomctl/loom/internal/change"
)

func TestClassifyAddition(t *testing.T) {
	tests := []struct {
		name       string
		block      string
		wantType   change.Type
		wantTarget string
	}{
		{"js function", "function calculateTotal(items) {\n  return 0;\n}", change.AddFunction, "calculateTotal"},
		{"exported async js function", "export async function fetchUser(id) {", change.AddFunction, "fetchUser"},
		{"go function", "func Process(items []Item) error {", change.AddFunction, "Process"},
		{"go method", "func (s *Server) Handle(w http.ResponseWriter) {", change.AddMethod, "Server.Handle"},
		{"go value receiver method", "func (c Config) Validate() error {", change.AddMethod, "Config.Validate"},
		{"python function", "def parse_config(path):", change.AddFunction, "parse_config"},
		{"python method", "    def save(self):", change.AddMethod, "save"},
		{"class", "export class UserService {", change.AddClass, "UserService"},
		{"interface", "interface Props {", change.AddInterface, "Props"},
		{"type alias", "export type Handler = (req: Request) => void;", change.AddType, "Handler"},
		{"const", "const MAX_RETRIES = 3;", change.AddConstant, "MAX_RETRIES"},
		{"let", "let counter = 0;", change.AddVariable, "counter"},
		{"js import", `import React from "react";`, change.AddImport, "React"},
		{"python import", "from collections import OrderedDict", change.AddImport, "collections"},
		{"decorator", "@app.route('/users')", change.AddDecorator, "app.route('/users')"},
		{"line comment", "// explains the invariant", change.AddComment, ""},
		{"jsx element", `<Button onClick={save}>Save</Button>`, change.AddJSXElement, "Button"},
		{"hook call", "useEffect(() => { sync(); }, []);", change.AddHookCall, "useEffect"},
		{"js class method", "  render() {\n    return null;\n  }", change.AddMethod, "render"},
		{"bare assignment", "total = a + b", change.AddVariable, "total"},
		{"unrecognized", "if (ready) {", change.AddVariable, ""},
		{"blank block", "\n   \n", change.AddComment, ""},
		{"leading blanks skipped", "\n\nfunc helper() {", change.AddFunction, "helper"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotTarget := classifyAddition(tt.block)
			if gotType != tt.wantType {
				t.Errorf("type = %s, want %s", gotType, tt.wantType)
			}
			if gotTarget != tt.wantTarget {
				t.Errorf("target = %q, want %q", gotTarget, tt.wantTarget)
			}
		})
	}
}

func TestClassifyModification(t *testing.T) {
	tests := []struct {
		name       string
		before     string
		after      string
		wantType   change.Type
		wantTarget string
	}{
		{
			"function rewrite",
			"function calc(a) { return a; }",
			"function calc(a, b) { return a + b; }",
			change.ModifyFunction, "calc",
		},
		{
			"method rewrite",
			"func (s *Store) Get(k string) {}",
			"func (s *Store) Get(k string) (string, error) {}",
			change.ModifyMethod, "Store.Get",
		},
		{
			"class rewrite",
			"class Cache {",
			"class Cache extends Base {",
			change.ModifyClass, "Cache",
		},
		{
			"assignment rewrite",
			"timeout = 5",
			"timeout = 30",
			change.ModifyVariable, "timeout",
		},
		{
			"symbol only in old text",
			"function dropped() {}",
			"return null;",
			change.ModifyFunction, "dropped",
		},
		{
			"anonymous hunk",
			"  }",
			"  })",
			change.ModifyFunction, "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotTarget := classifyModification(tt.before, tt.after)
			if gotType != tt.wantType {
				t.Errorf("type = %s, want %s", gotType, tt.wantType)
			}
			if gotTarget != tt.wantTarget {
				t.Errorf("target = %q, want %q", gotTarget, tt.wantTarget)
			}
		})
	}
}

func TestClassifyRemoval(t *testing.T) {
	tests := []struct {
		name       string
		block      string
		wantType   change.Type
		wantTarget string
	}{
		{"removed function", "function legacy() {}", change.RemoveFunction, "legacy"},
		{"removed method", "func (s *Server) Old() {}", change.RemoveFunction, "Server.Old"},
		{"removed import", `import lodash from "lodash";`, change.RemoveImport, "lodash"},
		{"removed constant", "const DEBUG = true;", change.RemoveVariable, "DEBUG"},
		{"removed statement", "cache.clear()", change.RemoveVariable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotTarget := classifyRemoval(tt.block)
			if gotType != tt.wantType {
				t.Errorf("type = %s, want %s", gotType, tt.wantType)
			}
			if gotTarget != tt.wantTarget {
				t.Errorf("target = %q, want %q", gotTarget, tt.wantTarget)
			}
		})
	}
}
