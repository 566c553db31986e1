package change

import "testing"

func TestTypeClassification(t *testing.T) {
	tests := []struct {
		name     string
		typ      Type
		additive bool
		modify   bool
		remove   bool
	}{
		{"add function", AddFunction, true, false, false},
		{"add method", AddMethod, true, false, false},
		{"add import", AddImport, true, false, false},
		{"add hook call", AddHookCall, true, false, false},
		{"modify function", ModifyFunction, false, true, false},
		{"modify class", ModifyClass, false, true, false},
		{"remove variable", RemoveVariable, false, false, true},
		{"remove import", RemoveImport, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.IsAdditive(); got != tt.additive {
				t.Errorf("IsAdditive() = %v, want %v", got, tt.additive)
			}
			if got := tt.typ.IsModify(); got != tt.modify {
				t.Errorf("IsModify() = %v, want %v", got, tt.modify)
			}
			if got := tt.typ.IsRemove(); got != tt.remove {
				t.Errorf("IsRemove() = %v, want %v", got, tt.remove)
			}
		})
	}
}

func TestClassName(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"UserService.create", "UserService"},
		{"Outer.Inner.method", "Outer"},
		{"standalone", ""},
		{".leading", ""},
		{"", ""},
	}

	for _, tt := range tests {
		c := SemanticChange{Target: tt.target}
		if got := c.ClassName(); got != tt.want {
			t.Errorf("ClassName(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestClassLocation(t *testing.T) {
	if got := ClassLocation("Widget"); got != "class:Widget" {
		t.Errorf("ClassLocation = %q, want class:Widget", got)
	}
}

func TestChangesOfType(t *testing.T) {
	snap := TaskSnapshot{
		TaskID: "t1",
		Changes: []SemanticChange{
			{ChangeType: AddFunction, Target: "a"},
			{ChangeType: AddVariable, Target: "b"},
			{ChangeType: AddFunction, Target: "c"},
		},
	}

	funcs := snap.ChangesOfType(AddFunction)
	if len(funcs) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(funcs))
	}
	if funcs[0].Target != "a" || funcs[1].Target != "c" {
		t.Errorf("wrong order: %q, %q", funcs[0].Target, funcs[1].Target)
	}
}
