package diagnostic

import "testing"

func TestSplit(t *testing.T) {
	pos := Position{Line: 1, Column: 1}
	all := []*ParseError{
		Errorf(CodeUnexpectedToken, pos, "unexpected %q", "x"),
		Warningf(CodeUnknownConstraint, pos, "unknown constraint %q", "check"),
		Errorf(CodeExpectedParen, pos, "expected ')'"),
	}

	errs, warnings := Split(all)
	if len(errs) != 2 {
		t.Fatalf("Split() errors = %d, want 2", len(errs))
	}
	if len(warnings) != 1 {
		t.Fatalf("Split() warnings = %d, want 1", len(warnings))
	}
	if errs[0].Code != CodeUnexpectedToken || errs[1].Code != CodeExpectedParen {
		t.Errorf("Split() did not preserve error order: %v, %v", errs[0].Code, errs[1].Code)
	}
	if warnings[0].Type != TypeSemantic {
		t.Errorf("warning type = %s, want %s", warnings[0].Type, TypeSemantic)
	}
}

func TestParseErrorString(t *testing.T) {
	err := Errorf(CodeUnexpectedCharacter, Position{Line: 3, Column: 7, Offset: 20}, "unexpected character '%s'", "@")
	want := "UNEXPECTED_CHARACTER at 3:7: unexpected character '@'"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !err.IsError() {
		t.Error("Errorf() should produce error severity")
	}
}
