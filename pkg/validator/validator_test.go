package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestParseErrorMapsEveryFailedField(t *testing.T) {
	type form struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=8"`
	}

	v := validator.New()
	err := v.Struct(form{Email: "not-an-email", Password: "short"})
	if err == nil {
		t.Fatal("Expected validation to fail")
	}

	got := ParseError(err)
	if got["Email"] != "Email must be a valid email address" {
		t.Errorf("Unexpected Email message: %q", got["Email"])
	}
	if got["Password"] != "Password must be at least 8 characters" {
		t.Errorf("Unexpected Password message: %q", got["Password"])
	}
}

func TestParseErrorWrapsPlainErrors(t *testing.T) {
	got := ParseError(errors.New("unexpected EOF"))
	if got["error"] != "unexpected EOF" {
		t.Errorf("Expected the raw error carried through, got %v", got)
	}
	if len(ParseError(nil)) != 0 {
		t.Error("Expected an empty map for a nil error")
	}
}
