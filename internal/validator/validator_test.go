package validator

import (
	"strings"
	"testing"
)

type sample struct {
	Phone string `json:"phoneNumber" validate:"required,e164"`
	Mode  string `json:"mode" validate:"omitempty,oneof=sms email"`
}

func TestStruct_UsesJSONNames(t *testing.T) {
	err := Struct(sample{Phone: "5551234", Mode: "fax"})
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "'phoneNumber' must be an E.164 phone number") {
		t.Fatalf("unexpected message: %s", msg)
	}
	if !strings.Contains(msg, "'mode' must be one of: sms email") {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(sample{Phone: "+15551234567", Mode: "sms"}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestVar(t *testing.T) {
	if err := Var("+33612345678", "e164"); err != nil {
		t.Fatalf("expected valid e164, got %v", err)
	}
	if err := Var("abc", "numeric"); err == nil {
		t.Fatalf("expected numeric failure")
	}
}
