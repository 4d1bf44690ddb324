package validation

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
)

type registerPayload struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

func TestToDetailsUsesJSONFieldNames(t *testing.T) {
	Init()

	p := registerPayload{Username: "ab", Email: "not-an-email", Password: "short"}
	err := binding.Validator.ValidateStruct(&p)
	if err == nil {
		t.Fatal("expected validation error")
	}

	details := ToDetails(err)
	if details["username"] == "" {
		t.Fatalf("missing username detail, got %v", details)
	}
	if details["email"] != "must be a valid email" {
		t.Fatalf("email detail = %q", details["email"])
	}
	if details["password"] != "min length 8" {
		t.Fatalf("password detail = %q", details["password"])
	}
}

func TestToDetailsRequired(t *testing.T) {
	Init()

	p := registerPayload{}
	err := binding.Validator.ValidateStruct(&p)
	if err == nil {
		t.Fatal("expected validation error")
	}
	details := ToDetails(err)
	for _, field := range []string{"username", "email", "password"} {
		if details[field] != "is required" {
			t.Fatalf("%s detail = %q, want %q", field, details[field], "is required")
		}
	}
}

func TestToDetailsNil(t *testing.T) {
	if d := ToDetails(nil); d != nil {
		t.Fatalf("ToDetails(nil) = %v, want nil", d)
	}
}
