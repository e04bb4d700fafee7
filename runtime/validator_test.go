package runtime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func credentialSchema() Schema {
	return Schema{
		{Field: "username", Rules: []Rule{{Kind: RuleRequired, Message: "Username is required"}}},
		{Field: "password", Rules: []Rule{{Kind: RuleRequired, Message: "Password is required"}}},
	}
}

func pinSchema() Schema {
	return Schema{
		{Field: "pin", Rules: []Rule{
			{Kind: RuleRequired, Message: "PIN is required"},
			{Kind: RulePattern, Pattern: `^\d{4}$`, Message: "PIN must be exactly 4 digits"},
		}},
	}
}

func TestValidate_Credentials(t *testing.T) {
	schema := credentialSchema()
	if err := schema.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	tests := []struct {
		name       string
		values     FieldValues
		wantErrors map[string]string
	}{
		{
			name:   "both present",
			values: FieldValues{"username": "alice", "password": "s3cret"},
		},
		{
			name:       "missing password",
			values:     FieldValues{"username": "alice", "password": ""},
			wantErrors: map[string]string{"password": "Password is required"},
		},
		{
			name:   "whitespace only counts as empty",
			values: FieldValues{"username": "   ", "password": "\t"},
			wantErrors: map[string]string{
				"username": "Username is required",
				"password": "Password is required",
			},
		},
		{
			name:   "absent fields are validated as empty",
			values: FieldValues{},
			wantErrors: map[string]string{
				"username": "Username is required",
				"password": "Password is required",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(schema, tt.values)
			if diff := cmp.Diff(tt.wantErrors, result.Errors); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}
			if result.Valid() != (tt.wantErrors == nil) {
				t.Errorf("Expected Valid()=%v, got %v", tt.wantErrors == nil, result.Valid())
			}
		})
	}
}

func TestValidate_FirstFailingRuleWins(t *testing.T) {
	schema := pinSchema()
	if err := schema.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	tests := []struct {
		value string
		want  string
	}{
		{"", "PIN is required"},
		{"12", "PIN must be exactly 4 digits"},
		{"12a4", "PIN must be exactly 4 digits"},
		{"12345", "PIN must be exactly 4 digits"},
		{"1234", ""},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			result := Validate(schema, FieldValues{"pin": tt.value})
			if got := result.Errors["pin"]; got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestValidate_NormalizedValues(t *testing.T) {
	schema := credentialSchema()
	result := Validate(schema, FieldValues{"username": "alice", "password": "pw", "extra": "x"})

	if !result.Valid() {
		t.Fatalf("Expected valid result, got %v", result.Errors)
	}
	want := FieldValues{"username": "alice", "password": "pw", "extra": "x"}
	if diff := cmp.Diff(want, result.Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_TagRule(t *testing.T) {
	schema := Schema{
		{Field: "otp", Rules: []Rule{{Kind: RuleTag, Tag: "numeric,len=6", Message: "OTP must be exactly 6 digits"}}},
	}
	if err := schema.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if r := Validate(schema, FieldValues{"otp": "123456"}); !r.Valid() {
		t.Errorf("Expected 123456 to be valid, got %v", r.Errors)
	}
	if r := Validate(schema, FieldValues{"otp": "12345a"}); r.Valid() {
		t.Error("Expected 12345a to be invalid")
	}
}

func TestSchemaCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
	}{
		{"missing field name", Schema{{Rules: []Rule{{Kind: RuleRequired}}}}},
		{"bad pattern", Schema{{Field: "pin", Rules: []Rule{{Kind: RulePattern, Pattern: "("}}}}},
		{"tag without tag", Schema{{Field: "otp", Rules: []Rule{{Kind: RuleTag}}}}},
		{"unknown rule", Schema{{Field: "otp", Rules: []Rule{{Kind: "luhn"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.schema.Compile(); err == nil {
				t.Error("Expected compile error, got nil")
			}
		})
	}
}

func TestSchemaCompile_DefaultMessages(t *testing.T) {
	schema := Schema{
		{Field: "code", Rules: []Rule{{Kind: RuleNonEmptyString}, {Kind: RulePattern, Pattern: `^\d+$`}}},
	}
	if err := schema.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if got := Validate(schema, FieldValues{}).Errors["code"]; got != "code is required" {
		t.Errorf("Expected default required message, got %q", got)
	}
	if got := Validate(schema, FieldValues{"code": "x"}).Errors["code"]; got != "code is invalid" {
		t.Errorf("Expected default pattern message, got %q", got)
	}
}
