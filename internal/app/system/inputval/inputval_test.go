package inputval

import (
	"errors"
	"testing"
)

type registerInput struct {
	Name     string `json:"name" validate:"notblank,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidate(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		in     registerInput
		fields map[string]string
	}{
		{"valid", registerInput{Name: "Ann", Email: "ann@example.com", Password: "longenough"}, nil},
		{"blank name", registerInput{Name: "   ", Email: "ann@example.com", Password: "longenough"},
			map[string]string{"name": "is required"}},
		{"bad email", registerInput{Name: "Ann", Email: "ann", Password: "longenough"},
			map[string]string{"email": "must be a valid email address"}},
		{"short password", registerInput{Name: "Ann", Email: "ann@example.com", Password: "short"},
			map[string]string{"password": "must be at least 8 characters"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			if tt.fields == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var fe *FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want *FieldErrors", err)
			}
			for f, msg := range tt.fields {
				if fe.Fields[f] != msg {
					t.Errorf("field %q = %q, want %q (all: %v)", f, fe.Fields[f], msg, fe.Fields)
				}
			}
		})
	}
}
