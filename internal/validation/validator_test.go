package validation

import (
	"errors"
	"strings"
	"testing"
)

type credentials struct {
	Username string `json:"username" validate:"required,max=8"`
	Kind     string `json:"type" validate:"omitempty,oneof=movie tv"`
	ID       int    `json:"id" validate:"omitempty,gt=0"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      credentials
		wantErr string
	}{
		{name: "valid", in: credentials{Username: "alice"}},
		{name: "missing username", in: credentials{}, wantErr: "username is required"},
		{name: "too long", in: credentials{Username: "abcdefghij"}, wantErr: "username must be at most 8 characters"},
		{name: "bad kind", in: credentials{Username: "a", Kind: "person"}, wantErr: "type must be one of: movie tv"},
		{name: "negative id", in: credentials{Username: "a", ID: -1}, wantErr: "id must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.in)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if !strings.Contains(verr.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", verr.Error(), tt.wantErr)
			}
		})
	}
}
