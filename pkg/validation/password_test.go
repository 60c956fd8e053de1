package validation

import (
	"strings"
	"testing"
)

func TestPasswordValidator(t *testing.T) {
	tests := []struct {
		name     string
		password string
		expected error
	}{
		{"empty", "", ErrPasswordEmpty},
		{"too short", "Ab1", ErrPasswordTooShort},
		{"too long", strings.Repeat("Ab1", 100), ErrPasswordTooLong},
		{"no upper", "password1", ErrPasswordTooWeak},
		{"no lower", "PASSWORD1", ErrPasswordTooWeak},
		{"no digit", "Password", ErrPasswordTooWeak},
		{"valid", "Password1", nil},
		{"valid with symbols", "P@ssw0rd!x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := PasswordValidator(tt.password); err != tt.expected {
				t.Errorf("PasswordValidator(%q) = %v, want %v", tt.password, err, tt.expected)
			}
		})
	}
}

func TestRegisterPasswordValidator(t *testing.T) {
	if err := RegisterPasswordValidator(); err != nil {
		t.Fatalf("Expected registration to succeed, got %v", err)
	}
	// Registering again replaces the previous hook, not an error
	if err := RegisterPasswordValidator(); err != nil {
		t.Fatalf("Expected repeated registration to succeed, got %v", err)
	}
}
