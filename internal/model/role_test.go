package model

import "testing"

func TestPrimaryRole(t *testing.T) {
	tests := []struct {
		name     string
		roles    []string
		expected string
	}{
		{"empty set", nil, ""},
		{"single role", []string{RoleUser}, RoleUser},
		{"admin wins", []string{RoleUser, RoleAdmin, RoleEmployee}, RoleAdmin},
		{"manager over employee", []string{RoleEmployee, RoleManager}, RoleManager},
		{"order does not matter", []string{RoleManager, RoleUser}, RoleManager},
		{"unknown names ignored", []string{"SUPERVISOR", RoleUser}, RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrimaryRole(tt.roles); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestIsKnownRole(t *testing.T) {
	for _, role := range KnownRoles {
		if !IsKnownRole(role) {
			t.Errorf("Expected %s to be a known role", role)
		}
	}
	if IsKnownRole("SUPERVISOR") {
		t.Error("Expected SUPERVISOR to be unknown")
	}
	if IsKnownRole("user") {
		t.Error("Expected role names to be case sensitive")
	}
}
