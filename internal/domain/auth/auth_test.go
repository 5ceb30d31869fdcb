package auth

import (
	"context"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{EmployeeID: 7, Role: RoleSupervisor}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if parsed.EmployeeID != claims.EmployeeID || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{EmployeeID: 1, Role: RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", Claims{EmployeeID: 1, Role: RoleAdmin}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestStaticPermissions(t *testing.T) {
	perms := NewStaticPermissions()
	tests := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleTechnician, PermClockSelf, true},
		{RoleTechnician, PermClockManage, false},
		{RoleTechnician, PermAuditsSubmit, false},
		{RoleSupervisor, PermAuditsSubmit, true},
		{RoleSupervisor, PermEmployeesWrite, false},
		{RoleAdmin, PermEmployeesWrite, true},
		{"ghost", PermClockSelf, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.role+"/"+tc.permission, func(t *testing.T) {
			got, err := perms.HasPermission(context.Background(), tc.role, tc.permission)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestAdminHoldsEveryPermission(t *testing.T) {
	admin := map[string]bool{}
	for _, perm := range RolePermissions[RoleAdmin] {
		admin[perm] = true
	}
	for role, perms := range RolePermissions {
		for _, perm := range perms {
			if !admin[perm] {
				t.Fatalf("admin lacks %s granted to %s", perm, role)
			}
		}
	}
}
