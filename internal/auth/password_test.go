package auth

import (
	"errors"
	"testing"
)

// TestHashPassword tests that a hash verifies only the original password
func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correctpassword")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if !CheckPassword("correctpassword", hash) {
		t.Error("CheckPassword returned false for correct password")
	}
	if CheckPassword("wrongpassword", hash) {
		t.Error("CheckPassword returned true for wrong password")
	}
	if CheckPassword("correctpassword", "not-a-hash") {
		t.Error("CheckPassword returned true for a malformed hash")
	}
}

// TestAdminAccountLogin tests that only the configured credentials produce a token
func TestAdminAccountLogin(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	account := AdminAccount{Username: "admin", PasswordHash: hash}

	token, err := account.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if claims.Username != "admin" || claims.Issuer != TokenIssuer {
		t.Errorf("Unexpected claims %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != TokenExpiration {
		t.Errorf("Expected token lifetime %v, got %v", TokenExpiration, got)
	}

	for _, tc := range []struct{ user, pass string }{
		{"admin", "wrong"},
		{"root", "s3cret"},
		{"", ""},
	} {
		if _, err := account.Login(tc.user, tc.pass); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q, %q) error = %v, want ErrInvalidCredentials", tc.user, tc.pass, err)
		}
	}

	if _, err := (AdminAccount{}).Login("", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Unconfigured account must reject every login, got %v", err)
	}
}
