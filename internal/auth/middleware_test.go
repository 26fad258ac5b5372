package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// testHandler echoes the username the middleware put on the context
func testHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"username": GetUsernameFromContext(r.Context())})
}

func signClaims(t *testing.T, claims *Claims, secret []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

// TestMiddlewareValidToken tests that a valid token passes and exposes the username
func TestMiddlewareValidToken(t *testing.T) {
	token, err := GenerateToken("admin")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	JWTMiddleware(http.HandlerFunc(testHandler)).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200 OK, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["username"] != "admin" {
		t.Errorf("Expected username admin, got %q", resp["username"])
	}
}

// TestMiddlewareRejects tests that every malformed, expired or foreign token returns 401 JSON
func TestMiddlewareRejects(t *testing.T) {
	expired := signClaims(t, &Claims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			Issuer:    TokenIssuer,
		},
	}, JWTSecret)
	wrongSecret := signClaims(t, &Claims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    TokenIssuer,
		},
	}, []byte("wrong-secret-key"))
	wrongIssuer := signClaims(t, &Claims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "someone-else",
		},
	}, JWTSecret)
	noExpiry := signClaims(t, &Claims{
		Username:         "admin",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: TokenIssuer},
	}, JWTSecret)

	testCases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"missing Bearer prefix", "invalid-token-no-bearer"},
		{"empty Bearer token", "Bearer "},
		{"Basic auth", "Basic dXNlcjpwYXNz"},
		{"malformed JWT", "Bearer not.a.valid.jwt"},
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + wrongSecret},
		{"wrong issuer", "Bearer " + wrongIssuer},
		{"no expiry", "Bearer " + noExpiry},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()

			JWTMiddleware(http.HandlerFunc(testHandler)).ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("Expected status 401, got %d: %s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Header().Get("Content-Type"), "application/json") {
				t.Errorf("Expected JSON content type, got %s", rr.Header().Get("Content-Type"))
			}
			var resp struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Success || resp.Error == "" {
				t.Errorf("Unexpected error body %+v", resp)
			}
		})
	}
}
