package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt hashing
const BcryptCost = 10

// ErrInvalidCredentials is returned for any failed login, without saying which part was wrong
var ErrInvalidCredentials = errors.New("invalid username or password")

// HashPassword hashes a plaintext password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword compares a plaintext password with a hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AdminAccount is the single operator login configured through the environment
type AdminAccount struct {
	Username     string
	PasswordHash string
}

// Login checks the credentials and issues a token
func (a AdminAccount) Login(username, password string) (string, error) {
	if a.Username == "" || a.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passOK := CheckPassword(password, a.PasswordHash)
	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}
	return GenerateToken(a.Username)
}
