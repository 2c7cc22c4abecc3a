package keygen

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"

	"github.com/google/uuid"
)

const (
	alphaNumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// ResetTokenLength is the length of password reset tokens
	ResetTokenLength = 48
)

// ResetToken generates an opaque password reset token
func ResetToken() (string, error) {
	return randomString(ResetTokenLength, alphaNumeric)
}

// TokenID generates a unique JWT id
func TokenID() string {
	return uuid.New().String()
}

// RequestID generates a request correlation id
func RequestID() string {
	return uuid.New().String()
}

// Fingerprint returns the hex SHA-256 of a token, suitable as a storage key
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// randomString generates a random string of given length from the given charset
func randomString(length int, charset string) (string, error) {
	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}

	return string(result), nil
}
