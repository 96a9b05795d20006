package services

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"university-portal-api/utils"
)

// PasswordGenerator creates one-time passwords for new accounts.
type PasswordGenerator interface {
	Generate() (string, error)
}

// PasswordHasher turns a plaintext password into its stored form.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

const (
	passwordUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordLower   = "abcdefghijkmnopqrstuvwxyz"
	passwordDigits  = "23456789"
	passwordSymbols = "!@#$%^&*-_=+?"
)

// SecurePasswordGenerator draws from crypto/rand and always includes at least
// one upper case letter, lower case letter, digit and symbol.
type SecurePasswordGenerator struct {
	Length int
}

func NewSecurePasswordGenerator() *SecurePasswordGenerator {
	return &SecurePasswordGenerator{Length: 16}
}

func (g *SecurePasswordGenerator) Generate() (string, error) {
	length := g.Length
	if length < 8 {
		length = 8
	}

	classes := []string{passwordUpper, passwordLower, passwordDigits, passwordSymbols}
	all := passwordUpper + passwordLower + passwordDigits + passwordSymbols

	out := make([]byte, 0, length)
	for _, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates so the guaranteed characters are not always up front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("shuffle password: %w", err)
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}

func randomChar(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("generate password: %w", err)
	}
	return alphabet[n.Int64()], nil
}

// BcryptHasher hashes with bcrypt at the default cost.
type BcryptHasher struct{}

func (BcryptHasher) Hash(plaintext string) (string, error) {
	return utils.HashPassword(plaintext)
}
