package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/pbkdf2"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrMissingSecret = errors.New("signing secret is not configured")
)

// Password derivation defaults, shared with hashes written by older deployments.
const (
	DefaultSalt       = "coreenginedb"
	DefaultIterations = 100000
	KeyLength         = 32
)

// SHA256Hex is the content hash used for ETags.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HMACHex signs data with HMAC-SHA256 and returns the lowercase hex digest.
func HMACHex(secret, data string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	sig, err := jwt.SigningMethodHS256.Sign(data, []byte(secret))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

// VerifyHMACHex checks a hex signature in constant time.
func VerifyHMACHex(secret, data, sigHex string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	sig, err := hex.DecodeString(strings.ToLower(sigHex))
	if err != nil {
		return ErrInvalidToken
	}
	if err := jwt.SigningMethodHS256.Verify(data, sig, []byte(secret)); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// ConstantTimeEqual reports whether a and b are equal without leaking
// where they differ. Empty strings never match.
func ConstantTimeEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// PBKDF2Hex derives a PBKDF2-HMAC-SHA256 key and returns it hex encoded.
func PBKDF2Hex(password, salt string, iterations, keyLen int) string {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if keyLen <= 0 {
		keyLen = KeyLength
	}
	dk := pbkdf2.Key([]byte(password), []byte(salt), iterations, keyLen, sha256.New)
	return hex.EncodeToString(dk)
}

// PasswordHash is the stored form of a derived password.
type PasswordHash struct {
	Salt       string `json:"salt"`
	Iterations int    `json:"iterations"`
	Hash       string `json:"hash"`
}

// NewPasswordHash derives a hash for password under a fresh random salt.
func NewPasswordHash(password string) (PasswordHash, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return PasswordHash{}, err
	}
	ph := PasswordHash{Salt: hex.EncodeToString(salt), Iterations: DefaultIterations}
	ph.Hash = PBKDF2Hex(password, ph.Salt, ph.Iterations, KeyLength)
	return ph, nil
}

// ParsePasswordHash accepts either the JSON object form or a bare hex
// digest, which is assumed to use the default salt and iteration count.
func ParsePasswordHash(value string) PasswordHash {
	ph := PasswordHash{Salt: DefaultSalt, Iterations: DefaultIterations}
	var obj PasswordHash
	if err := json.Unmarshal([]byte(value), &obj); err != nil {
		ph.Hash = value
		return ph
	}
	if obj.Salt != "" {
		ph.Salt = obj.Salt
	}
	if obj.Iterations > 0 {
		ph.Iterations = obj.Iterations
	}
	ph.Hash = obj.Hash
	return ph
}

// Check derives password under the stored parameters and compares.
func (ph PasswordHash) Check(password string) bool {
	if ph.Hash == "" {
		return false
	}
	calc := PBKDF2Hex(password, ph.Salt, ph.Iterations, KeyLength)
	return ConstantTimeEqual(calc, strings.ToLower(ph.Hash))
}

// String renders the JSON object form stored in records.
func (ph PasswordHash) String() string {
	b, _ := json.Marshal(ph)
	return string(b)
}
