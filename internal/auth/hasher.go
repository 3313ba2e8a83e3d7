// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Fixed argon2id parameters. These are the load-bearing defense against
// offline brute force and must not become caller-tunable.
const (
	argon2Time    = 3         // iterations
	argon2Memory  = 64 * 1024 // 64 MiB
	argon2Threads = 1         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code(CodeValidation).Errorf("password cannot be empty")

// Scheme identifies the hashing algorithm a stored hash was produced under.
type Scheme int

// Hash schemes, detected structurally from the stored hash.
const (
	// SchemeUnknown means the stored value matches no supported format.
	SchemeUnknown Scheme = iota

	// SchemeCurrent is argon2id in PHC string format.
	SchemeCurrent

	// SchemeLegacy is bcrypt, recognized by its "$2" modular-crypt prefix.
	SchemeLegacy
)

// String returns the scheme name for logging.
func (s Scheme) String() string {
	switch s {
	case SchemeCurrent:
		return "argon2id"
	case SchemeLegacy:
		return "bcrypt"
	default:
		return "unknown"
	}
}

// PasswordHasher provides password hashing, verification, and scheme
// detection.
type PasswordHasher interface {
	// Hash produces a current-scheme (argon2id) hash of the password.
	Hash(password string) (string, error)

	// Verify checks the password against the hash using the algorithm the
	// hash was produced under. Returns (true, nil) on match, (false, nil)
	// on mismatch, or an error on an unparseable hash.
	Verify(password, hash string) (bool, error)

	// Scheme detects the hashing scheme of a stored hash.
	Scheme(hash string) Scheme
}

// Argon2idHasher implements PasswordHasher with argon2id as the current
// scheme and bcrypt as the recognized legacy scheme.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id hash of the password in PHC string format:
// $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code(CodeUpstream).With("operation", "generate salt").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// Verify checks the password against the stored hash, dispatching on the
// detected scheme. Comparison is delegated to the algorithm's own
// constant-time primitive in both branches.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	switch h.Scheme(encodedHash) {
	case SchemeCurrent:
		return verifyArgon2id(password, encodedHash)
	case SchemeLegacy:
		return verifyBcrypt(password, encodedHash)
	default:
		return false, oops.Errorf("unsupported hash format")
	}
}

// Scheme detects the hashing scheme from the stored hash's prefix.
func (h *Argon2idHasher) Scheme(hash string) Scheme {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return SchemeCurrent
	case strings.HasPrefix(hash, "$2"):
		return SchemeLegacy
	default:
		return SchemeUnknown
	}
}

func verifyArgon2id(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, oops.Errorf("invalid argon2id hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.With("operation", "parse argon2 version").Wrap(err)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, oops.With("operation", "parse argon2 parameters").Wrap(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.With("operation", "decode argon2 salt").Wrap(err)
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.With("operation", "decode argon2 hash").Wrap(err)
	}

	// Reject parameter values that would silently truncate.
	if threads > 255 {
		return false, oops.Errorf("argon2 threads value %d exceeds uint8 max", threads)
	}
	keyLen := len(expected)
	if keyLen <= 0 || keyLen > 1<<30 {
		return false, oops.Errorf("invalid argon2 key length: %d", keyLen)
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(keyLen))

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func verifyBcrypt(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, oops.With("operation", "bcrypt compare").Wrap(err)
}

// VerifyResult reports the outcome of one credential verification.
type VerifyResult struct {
	Valid  bool
	Scheme Scheme
}

// VerifyCredential checks a presented password against an account's stored
// hash. A nil stored hash (identity-provider-only account) is always invalid
// and invokes no hashing primitive.
func VerifyCredential(hasher PasswordHasher, storedHash *string, presented string) (VerifyResult, error) {
	if storedHash == nil || *storedHash == "" {
		return VerifyResult{Valid: false, Scheme: SchemeUnknown}, nil
	}

	scheme := hasher.Scheme(*storedHash)
	valid, err := hasher.Verify(presented, *storedHash)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Valid: valid, Scheme: scheme}, nil
}
