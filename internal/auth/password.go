// Package auth — password hashing utilities.
//
// WHY ARGON2ID?
// argon2id is a memory-hard password hashing function: cracking it needs not
// just CPU time but a configurable amount of RAM per guess, which is what
// makes GPU/ASIC brute-forcing expensive. It won the Password Hashing
// Competition and is the current OWASP first choice.
//
// The output is a self-contained PHC-format string:
//
//	$argon2id$v=19$m=8192,t=4,p=2$<base64 salt>$<base64 digest>
//
// Parameters and salt travel inside the hash, so Verify can decode an old
// hash produced with different settings and still check it correctly —
// no separate salt or params columns needed.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Default parameters: time=4 passes over 8 MiB with 2 lanes, 16-byte salt,
// 32-byte digest. Hashing takes on the order of tens of milliseconds —
// negligible for a login, brutal for an attacker.
const (
	defaultTime    = 4
	defaultMemory  = 8 * 1024 // KiB
	defaultThreads = 2
	saltLength     = 16
	keyLength      = 32
)

// ErrPasswordMismatch is returned by Verify when the plaintext does not match
// the stored hash. Callers translate it to an Unauthorized condition; any
// other Verify error is an internal failure (undecodable hash).
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService provides argon2id hashing and verification.
//
// It's a struct (not free functions) so the work parameters can be injected —
// tests use NewPasswordServiceForTest to drop the cost and keep the suite
// fast without changing the logic under test.
type PasswordService struct {
	time    uint32
	memory  uint32
	threads uint8
}

// NewPasswordService creates a PasswordService with the default parameters.
func NewPasswordService() *PasswordService {
	return &PasswordService{time: defaultTime, memory: defaultMemory, threads: defaultThreads}
}

// NewPasswordServiceForTest creates a PasswordService with minimal work
// parameters (1 pass over 1 MiB). Do NOT use in production.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{time: 1, memory: 1024, threads: 1}
}

// Hash hashes the given plaintext password with argon2id and returns the
// PHC-encoded string to store in the database.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("auth: password must not be empty")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generating salt: %w", err)
	}

	digest := argon2.IDKey([]byte(plaintext), salt, p.time, p.memory, p.threads, keyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)
	return encoded, nil
}

// Verify checks whether a plaintext password matches a stored argon2id hash.
//
// Returns nil on match, ErrPasswordMismatch on mismatch, and a different
// non-nil error if the stored value is not a decodable argon2id string (which
// is also how the OAuth placeholder credential fails closed — it never parses,
// so password login on a placeholder account can never succeed).
//
// The digest comparison uses subtle.ConstantTimeCompare, so response time
// does not reveal how many bytes matched.
func (p *PasswordService) Verify(hash, plaintext string) error {
	salt, params, digest, err := decodeHash(hash)
	if err != nil {
		return err
	}

	candidate := argon2.IDKey([]byte(plaintext), salt, params.time, params.memory, params.threads, uint32(len(digest)))

	if subtle.ConstantTimeCompare(digest, candidate) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

type hashParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

// decodeHash parses a PHC argon2id string into salt, parameters, and digest.
func decodeHash(hash string) ([]byte, hashParams, []byte, error) {
	var params hashParams

	parts := strings.Split(hash, "$")
	// "" / "argon2id" / "v=19" / "m=...,t=...,p=..." / salt / digest
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, params, nil, fmt.Errorf("auth: not an argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, params, nil, fmt.Errorf("auth: malformed hash version: %w", err)
	}
	if version != argon2.Version {
		return nil, params, nil, fmt.Errorf("auth: unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil {
		return nil, params, nil, fmt.Errorf("auth: malformed hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, params, nil, fmt.Errorf("auth: decoding salt: %w", err)
	}

	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, params, nil, fmt.Errorf("auth: decoding digest: %w", err)
	}

	return salt, params, digest, nil
}
