package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// ResetTokenBytes gives 256 bits of entropy, 64 hex chars on the wire
	ResetTokenBytes = 32
	// ResetTokenTTL is the validity window for an outstanding reset token
	ResetTokenTTL = 10 * time.Minute
)

// GenerateResetToken creates the opaque reset token delivered to the user
// out-of-band, the digest that gets persisted in its place, and the expiry
// instant. The opaque token is never stored: the digest is a fast keyless
// hash, not the adaptive password hasher, since the input already has full
// entropy and the threat model is "a database read must not forge a reset
// link".
func GenerateResetToken() (token, digest string, expiresAt time.Time, err error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset token")
	}

	token = hex.EncodeToString(buf)
	digest = DigestResetToken(token)
	expiresAt = time.Now().Add(ResetTokenTTL)

	return token, digest, expiresAt, nil
}

// DigestResetToken computes the stored lookup digest for a raw reset token.
func DigestResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MatchResetToken reports whether the candidate token digests to the stored
// digest and the window has not elapsed. The digest comparison is
// constant-time.
func MatchResetToken(candidate, storedDigest string, storedExpiresAt time.Time) bool {
	if candidate == "" || storedDigest == "" {
		return false
	}

	computed := DigestResetToken(candidate)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) != 1 {
		return false
	}

	return !time.Now().After(storedExpiresAt)
}
