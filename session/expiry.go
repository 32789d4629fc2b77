package session

import "strings"

// expirySignatures is the single source of truth for auth-expiry
// detection. Both the request executor and the auth state monitor match
// against this list; adding a signature here is the only way to teach
// either side a new expiry marker.
var expirySignatures = []string{
	"signature has expired",
	"signature verification failed",
	"error decoding signature",
	"token has expired",
	"token is expired",
	"jwt expired",
	"invalid token",
	"malformed token",
	"invalid or expired token",
	"authentication credentials were not provided",
}

// invalidSignatures are the subset of markers that indicate a credential
// rejected as invalid rather than merely expired. They decide the
// invalidation reason, not whether invalidation happens.
var invalidSignatures = []string{
	"signature verification failed",
	"error decoding signature",
	"invalid token",
	"malformed token",
}

// ExpirySignature returns the matched auth-expiry signature, if any.
// Matching is case-insensitive substring comparison over the error text.
func ExpirySignature(msg string) (string, bool) {
	lower := strings.ToLower(msg)
	for _, sig := range expirySignatures {
		if strings.Contains(lower, sig) {
			return sig, true
		}
	}
	return "", false
}

// IsAuthExpiry reports whether the error text carries an auth-expiry
// signature.
func IsAuthExpiry(msg string) bool {
	_, ok := ExpirySignature(msg)
	return ok
}

// IsAuthExpiryErr is IsAuthExpiry over an error. Nil errors never match.
func IsAuthExpiryErr(err error) bool {
	if err == nil {
		return false
	}
	return IsAuthExpiry(err.Error())
}

// ReasonForSignature maps a matched signature to an invalidation reason.
func ReasonForSignature(sig string) Reason {
	for _, inv := range invalidSignatures {
		if sig == inv {
			return ReasonInvalid
		}
	}
	return ReasonExpired
}
